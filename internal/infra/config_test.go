package infra

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("BULK_MAX_TEXT_ITEMS", "")
	t.Setenv("BULK_MAX_IMAGE_ITEMS", "")
	t.Setenv("GROQ_MODEL", "")
	t.Setenv("CHUNK_RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("IMAGE_CHUNK_RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.MaxTextItems != 100 || cfg.MaxImageItems != 5 {
		t.Fatalf("item caps = %d/%d, want 100/5", cfg.MaxTextItems, cfg.MaxImageItems)
	}
	if cfg.MaxImageBytes != 10*1024*1024 {
		t.Fatalf("MaxImageBytes = %d", cfg.MaxImageBytes)
	}
	if cfg.GroqModel != "llama-3.3-70b-versatile" {
		t.Fatalf("GroqModel = %q", cfg.GroqModel)
	}
	if cfg.StorageDriver != "fs" {
		t.Fatalf("StorageDriver = %q, want fs", cfg.StorageDriver)
	}
	// The bulk driver paces text at one item per second and images at one
	// per seven, and each item may take up to three attempts.
	if cfg.ChunkRatePerMin < 60*3/2 || cfg.ImageRatePerMin < 60/7*2 {
		t.Fatalf("chunk limits %d/%d fall below driver pacing", cfg.ChunkRatePerMin, cfg.ImageRatePerMin)
	}
	if cfg.RateLimitPerMin <= cfg.ChunkRatePerMin {
		t.Fatalf("RateLimitPerMin = %d must exceed the chunk limit %d", cfg.RateLimitPerMin, cfg.ChunkRatePerMin)
	}
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "test-secret")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadConfigS3NeedsBucket(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for s3 without bucket")
	}

	t.Setenv("S3_BUCKET", "product-images")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageDriver != "s3" || cfg.S3Bucket != "product-images" {
		t.Fatalf("unexpected storage config: %q %q", cfg.StorageDriver, cfg.S3Bucket)
	}
}

func TestLoadConfigCORSOrigins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://app.example.com, ,http://localhost:3000 ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://app.example.com", "http://localhost:3000"}
	if len(cfg.CORSOrigins) != len(expected) {
		t.Fatalf("CORSOrigins = %#v, want %#v", cfg.CORSOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSOrigins[i] != origin {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], origin)
		}
	}
}
