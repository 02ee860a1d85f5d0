package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNegotiate(t *testing.T) {
	geo := func(country string) CountryLookup {
		return func(ip string) (string, error) {
			if ip != "203.0.113.4" {
				return "", errors.New("unexpected ip " + ip)
			}
			return country, nil
		}
	}
	tests := []struct {
		name     string
		headers  map[string]string
		fallback string
		lookup   CountryLookup
		want     Negotiated
	}{
		{
			name:    "x-locale beats geoip",
			headers: map[string]string{"X-Locale": "ID"},
			lookup:  geo("us"),
			want:    Negotiated{Locale: "id", Country: "US", Source: SourceHeader},
		},
		{
			name:    "accept-language with region",
			headers: map[string]string{"Accept-Language": "en-GB,en;q=0.9"},
			want:    Negotiated{Locale: "en", Country: "GB", Source: SourceAccept},
		},
		{
			name:    "accept-language prefers id",
			headers: map[string]string{"Accept-Language": "id-ID,en;q=0.8"},
			want:    Negotiated{Locale: "id", Country: "ID", Source: SourceAccept},
		},
		{
			name:    "unsupported language defers to geoip",
			headers: map[string]string{"Accept-Language": "fr"},
			lookup:  geo("id"),
			want:    Negotiated{Locale: "id", Country: "ID", Source: SourceCountry},
		},
		{
			name:    "proxy header wins over region",
			headers: map[string]string{"X-Country-Code": "us", "CF-IPCountry": "id", "Accept-Language": "en-AU"},
			want:    Negotiated{Locale: "en", Country: "US", Source: SourceAccept},
		},
		{
			name:    "malformed proxy header ignored",
			headers: map[string]string{"CF-IPCountry": "XX1"},
			lookup:  geo("my"),
			want:    Negotiated{Locale: "en", Country: "MY", Source: SourceCountry},
		},
		{
			name:    "cf country id",
			headers: map[string]string{"CF-IPCountry": "id"},
			want:    Negotiated{Locale: "id", Country: "ID", Source: SourceCountry},
		},
		{
			name:     "lookup error uses fallback",
			fallback: "id",
			lookup:   func(string) (string, error) { return "", errors.New("boom") },
			want:     Negotiated{Locale: "id", Source: SourceFallback},
		},
		{
			name: "nothing known",
			want: Negotiated{Locale: "en", Source: SourceFallback},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:80"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := Negotiate(req, tc.fallback, tc.lookup); got != tc.want {
				t.Fatalf("Negotiate() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNegotiateSkipsLookupWhenHeadersDecide(t *testing.T) {
	called := false
	lookup := func(string) (string, error) { called = true; return "ID", nil }
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en-US")
	Negotiate(req, "en", lookup)
	if called {
		t.Fatal("geoip lookup ran although locale and country were known")
	}
}

func TestI18NMiddleware(t *testing.T) {
	lookup := func(ip string) (string, error) { return "id", nil }
	var locale, country string
	h := I18N("en", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:443"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if locale != "id" || country != "ID" {
		t.Fatalf("geoip path = %q/%q, want id/ID", locale, country)
	}
	if rec.Header().Get("Content-Language") != "id" {
		t.Fatalf("Content-Language = %q", rec.Header().Get("Content-Language"))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if locale != "en" || country != "FR" {
		t.Fatalf("unsupported language = %q/%q, want en/FR", locale, country)
	}
}

func TestLocaleFromContext(t *testing.T) {
	ctx := context.Background()
	if got := LocaleFromContext(ctx); got != "en" {
		t.Fatalf("LocaleFromContext() default = %q, want %q", got, "en")
	}
	ctx = context.WithValue(ctx, LocaleKey, "id")
	if got := LocaleFromContext(ctx); got != "id" {
		t.Fatalf("LocaleFromContext() with value = %q, want %q", got, "id")
	}
}

func TestNormalizeLocale(t *testing.T) {
	for in, want := range map[string]string{"id": "id", "ID-id": "id", "en-US": "en", "de": "en", "": "en", "???": "en"} {
		if got := normalizeLocale(in); got != want {
			t.Errorf("normalizeLocale(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1234"
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP() = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.1, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.1" {
		t.Fatalf("ClientIP() forwarded = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "garbage")
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP() bad forwarded = %q", got)
	}
}
