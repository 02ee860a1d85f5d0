package bulk

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"descriptai/internal/bulk/bulktest"
	"descriptai/internal/domain"
	"descriptai/internal/metrics"
	"descriptai/internal/providers/textgen"
)

type fixture struct {
	store  *bulktest.Store
	text   *bulktest.Generator
	vision *bulktest.Generator
	images *bulktest.ObjectStore
	proc   *ChunkProcessor
	job    *domain.Job
}

func newFixture(t *testing.T, kind domain.JobKind, total, credits int, text, vision []bulktest.Reply) *fixture {
	t.Helper()
	f := &fixture{
		store:  bulktest.NewStore(),
		text:   bulktest.NewGenerator(text...),
		vision: bulktest.NewGenerator(vision...),
		images: &bulktest.ObjectStore{},
	}
	f.store.SetCredits(testUser, credits)
	f.proc = NewChunkProcessor(ProcessorDeps{
		Jobs:      f.store,
		Artifacts: f.store,
		Credits:   f.store,
		Voices:    f.store.Voices(),
		Text:      f.text,
		Vision:    f.vision,
		Images:    f.images,
		Metrics:   metrics.New(),
		Logger:    zerolog.Nop(),
	})
	f.job = &domain.Job{UserID: testUser, Kind: kind, TotalItems: total}
	if err := f.store.Create(context.Background(), f.job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return f
}

func (f *fixture) stored(t *testing.T) domain.Job {
	t.Helper()
	j, ok := f.store.Job(f.job.ID)
	if !ok {
		t.Fatal("job missing")
	}
	return j
}

func ok(text string) bulktest.Reply { return bulktest.Reply{Text: text} }

func TestProcessItemSuccess(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 3, 10, []bulktest.Reply{ok(bulktest.DescriptionsJSON)}, nil)

	for i := 0; i < 3; i++ {
		res, err := f.proc.ProcessItem(context.Background(), testUser, f.job.ID, i, domain.WorkItem{ProductName: "Water Bottle"})
		if err != nil {
			t.Fatalf("item %d: %v", i, err)
		}
		if !res.Success || res.Index != i || res.Descriptions == nil || res.Descriptions.Short != "Buy it" {
			t.Fatalf("item %d result = %+v", i, res)
		}
		if res.Job.ProcessedItems != i+1 {
			t.Fatalf("processed = %d after item %d", res.Job.ProcessedItems, i)
		}
	}

	j := f.stored(t)
	if j.ProcessedItems != 3 || j.FailedItems != 0 {
		t.Fatalf("counters = %d/%d", j.ProcessedItems, j.FailedItems)
	}
	if got := len(f.store.Artifacts()); got != 3 {
		t.Fatalf("artifacts = %d, want 3", got)
	}
	if got := f.store.Credits(testUser); got != 7 {
		t.Fatalf("credits = %d, want 7", got)
	}
	if len(f.store.Usage) != 3 || f.store.Usage[0].ActionType != domain.UsageBulkItem {
		t.Fatalf("usage = %+v", f.store.Usage)
	}
	if a := f.store.Artifacts()[0]; a.Item.StoredTone() != "professional" || a.JobID != f.job.ID {
		t.Fatalf("artifact = %+v", a)
	}
}

func TestProcessItemPromptDefaults(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 1, 10, []bulktest.Reply{ok(bulktest.DescriptionsJSON)}, nil)
	if _, err := f.proc.ProcessItem(context.Background(), testUser, f.job.ID, 0, domain.WorkItem{ProductName: "Lamp"}); err != nil {
		t.Fatal(err)
	}
	prompt := f.text.Prompts[0]
	for _, want := range []string{"Product: Lamp", "Category: General", "Key Features: N/A", "Target Audience: General consumers", "Tone: Professional"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestProcessItemFailures(t *testing.T) {
	tests := []struct {
		name    string
		reply   bulktest.Reply
		item    domain.WorkItem
		wantMsg string
	}{
		{name: "unparseable", reply: ok("Sure! Here you go: {seo}"), item: domain.WorkItem{ProductName: "Mug"}, wantMsg: MsgParseFailed},
		{name: "missing variant", reply: ok(`{"seo":"a","emotional":"b"}`), item: domain.WorkItem{ProductName: "Mug"}, wantMsg: MsgParseFailed},
		{name: "provider error", reply: bulktest.Reply{Err: &textgen.StatusError{Code: 500, Body: "boom"}}, item: domain.WorkItem{ProductName: "Mug"}, wantMsg: MsgGenerationFailed},
		{name: "invalid item", reply: ok(bulktest.DescriptionsJSON), item: domain.WorkItem{}, wantMsg: "The field 'productName' is required."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, domain.JobKindText, 2, 10, []bulktest.Reply{tc.reply}, nil)
			res, err := f.proc.ProcessItem(context.Background(), testUser, f.job.ID, 0, tc.item)
			if err != nil {
				t.Fatalf("ProcessItem() error: %v", err)
			}
			if res.Success || res.Error != tc.wantMsg {
				t.Fatalf("result = %+v, want failure %q", res, tc.wantMsg)
			}
			j := f.stored(t)
			if j.ProcessedItems != 1 || j.FailedItems != 1 {
				t.Fatalf("counters = %d/%d, want 1/1", j.ProcessedItems, j.FailedItems)
			}
			if len(f.store.Artifacts()) != 0 || f.store.Credits(testUser) != 10 {
				t.Fatal("failed item must not persist or debit")
			}
		})
	}
}

func TestProcessItemUpstreamRateLimitCountsAsFailure(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 2, 10, []bulktest.Reply{{Err: textgen.ErrRateLimited}}, nil)
	res, err := f.proc.ProcessItem(context.Background(), testUser, f.job.ID, 0, domain.WorkItem{ProductName: "Mug"})
	if err != nil {
		t.Fatalf("ProcessItem() error: %v", err)
	}
	if res.Success || res.Error != MsgGenerationFailed {
		t.Fatalf("result = %+v, want %q", res, MsgGenerationFailed)
	}
	if j := f.stored(t); j.ProcessedItems != 1 || j.FailedItems != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", j.ProcessedItems, j.FailedItems)
	}
}

func TestProcessItemCancelledLeavesCounters(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 2, 10, []bulktest.Reply{{Err: context.Canceled}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.proc.ProcessItem(ctx, testUser, f.job.ID, 0, domain.WorkItem{ProductName: "Mug"}); err == nil {
		t.Fatal("expected error for a cancelled request")
	}
	if j := f.stored(t); j.ProcessedItems != 0 || j.FailedItems != 0 {
		t.Fatalf("counters moved: %d/%d", j.ProcessedItems, j.FailedItems)
	}
}

func TestProcessItemRejections(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 2, 10, []bulktest.Reply{ok(bulktest.DescriptionsJSON)}, nil)
	item := domain.WorkItem{ProductName: "Mug"}
	ctx := context.Background()

	if _, err := f.proc.ProcessItem(ctx, "another-user", f.job.ID, 0, item); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign job err = %v, want not found", err)
	}
	if _, err := f.proc.ProcessItem(ctx, testUser, "nope", 0, item); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing job err = %v, want not found", err)
	}
	for _, idx := range []int{-1, 2} {
		if _, err := f.proc.ProcessItem(ctx, testUser, f.job.ID, idx, item); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("index %d err = %v, want invalid argument", idx, err)
		}
	}
	if f.text.Calls() != 0 {
		t.Fatal("rejected calls must not reach the model")
	}

	msg := "done"
	if err := f.store.Finalize(ctx, f.job.ID, testUser, domain.JobStatusCompleted, &msg); err != nil {
		t.Fatal(err)
	}
	if _, err := f.proc.ProcessItem(ctx, testUser, f.job.ID, 0, item); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("finalized job err = %v, want invalid argument", err)
	}
}

func TestProcessItemCountersBounded(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 1, 10, []bulktest.Reply{ok("garbage")}, nil)
	for i := 0; i < 3; i++ {
		if _, err := f.proc.ProcessItem(context.Background(), testUser, f.job.ID, 0, domain.WorkItem{ProductName: "Mug"}); err != nil {
			t.Fatal(err)
		}
	}
	j := f.stored(t)
	if j.ProcessedItems != 1 || j.FailedItems != 1 {
		t.Fatalf("counters = %d/%d, want bounded at 1/1", j.ProcessedItems, j.FailedItems)
	}
}

func TestProcessItemCreditsExhaustedKeepsArtifact(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 2, 1, []bulktest.Reply{ok(bulktest.DescriptionsJSON)}, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := f.proc.ProcessItem(ctx, testUser, f.job.ID, i, domain.WorkItem{ProductName: "Mug"})
		if err != nil || !res.Success {
			t.Fatalf("item %d = %+v, %v", i, res, err)
		}
	}
	if got := f.store.Credits(testUser); got != 0 {
		t.Fatalf("credits = %d, want 0", got)
	}
	if got := len(f.store.Artifacts()); got != 2 {
		t.Fatalf("artifacts = %d, want 2", got)
	}
}

func TestProcessItemUsesBrandVoice(t *testing.T) {
	f := newFixture(t, domain.JobKindText, 1, 10, []bulktest.Reply{ok(bulktest.DescriptionsJSON)}, nil)
	f.store.AddVoice(domain.BrandVoice{ID: "v1", UserID: testUser, Name: "Playful", ToneAdjectives: []string{"witty"}})
	voiceID := "v1"
	job := &domain.Job{UserID: testUser, Kind: domain.JobKindText, TotalItems: 1, VoiceID: &voiceID}
	if err := f.store.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	ctx := WithLocale(context.Background(), "id")
	if _, err := f.proc.ProcessItem(ctx, testUser, job.ID, 0, domain.WorkItem{ProductName: "Mug"}); err != nil {
		t.Fatal(err)
	}
	prompt := f.text.Prompts[0]
	if !strings.Contains(prompt, `Brand Voice: "Playful"`) || !strings.Contains(prompt, "witty") {
		t.Fatalf("prompt missing voice block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Bahasa Indonesia") {
		t.Fatalf("prompt missing language instruction:\n%s", prompt)
	}
}

func jpeg(n int) domain.ImageInput {
	return domain.ImageInput{Filename: "a.jpg", MimeType: "image/jpeg", Data: make([]byte, n)}
}

func TestProcessImageItemSuccess(t *testing.T) {
	f := newFixture(t, domain.JobKindImage, 1, 5,
		[]bulktest.Reply{ok(bulktest.DescriptionsJSON)},
		[]bulktest.Reply{ok(bulktest.AttributesJSON)})

	res, err := f.proc.ProcessImageItem(context.Background(), testUser, f.job.ID, 0, jpeg(64))
	if err != nil {
		t.Fatalf("ProcessImageItem() error: %v", err)
	}
	if !res.Success || res.Extracted == nil || res.Extracted.ProductName != "Ceramic Mug" {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(f.text.Prompts[0], "Tone: Professional") || !strings.Contains(f.text.Prompts[0], "Product: Ceramic Mug") {
		t.Fatalf("prompt = %s", f.text.Prompts[0])
	}
	arts := f.store.Artifacts()
	if len(arts) != 1 || arts[0].Item.StoredTone() != "professional" || arts[0].SourceImageKey == "" {
		t.Fatalf("artifacts = %+v", arts)
	}
	if _, ok := f.images.Objects[arts[0].SourceImageKey]; !ok {
		t.Fatalf("image not stored under %q", arts[0].SourceImageKey)
	}
	if f.store.Usage[0].ActionType != domain.UsageBulkImageItem {
		t.Fatalf("usage = %+v", f.store.Usage)
	}
}

func TestProcessImageItemDefaultsExtracted(t *testing.T) {
	f := newFixture(t, domain.JobKindImage, 1, 5,
		[]bulktest.Reply{ok(bulktest.DescriptionsJSON)},
		[]bulktest.Reply{ok(`{"productName":"","category":"Toys"}`)})
	res, err := f.proc.ProcessImageItem(context.Background(), testUser, f.job.ID, 0, jpeg(8))
	if err != nil {
		t.Fatal(err)
	}
	want := domain.ExtractedAttributes{ProductName: "Unknown Product", Category: "Toys", Features: "N/A", Audience: "General consumers"}
	if res.Extracted == nil || *res.Extracted != want {
		t.Fatalf("extracted = %+v, want %+v", res.Extracted, want)
	}
}

func TestProcessImageItemFailures(t *testing.T) {
	tests := []struct {
		name    string
		vision  bulktest.Reply
		text    bulktest.Reply
		wantMsg string
	}{
		{name: "analysis unparseable", vision: ok("a mug"), text: ok(bulktest.DescriptionsJSON), wantMsg: MsgAnalysisFailed},
		{name: "analysis error", vision: bulktest.Reply{Err: errors.New("gemini down")}, text: ok(bulktest.DescriptionsJSON), wantMsg: MsgAnalysisFailed},
		{name: "analysis rate limited", vision: bulktest.Reply{Err: domain.ErrRateLimited}, text: ok(bulktest.DescriptionsJSON), wantMsg: MsgAnalysisFailed},
		{name: "generation rate limited", vision: ok(bulktest.AttributesJSON), text: bulktest.Reply{Err: textgen.ErrRateLimited}, wantMsg: MsgGenerationFailed},
		{name: "generation unparseable", vision: ok(bulktest.AttributesJSON), text: ok("nope"), wantMsg: MsgGenerationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, domain.JobKindImage, 1, 5, []bulktest.Reply{tc.text}, []bulktest.Reply{tc.vision})
			res, err := f.proc.ProcessImageItem(context.Background(), testUser, f.job.ID, 0, jpeg(8))
			if err != nil {
				t.Fatal(err)
			}
			if res.Success || res.Error != tc.wantMsg {
				t.Fatalf("result = %+v, want %q", res, tc.wantMsg)
			}
			if j := f.stored(t); j.ProcessedItems != 1 || j.FailedItems != 1 {
				t.Fatalf("counters = %d/%d", j.ProcessedItems, j.FailedItems)
			}
			if len(f.images.Objects) != 0 {
				t.Fatal("failed item must not store its image")
			}
		})
	}
}

func TestProcessImageItemRejectsInput(t *testing.T) {
	tests := []struct {
		name string
		img  domain.ImageInput
		want string
	}{
		{name: "empty", img: domain.ImageInput{MimeType: "image/png"}, want: MsgMissingImageRequest},
		{name: "gif", img: domain.ImageInput{MimeType: "image/gif", Data: []byte{1}}, want: MsgUnsupportedImage},
		{name: "too large", img: jpeg(DefaultMaxImageBytes + 1), want: "Image must be under 10MB"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, domain.JobKindImage, 1, 5, nil, nil)
			_, err := f.proc.ProcessImageItem(context.Background(), testUser, f.job.ID, 0, tc.img)
			if !errors.Is(err, domain.ErrInvalidArgument) || err.Error() != tc.want {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
			if j := f.stored(t); j.ProcessedItems != 0 {
				t.Fatal("rejected input must not touch counters")
			}
		})
	}
}

func TestProcessImageItemStorageFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, domain.JobKindImage, 1, 5,
		[]bulktest.Reply{ok(bulktest.DescriptionsJSON)},
		[]bulktest.Reply{ok(bulktest.AttributesJSON)})
	f.images.Err = errors.New("disk full")
	res, err := f.proc.ProcessImageItem(context.Background(), testUser, f.job.ID, 0, jpeg(8))
	if err != nil || !res.Success {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if key := f.store.Artifacts()[0].SourceImageKey; key != "" {
		t.Fatalf("source key = %q, want empty", key)
	}
}

func TestProcessItemKindMismatch(t *testing.T) {
	f := newFixture(t, domain.JobKindImage, 1, 5, nil, nil)
	if _, err := f.proc.ProcessItem(context.Background(), testUser, f.job.ID, 0, domain.WorkItem{ProductName: "Mug"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}
