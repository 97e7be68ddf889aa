package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avoronov/jobsift/internal/jobsource"
	"github.com/avoronov/jobsift/internal/textgen"

	"go.uber.org/zap"
)

type stubProvider struct {
	listings *jobsource.Listings
	err      error
	calls    int
}

func (s *stubProvider) FetchBatch(_ context.Context, _ *jobsource.SearchParams, _ int) (*jobsource.Listings, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.listings, nil
}

type stubGenerator struct {
	responses map[string]string
	fallback  string
	err       error
	calls     int
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	for title, response := range s.responses {
		if strings.Contains(prompt, "title: "+title) {
			return response, nil
		}
	}
	return s.fallback, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

func listing(url, title, description string) *jobsource.Listing {
	return &jobsource.Listing{
		Company:     "Acme",
		Title:       title,
		URL:         url,
		Description: description,
		PostedDate:  "2025-11-02",
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	provider := &stubProvider{listings: &jobsource.Listings{Items: []*jobsource.Listing{
		listing("u1", "Backend Engineer", "3 years Python, AWS"),
	}}}
	generator := &stubGenerator{fallback: `{"verdict":"yes","years_required":"3"}`}

	p := NewPipeline(provider, generator, &jobsource.SearchParams{Term: "python"}, "Python and AWS resume", nil, zap.NewNop())

	fresh := p.FetchNew(context.Background(), 0)
	if fresh.Len() != 1 {
		t.Fatalf("expected 1 fresh listing, got %d", fresh.Len())
	}

	rows, summary := Summarize(p.Evaluate(context.Background(), fresh))

	if summary.Evaluated != 1 || summary.Skipped != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.AIRecommendation != "yes" || row.Link != "u1" || row.YearsRequired != "3" {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.Company != "Acme" || row.Title != "Backend Engineer" || row.PostedDate != "2025-11-02" {
		t.Fatalf("listing fields not carried into row: %+v", row)
	}
}

func TestPipelineDedupIsIdempotent(t *testing.T) {
	batch := &jobsource.Listings{Items: []*jobsource.Listing{
		listing("u1", "Backend Engineer", "Python"),
		listing("u2", "Platform Engineer", "Go"),
	}}
	provider := &stubProvider{listings: batch}
	generator := &stubGenerator{fallback: `{"verdict":"maybe","years_required":"unspecified"}`}

	p := NewPipeline(provider, generator, &jobsource.SearchParams{}, "", nil, zap.NewNop())

	first := p.FetchNew(context.Background(), 0)
	rows, _ := Summarize(p.Evaluate(context.Background(), first))
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows on first pass, got %d", len(rows))
	}

	// Unchanged provider batch: everything is filtered the second time.
	second := p.FetchNew(context.Background(), 0)
	if second.Len() != 0 {
		t.Fatalf("expected 0 fresh listings on second pass, got %d", second.Len())
	}

	rows, _ = Summarize(p.Evaluate(context.Background(), second))
	if len(rows) != 0 {
		t.Fatalf("expected 0 new rows on second pass, got %d", len(rows))
	}
}

func TestPipelineSeedsSeenFromPersistedLinks(t *testing.T) {
	provider := &stubProvider{listings: &jobsource.Listings{Items: []*jobsource.Listing{
		listing("u1", "Backend Engineer", "Python"),
		listing("u2", "Platform Engineer", "Go"),
	}}}
	generator := &stubGenerator{fallback: `{"verdict":"yes","years_required":"2"}`}

	seen := map[string]struct{}{"u1": {}}
	p := NewPipeline(provider, generator, &jobsource.SearchParams{}, "", seen, zap.NewNop())

	fresh := p.FetchNew(context.Background(), 0)
	if fresh.Len() != 1 || fresh.Items[0].URL != "u2" {
		t.Fatalf("expected only u2 to survive dedup, got %d items", fresh.Len())
	}
}

func TestPipelineProviderFailureDegradesToEmptyBatch(t *testing.T) {
	provider := &stubProvider{err: &jobsource.ProviderError{Op: "fetch listings", Err: errors.New("boom")}}
	generator := &stubGenerator{fallback: `{"verdict":"yes","years_required":"2"}`}

	p := NewPipeline(provider, generator, &jobsource.SearchParams{}, "", nil, zap.NewNop())

	fresh := p.FetchNew(context.Background(), 0)
	if fresh.Len() != 0 {
		t.Fatalf("expected empty batch on provider failure, got %d", fresh.Len())
	}

	if generator.calls != 0 {
		t.Fatalf("generator must not be called for an empty batch")
	}
}

func TestPipelineSkipsListingOnBackendExhaustion(t *testing.T) {
	provider := &stubProvider{listings: &jobsource.Listings{Items: []*jobsource.Listing{
		listing("u1", "Backend Engineer", "Python"),
	}}}
	generator := &stubGenerator{err: &textgen.BackendError{Status: 500, Message: "down"}}

	p := NewPipeline(provider, generator, &jobsource.SearchParams{}, "", nil, zap.NewNop())

	outcomes := p.Evaluate(context.Background(), p.FetchNew(context.Background(), 0))

	if len(outcomes) != 1 || !outcomes[0].Skipped {
		t.Fatalf("expected a single skipped outcome, got %+v", outcomes)
	}

	if outcomes[0].Reason == "" {
		t.Fatalf("expected skip reason to be recorded")
	}

	// Skipped listings stay unseen so a later run can retry them.
	fresh := p.FetchNew(context.Background(), 0)
	if fresh.Len() != 1 {
		t.Fatalf("expected failed listing to remain fetchable, got %d", fresh.Len())
	}
}

func TestPipelineOneBadListingDoesNotAbortBatch(t *testing.T) {
	provider := &stubProvider{listings: &jobsource.Listings{Items: []*jobsource.Listing{
		listing("u1", "Backend Engineer", "Python"),
		listing("u2", "Platform Engineer", "Go"),
	}}}
	generator := &stubGenerator{
		responses: map[string]string{
			"Backend Engineer":  "not json at all",
			"Platform Engineer": `{"verdict":"yes","years_required":"2"}`,
		},
	}

	p := NewPipeline(provider, generator, &jobsource.SearchParams{}, "", nil, zap.NewNop())

	rows, summary := Summarize(p.Evaluate(context.Background(), p.FetchNew(context.Background(), 0)))

	if summary.Skipped != 1 || summary.Evaluated != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	if len(rows) != 1 || rows[0].Link != "u2" {
		t.Fatalf("expected only the good listing to produce a row, got %+v", rows)
	}
}

func TestPipelineFiltersDuplicateWithinBatch(t *testing.T) {
	provider := &stubProvider{listings: &jobsource.Listings{Items: []*jobsource.Listing{
		listing("u1", "Backend Engineer", "Python"),
		listing("u1", "Backend Engineer", "Python"),
	}}}
	generator := &stubGenerator{fallback: `{"verdict":"yes","years_required":"2"}`}

	p := NewPipeline(provider, generator, &jobsource.SearchParams{}, "", nil, zap.NewNop())

	outcomes := p.Evaluate(context.Background(), p.FetchNew(context.Background(), 0))

	evaluated := 0
	for _, outcome := range outcomes {
		if !outcome.Skipped {
			evaluated++
		}
	}
	if evaluated != 1 {
		t.Fatalf("expected a single evaluation for duplicated url, got %d", evaluated)
	}

	if generator.calls != 1 {
		t.Fatalf("expected 1 generator call, got %d", generator.calls)
	}
}
