// Package evaluation runs job listings through a text-generation backend and
// turns the responses into persisted result rows. A run processes exactly one
// fetched batch at the configured offset; deeper pagination is done by
// re-running with a larger offset, which the seen-url dedup makes cheap.
package evaluation

import (
	"context"
	"errors"

	"github.com/avoronov/jobsift/internal/jobsource"
	"github.com/avoronov/jobsift/internal/logger"
	"github.com/avoronov/jobsift/internal/store"
	"github.com/avoronov/jobsift/internal/textgen"

	"go.uber.org/zap"
)

const maxRawLogLength = 400

// Provider returns one batch of listings per call.
type Provider interface {
	FetchBatch(ctx context.Context, params *jobsource.SearchParams, offset int) (*jobsource.Listings, error)
}

// Outcome is the per-listing result: either an evaluated row or a skip with
// its reason. One bad listing never aborts the batch.
type Outcome struct {
	Listing *jobsource.Listing
	Row     *store.Row
	Skipped bool
	Reason  string
}

// Summary counts what happened to a batch.
type Summary struct {
	Evaluated int
	Skipped   int
}

type Pipeline struct {
	provider  Provider
	generator textgen.Generator
	params    *jobsource.SearchParams
	resume    string
	seen      map[string]struct{}
	logger    *zap.Logger
}

// NewPipeline builds a pipeline. The seen set seeds dedup with links already
// persisted; the pipeline owns its copy for the duration of the run.
func NewPipeline(provider Provider, generator textgen.Generator, params *jobsource.SearchParams, resumeText string, seen map[string]struct{}, log *zap.Logger) *Pipeline {
	owned := make(map[string]struct{}, len(seen))
	for url := range seen {
		owned[url] = struct{}{}
	}

	return &Pipeline{
		provider:  provider,
		generator: generator,
		params:    params,
		resume:    resumeText,
		seen:      owned,
		logger:    log,
	}
}

// FetchNew requests the batch at the given offset and filters out listings
// already seen. A provider failure degrades to an empty batch and is logged
// rather than propagated.
func (p *Pipeline) FetchNew(ctx context.Context, offset int) *jobsource.Listings {
	batch, err := p.provider.FetchBatch(ctx, p.params, offset)
	if err != nil {
		p.logger.Error("fetching listings failed, continuing with empty batch", zap.Error(err))
		return &jobsource.Listings{}
	}

	fresh := &jobsource.Listings{}
	duplicates := 0
	for _, listing := range batch.Items {
		if _, ok := p.seen[listing.URL]; ok {
			duplicates++
			continue
		}
		fresh.Items = append(fresh.Items, listing)
	}

	p.logger.Info("fetched listings",
		zap.Int("offset", offset),
		zap.Int("count", batch.Len()),
		zap.Int("duplicates", duplicates),
		zap.Int("new", fresh.Len()),
	)

	return fresh
}

// Evaluate runs each listing through the backend sequentially. Successful
// listings are marked seen; skipped ones are not, so a later run can retry
// them.
func (p *Pipeline) Evaluate(ctx context.Context, listings *jobsource.Listings) []*Outcome {
	outcomes := make([]*Outcome, 0, listings.Len())

	for _, listing := range listings.Items {
		if _, ok := p.seen[listing.URL]; ok {
			continue
		}

		outcome := p.evaluateOne(ctx, listing)
		if !outcome.Skipped {
			p.seen[listing.URL] = struct{}{}
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (p *Pipeline) evaluateOne(ctx context.Context, listing *jobsource.Listing) *Outcome {
	prompt := RenderPrompt(listing, p.resume)

	raw, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		p.logger.Error("model call failed after retries",
			zap.String("url", listing.URL),
			zap.String("title", listing.Title),
			zap.Error(err),
		)
		return &Outcome{Listing: listing, Skipped: true, Reason: err.Error()}
	}

	assessment, err := ParseVerdict(raw)
	if err != nil {
		fields := []zap.Field{
			zap.String("url", listing.URL),
			zap.String("title", listing.Title),
			zap.Error(err),
		}
		var formatErr *ResponseFormatError
		if errors.As(err, &formatErr) {
			fields = append(fields, zap.String("raw_response", logger.TruncateForLog(formatErr.Raw, maxRawLogLength)))
		}
		p.logger.Error("skipping listing with unusable response", fields...)
		return &Outcome{Listing: listing, Skipped: true, Reason: err.Error()}
	}

	return &Outcome{
		Listing: listing,
		Row: &store.Row{
			AIRecommendation: assessment.Verdict,
			Company:          listing.Company,
			Title:            listing.Title,
			Link:             listing.URL,
			YearsRequired:    assessment.YearsRequired,
			Description:      listing.Description,
			PostedDate:       listing.PostedDate,
		},
	}
}

// Summarize splits outcomes into persistable rows and counters.
func Summarize(outcomes []*Outcome) ([]*store.Row, Summary) {
	rows := make([]*store.Row, 0, len(outcomes))
	var summary Summary

	for _, outcome := range outcomes {
		if outcome.Skipped {
			summary.Skipped++
			continue
		}
		summary.Evaluated++
		rows = append(rows, outcome.Row)
	}

	return rows, summary
}
