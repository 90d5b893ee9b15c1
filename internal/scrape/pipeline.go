package scrape

import (
	"context"
	"log/slog"

	"github.com/webharvest/webharvest/internal/fetch"
	"github.com/webharvest/webharvest/internal/model"
)

// Exchange is the unit of work flowing through a scrape pipeline.
// Steps read what earlier steps produced and attach their own output.
type Exchange struct {
	// Request is the scrape being performed. Never nil.
	Request *ScrapeRequest

	// Result is the raw fetch outcome, set by the fetch step.
	Result *fetch.Result

	// Page accumulates the processed projections, set by the fetch
	// step and enriched by later steps.
	Page *model.ScrapedPage
}

// Step is one stage of a scrape pipeline.
// Steps are executed in sequence against a shared exchange.
//
// Design decision: We use an interface rather than function types because:
//  1. It allows steps to carry configuration state
//  2. It provides a Name() method for logging and debugging
//  3. It's more extensible for future features (e.g., per-step timing)
type Step interface {
	// Do executes the step. A returned error aborts the pipeline
	// unless it was configured to continue on error.
	Do(ctx context.Context, ex *Exchange) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline executes an ordered list of steps against one exchange.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails. The
	// default is to stop, because later steps depend on earlier
	// output (nothing to clean if the fetch failed).
	continueOnError bool
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps the pipeline running after a step fails.
// The first error is still returned after the remaining steps ran.
func WithContinueOnError(continueOnError bool) PipelineOption {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// NewPipeline creates an empty pipeline. Add steps with AddStep.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step. Steps run in the order they were added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs every step in sequence. Cancellation is checked
// between steps; steps handle their own timeouts internally.
func (p *Pipeline) Execute(ctx context.Context, ex *Exchange) error {
	var firstErr error

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(), "url", ex.Request.URL, "reason", ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step", "step", step.Name(), "url", ex.Request.URL)

		if err := step.Do(ctx, ex); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(), "url", ex.Request.URL, "error", err)
			if !p.continueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
