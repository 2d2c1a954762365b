package generation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/time/rate"

	"bananaart/internal/domain"
	"bananaart/internal/infra"
)

var errNoOutput = errors.New("model returned no usable output")

// Job is one queued generation run.
type Job struct {
	GenerationID string
	Prompt       string
	AspectRatio  string
	Images       []ImageRef
}

// OrchestratorOptions tunes the background run.
type OrchestratorOptions struct {
	ModelTimeout  time.Duration
	RatePerMinute int
}

// Orchestrator executes generation runs and records their terminal output.
type Orchestrator struct {
	generations domain.GenerationRepository
	composer    *Composer
	normalizer  *Normalizer
	store       ArtifactStore
	model       Model
	limiter     *rate.Limiter
	timeout     time.Duration
	logger      infra.Logger
}

// NewOrchestrator wires the run pipeline.
func NewOrchestrator(generations domain.GenerationRepository, store ArtifactStore, model Model, opts OrchestratorOptions, logger infra.Logger) *Orchestrator {
	timeout := opts.ModelTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), 1)
	}
	return &Orchestrator{
		generations: generations,
		composer:    NewComposer(store, logger),
		normalizer:  NewNormalizer(store),
		store:       store,
		model:       model,
		limiter:     limiter,
		timeout:     timeout,
		logger:      logger,
	}
}

// Run executes one job to completion. It never returns an error: any failure
// becomes the failure sentinel on the generation.
func (o *Orchestrator) Run(ctx context.Context, job Job) {
	log := o.logger.With().Str("generation_id", job.GenerationID).Logger()
	start := time.Now()

	output, err := o.execute(ctx, job)
	if err != nil {
		log.Error().Err(err).Msg("generation failed")
		output = domain.OutputFailed
	}

	// The terminal write must land even when ctx was cancelled mid-run.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.generations.Complete(writeCtx, job.GenerationID, output); err != nil {
		log.Error().Err(err).Str("output", output).Msg("record generation output")
		if output != domain.OutputFailed {
			if derr := o.store.Delete(writeCtx, output); derr != nil {
				log.Warn().Err(derr).Str("ref", output).Msg("remove unrecorded output")
			}
		}
		return
	}
	log.Info().
		Str("output", output).
		Int("images", len(job.Images)).
		Dur("took", time.Since(start)).
		Msg("generation finished")
}

func (o *Orchestrator) execute(ctx context.Context, job Job) (ref string, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("generation_id", job.GenerationID).
				Bytes("stack", debug.Stack()).
				Msg("generation panic")
			ref, err = "", fmt.Errorf("panic: %v", r)
		}
	}()

	if err := o.generations.MarkStarted(ctx, job.GenerationID); err != nil {
		return "", fmt.Errorf("mark started: %w", err)
	}
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for model slot: %w", err)
		}
	}

	req := o.composer.Compose(ctx, job.Prompt, job.AspectRatio, job.Images)

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	resp, err := o.model.Generate(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}

	ref, ok, err := o.normalizer.Normalize(ctx, resp)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errNoOutput
	}
	return ref, nil
}
