// Package guard is the facade feature services call instead of talking
// to a provider directly. It estimates a request, asks the meter engine
// for admission, reserves budget, invokes the provider call under a
// timeout, and settles the reservation with the call's actual usage. A
// failed call releases the reservation so the user is not charged.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tollgate-hq/tollgate/pkg/meter"
	"tollgate-hq/tollgate/pkg/meter/history"
	"tollgate-hq/tollgate/pkg/tokens"
)

// DefaultTimeout bounds a provider invocation when the request does not
// carry its own deadline.
const DefaultTimeout = 2 * time.Minute

// Request describes one metered call before it happens.
type Request struct {
	// UserID identifies whose budget the call charges.
	UserID string

	// ProviderID selects pricing, e.g. "openai:gpt-4o".
	ProviderID string

	// Operation names the feature making the call, e.g. "summarize".
	Operation string

	// Model is used for token estimation ratios.
	Model string

	// Prompt is the text whose tokens are estimated before the call.
	Prompt string

	// MaxTokens caps the completion estimate when positive.
	MaxTokens int

	// Metadata is attached to the usage record.
	Metadata map[string]string
}

// ProviderReport is what the invoked call reports back after it
// completes.
type ProviderReport struct {
	// Cost is the provider-reported cost in USD. Zero means unknown;
	// the guard then prices the actual token counts itself.
	Cost float64

	// InputTokens and OutputTokens are the true counts from the
	// provider response.
	InputTokens  int
	OutputTokens int
}

// Invoker performs the actual provider call. It runs only after
// admission is granted.
type Invoker func(ctx context.Context) (ProviderReport, error)

// Refusal is the error returned when admission is denied. The wrapped
// result carries the denial kind, reason, and any alternatives.
type Refusal struct {
	Result meter.AdmissionResult
}

func (r *Refusal) Error() string {
	return fmt.Sprintf("request refused: %s", r.Result.Reason)
}

// AsRefusal extracts a Refusal from an error chain.
func AsRefusal(err error) (*Refusal, bool) {
	var r *Refusal
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Outcome is the result of a completed guarded call.
type Outcome struct {
	// Record is the stored usage record.
	Record history.Record

	// EstimatedCost is what admission was checked against.
	EstimatedCost float64

	// ActualCost is what the user was actually charged.
	ActualCost float64

	// Warnings carries any budget warnings raised at admission time.
	Warnings []meter.Warning
}

// Guard wraps a meter engine and a token estimator.
type Guard struct {
	engine    *meter.Engine
	estimator tokens.Estimator
	timeout   time.Duration
	logger    *slog.Logger
}

// Options configures a Guard. Engine is required.
type Options struct {
	Engine *meter.Engine

	// Estimator defaults to the character-based estimator.
	Estimator tokens.Estimator

	// Timeout bounds each provider invocation; zero means
	// DefaultTimeout.
	Timeout time.Duration

	// Logger defaults to slog.Default with a component attribute.
	Logger *slog.Logger
}

// New creates a Guard from the given options.
func New(opts Options) (*Guard, error) {
	if opts.Engine == nil {
		return nil, errors.New("guard: engine is required")
	}
	est := opts.Estimator
	if est == nil {
		est = tokens.NewSimpleEstimator()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "guard")
	}
	return &Guard{
		engine:    opts.Engine,
		estimator: est,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Estimate returns the token and cost estimate for a request without
// checking admission or charging anything.
func (g *Guard) Estimate(req Request) (meter.TokenEstimate, float64) {
	promptTokens := g.estimator.EstimateText(req.Prompt, req.Model)
	est := meter.TokenEstimate{
		Input:  promptTokens,
		Output: g.estimator.EstimateCompletion(promptTokens, req.MaxTokens),
	}
	return est, g.engine.EstimateCost(req.ProviderID, est)
}

// Do runs one guarded provider call. A denied admission returns a
// *Refusal without invoking the call. A granted call reserves budget,
// invokes under a timeout, and commits the actual usage; if the invoker
// fails, the reservation is released and the user is charged nothing.
func (g *Guard) Do(ctx context.Context, req Request, invoke Invoker) (*Outcome, error) {
	est, _ := g.Estimate(req)

	res, result := g.engine.Reserve(req.UserID, req.ProviderID, req.Operation, est)
	if !result.Allowed {
		g.logger.Info("call refused",
			"user", req.UserID,
			"provider", req.ProviderID,
			"operation", req.Operation,
			"kind", string(result.Denial))
		return nil, &Refusal{Result: result}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	report, err := invoke(callCtx)
	if err != nil {
		g.engine.Release(res)
		g.logger.Warn("provider call failed, reservation released",
			"user", req.UserID,
			"provider", req.ProviderID,
			"operation", req.Operation,
			"error", err)
		return nil, fmt.Errorf("provider call: %w", err)
	}

	cost := report.Cost
	if cost == 0 {
		cost = g.engine.EstimateCost(req.ProviderID, meter.TokenEstimate{
			Input:  report.InputTokens,
			Output: report.OutputTokens,
		})
	}

	rec := g.engine.Commit(res, meter.Usage{
		Cost:         cost,
		InputTokens:  report.InputTokens,
		OutputTokens: report.OutputTokens,
		Model:        req.Model,
		Success:      true,
		Metadata:     req.Metadata,
	})

	return &Outcome{
		Record:        rec,
		EstimatedCost: result.EstimatedCost,
		ActualCost:    cost,
		Warnings:      result.Warnings,
	}, nil
}
