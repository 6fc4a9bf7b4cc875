// Package extract runs schema-validated fact extraction over retrieved
// chunks. Each request is a small state machine: retrieve, prompt the
// model, validate the response against the fact type's schema, retry on
// validation failure up to a bound. A failed extraction is reported as a
// typed error, never converted into an empty result: "no fact found" is a
// valid schema-conformant answer, "extraction failed" is a taxonomy error.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/llm"
	"github.com/hurttlocker/distill/internal/retrieve"
	"github.com/hurttlocker/distill/internal/store"
)

// State names one phase of an extraction request.
type State string

const (
	StateRetrieving State = "RETRIEVING"
	StatePrompting  State = "PROMPTING"
	StateValidating State = "VALIDATING"
	StateRetrying   State = "RETRYING"
	StateSucceeded  State = "SUCCEEDED"
	StateFailed     State = "FAILED"
)

// Error kinds surfaced to batch reporting.
var (
	// ErrInsufficientContext: retrieval returned zero chunks. Not retried;
	// retrying identical inputs yields identical emptiness.
	ErrInsufficientContext = errors.New("insufficient context")
	// ErrSchemaValidation: model output stayed malformed after exhausting
	// the retry budget.
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrProviderTimeout: a model call exceeded its deadline. Counts
	// against the retry budget.
	ErrProviderTimeout = errors.New("provider timeout")
)

// FactError carries the error kind and the offending scope so a batch run
// can record and skip one (document, fact type) pair without aborting
// sibling work.
type FactError struct {
	Scope    retrieve.Scope
	FactType facttype.FactType
	Attempts int
	Err      error
}

func (e *FactError) Error() string {
	scope := e.Scope.Domain
	if e.Scope.DocumentID != "" {
		scope = e.Scope.DocumentID
	}
	return fmt.Sprintf("extracting %s from %s: %v", e.FactType, scope, e.Err)
}

func (e *FactError) Unwrap() error { return e.Err }

// Retriever is the slice of the retrieval engine the orchestrator needs.
type Retriever interface {
	Retrieve(ctx context.Context, scope retrieve.Scope, ft facttype.FactType, k int) ([]retrieve.Ranked, error)
}

// Options configures an Orchestrator.
type Options struct {
	RetryAttempts int           // total prompting attempts per request
	CallTimeout   time.Duration // per model call
}

// Orchestrator drives extraction requests through the state machine.
type Orchestrator struct {
	retriever Retriever
	provider  llm.Provider
	opts      Options
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(r Retriever, p llm.Provider, opts Options) *Orchestrator {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 2 * time.Minute
	}
	return &Orchestrator{retriever: r, provider: p, opts: opts}
}

// ExtractFact runs one extraction request to a terminal state. On success
// it returns an immutable ExtractionResult; on failure a *FactError whose
// kind distinguishes missing context, exhausted validation retries, and
// provider trouble. Retries reuse the retrieved context: re-retrieval
// with identical inputs cannot improve the evidence and would only add
// cost.
func (o *Orchestrator) ExtractFact(ctx context.Context, scope retrieve.Scope, ft facttype.FactType) (*store.ExtractionResult, error) {
	spec, err := facttype.Lookup(ft)
	if err != nil {
		return nil, err
	}

	// RETRIEVING
	ranked, err := o.retriever.Retrieve(ctx, scope, ft, spec.K)
	if err != nil {
		return nil, &FactError{Scope: scope, FactType: ft, Err: err}
	}
	if len(ranked) == 0 {
		return nil, &FactError{Scope: scope, FactType: ft, Err: ErrInsufficientContext}
	}

	texts := make([]string, len(ranked))
	chunkIDs := make([]int64, len(ranked))
	for i, r := range ranked {
		texts[i] = r.Chunk.Text
		chunkIDs[i] = r.Chunk.ID
	}
	prompt := spec.BuildPrompt(texts)

	// PROMPTING / VALIDATING / RETRYING
	var lastErr error
	attemptPrompt := prompt
	for attempt := 1; attempt <= o.opts.RetryAttempts; attempt++ {
		raw, err := o.generate(ctx, attemptPrompt, spec)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, &FactError{Scope: scope, FactType: ft, Attempts: attempt, Err: err}
			}
			continue
		}

		if _, err := spec.ValidatePayload([]byte(raw)); err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrSchemaValidation, err)
			// Retry with the validation error appended so the model can
			// correct its output.
			attemptPrompt = retryPrompt(prompt, err)
			continue
		}

		// SUCCEEDED
		return &store.ExtractionResult{
			Scope:       scopeKey(scope),
			FactType:    string(ft),
			Payload:     canonicalPayload(ft, []byte(raw)),
			Model:       o.provider.Name(),
			Attempts:    attempt,
			ChunkIDs:    chunkIDs,
			ExtractedAt: time.Now().UTC(),
		}, nil
	}

	// FAILED
	return nil, &FactError{Scope: scope, FactType: ft, Attempts: o.opts.RetryAttempts, Err: lastErr}
}

// generate runs one model call under the per-call timeout. A deadline
// overrun is reported as ErrProviderTimeout and counts as a failed
// attempt; the dispatched call is left to die on its own.
func (o *Orchestrator) generate(ctx context.Context, prompt string, spec *facttype.Spec) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	defer cancel()

	raw, err := o.provider.Generate(callCtx, facttype.SystemPrompt, prompt, spec.Schema)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %s call exceeded %s", ErrProviderTimeout, spec.Type, o.opts.CallTimeout)
		}
		return "", err
	}
	return raw, nil
}

// retryPrompt extends the base prompt with the previous attempt's
// validation failure.
func retryPrompt(base string, validationErr error) string {
	return fmt.Sprintf("%s\n\nYour previous response was rejected: %v\nReturn corrected JSON matching the schema.", base, validationErr)
}

func scopeKey(scope retrieve.Scope) string {
	if scope.DocumentID != "" {
		return scope.DocumentID
	}
	return scope.Domain
}
