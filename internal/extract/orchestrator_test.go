package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/retrieve"
	"github.com/hurttlocker/distill/internal/store"
)

// stubRetriever returns canned chunks and counts calls.
type stubRetriever struct {
	chunks []retrieve.Ranked
	err    error
	calls  int
}

func (s *stubRetriever) Retrieve(ctx context.Context, scope retrieve.Scope, ft facttype.FactType, k int) ([]retrieve.Ranked, error) {
	s.calls++
	return s.chunks, s.err
}

// stubProvider returns responses in sequence and counts calls.
type stubProvider struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
	lastCtx   context.Context
}

func (s *stubProvider) Generate(ctx context.Context, system, prompt string, schema json.RawMessage) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.lastCtx = ctx
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("stub exhausted")
}

func (s *stubProvider) Name() string { return "stub/model" }

// slowProvider never answers before the per-call deadline.
type slowProvider struct {
	calls int
}

func (s *slowProvider) Generate(ctx context.Context, system, prompt string, schema json.RawMessage) (string, error) {
	s.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *slowProvider) Name() string { return "slow/model" }

func someChunks() []retrieve.Ranked {
	return []retrieve.Ranked{
		{Chunk: store.Chunk{ID: 11, Text: "Our office: 123 Main Street, Springfield, IL 62701"}},
		{Chunk: store.Chunk{ID: 12, Text: "Visit us downtown"}},
	}
}

func TestExtractFactSucceedsFirstAttempt(t *testing.T) {
	r := &stubRetriever{chunks: someChunks()}
	p := &stubProvider{responses: []string{`{"offices": ["123 Main Street, Springfield, IL 62701"]}`}}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 3, CallTimeout: time.Second})

	result, err := o.ExtractFact(context.Background(), retrieve.Scope{Domain: "137law.com"}, facttype.OfficeLocations)
	if err != nil {
		t.Fatalf("ExtractFact: %v", err)
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts)
	}
	if result.Scope != "137law.com" {
		t.Errorf("scope = %q", result.Scope)
	}
	if result.FactType != "office_locations" {
		t.Errorf("fact type = %q", result.FactType)
	}
	if len(result.ChunkIDs) != 2 || result.ChunkIDs[0] != 11 {
		t.Errorf("chunk ids = %v", result.ChunkIDs)
	}
	if result.Model != "stub/model" {
		t.Errorf("model = %q", result.Model)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
}

func TestExtractFactRetriesThenSucceeds(t *testing.T) {
	r := &stubRetriever{chunks: someChunks()}
	p := &stubProvider{responses: []string{
		`not json at all`,
		`{"wrong_key": []}`,
		`{"offices": []}`,
	}}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 3, CallTimeout: time.Second})

	result, err := o.ExtractFact(context.Background(), retrieve.Scope{Domain: "137law.com"}, facttype.OfficeLocations)
	if err != nil {
		t.Fatalf("ExtractFact: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", result.Attempts)
	}
	// Retrieval happens once; retries reuse the same context.
	if r.calls != 1 {
		t.Errorf("retriever calls = %d, want 1", r.calls)
	}

	// Retries after a rejected response carry the validation failure back
	// to the model; the first attempt does not.
	if len(p.prompts) != 3 {
		t.Fatalf("prompts recorded = %d", len(p.prompts))
	}
	if strings.Contains(p.prompts[0], "rejected") {
		t.Errorf("first prompt already carries a rejection hint:\n%s", p.prompts[0])
	}
	for i, prompt := range p.prompts[1:] {
		if !strings.Contains(prompt, "rejected") {
			t.Errorf("retry prompt %d has no rejection hint:\n%s", i+2, prompt)
		}
	}
}

func TestExtractFactFailsAfterBudget(t *testing.T) {
	r := &stubRetriever{chunks: someChunks()}
	p := &stubProvider{responses: []string{`bad`, `worse`, `still bad`, `never reached`}}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 3, CallTimeout: time.Second})

	_, err := o.ExtractFact(context.Background(), retrieve.Scope{Domain: "137law.com"}, facttype.OfficeLocations)
	if err == nil {
		t.Fatal("expected failure")
	}
	var fe *FactError
	if !errors.As(err, &fe) {
		t.Fatalf("error type %T", err)
	}
	if fe.Attempts != 3 {
		t.Errorf("attempts = %d, want exactly the retry budget", fe.Attempts)
	}
	if !errors.Is(err, ErrSchemaValidation) {
		t.Errorf("error %v should wrap ErrSchemaValidation", err)
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want exactly 3", p.calls)
	}
}

func TestExtractFactInsufficientContext(t *testing.T) {
	r := &stubRetriever{chunks: nil}
	p := &stubProvider{}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 3, CallTimeout: time.Second})

	_, err := o.ExtractFact(context.Background(), retrieve.Scope{Domain: "empty.com"}, facttype.OfficeLocations)
	if !errors.Is(err, ErrInsufficientContext) {
		t.Fatalf("error = %v, want ErrInsufficientContext", err)
	}
	if p.calls != 0 {
		t.Errorf("provider calls = %d, want 0 (no model call without context)", p.calls)
	}
}

func TestExtractFactProviderErrorsCountAgainstBudget(t *testing.T) {
	r := &stubRetriever{chunks: someChunks()}
	p := &stubProvider{
		errs:      []error{errors.New("connection refused"), nil},
		responses: []string{"", `{"offices": []}`},
	}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 3, CallTimeout: time.Second})

	result, err := o.ExtractFact(context.Background(), retrieve.Scope{Domain: "137law.com"}, facttype.OfficeLocations)
	if err != nil {
		t.Fatalf("ExtractFact: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("attempts = %d, want 2 (transport error burned one)", result.Attempts)
	}
}

func TestExtractFactTimeoutCountsAgainstBudget(t *testing.T) {
	r := &stubRetriever{chunks: someChunks()}
	p := &slowProvider{}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 2, CallTimeout: 10 * time.Millisecond})

	_, err := o.ExtractFact(context.Background(), retrieve.Scope{Domain: "137law.com"}, facttype.OfficeLocations)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("error %v should wrap ErrProviderTimeout", err)
	}
	var fe *FactError
	if !errors.As(err, &fe) {
		t.Fatalf("error type %T", err)
	}
	if fe.Attempts != 2 {
		t.Errorf("attempts = %d, want the full retry budget", fe.Attempts)
	}
	if p.calls != 2 {
		t.Errorf("provider calls = %d, want one per attempt", p.calls)
	}
}

func TestExtractFactParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &stubRetriever{chunks: someChunks()}
	p := &stubProvider{errs: []error{context.Canceled}}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 3, CallTimeout: time.Second})

	_, err := o.ExtractFact(ctx, retrieve.Scope{Domain: "137law.com"}, facttype.OfficeLocations)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (no retries after parent cancel)", p.calls)
	}
}

func TestBatchRunIsolatesFailures(t *testing.T) {
	r := &stubRetriever{chunks: someChunks()}
	p := &stubProvider{responses: []string{`{"offices": []}`, `{` /* malformed forever */, `{`, `{`}}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 3, CallTimeout: time.Second})
	runner := NewRunner(o, nil, 1)

	report := runner.Run(context.Background(), []Request{
		{Scope: retrieve.Scope{Domain: "137law.com"}, FactType: facttype.OfficeLocations},
		{Scope: retrieve.Scope{Domain: "137law.com"}, FactType: facttype.PracticeAreas},
	})

	if report.Requested != 2 {
		t.Errorf("requested = %d", report.Requested)
	}
	if report.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", report.Succeeded)
	}
	if len(report.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(report.Failures))
	}
	if report.Failures[0].FactType != facttype.PracticeAreas {
		t.Errorf("failed fact type = %s", report.Failures[0].FactType)
	}
}

func TestBatchRunPersistsResults(t *testing.T) {
	s, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	r := &stubRetriever{chunks: someChunks()}
	p := &stubProvider{responses: []string{`{"offices": ["123 Main Street"]}`}}
	o := NewOrchestrator(r, p, Options{RetryAttempts: 1, CallTimeout: time.Second})
	runner := NewRunner(o, s, 1)

	report := runner.Run(context.Background(), []Request{
		{Scope: retrieve.Scope{Domain: "137law.com"}, FactType: facttype.OfficeLocations},
	})
	if report.Succeeded != 1 {
		t.Fatalf("succeeded = %d: %v", report.Succeeded, report.Failures)
	}

	saved, err := s.LatestResult(context.Background(), "137law.com", "office_locations")
	if err != nil {
		t.Fatal(err)
	}
	if saved == nil {
		t.Fatal("result not persisted")
	}
	var payload facttype.OfficesPayload
	if err := json.Unmarshal(saved.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.Offices) != 1 || payload.Offices[0] != "123 Main Street" {
		t.Errorf("payload = %s", saved.Payload)
	}
}
