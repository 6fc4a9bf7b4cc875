// Package eval scores extracted facts against labeled expectations using
// set overlap under the same normalization the deduplicator applies, so
// "123 Main St" and "123 Main Street" count as the same answer.
package eval

import (
	"encoding/json"
	"fmt"

	"github.com/hurttlocker/distill/internal/dedupe"
	"github.com/hurttlocker/distill/internal/facttype"
)

// Sample pairs one scope and fact type with the expected payload.
type Sample struct {
	Scope    string            `json:"scope" yaml:"scope"`
	FactType facttype.FactType `json:"fact_type" yaml:"fact_type"`
	Expected json.RawMessage   `json:"expected" yaml:"expected"`
}

// Score holds precision, recall and F1 for one sample.
type Score struct {
	Scope     string            `json:"scope"`
	FactType  facttype.FactType `json:"fact_type"`
	Precision float64           `json:"precision"`
	Recall    float64           `json:"recall"`
	F1        float64           `json:"f1"`
	// Missing holds expected values not produced; Spurious the reverse.
	Missing  []string `json:"missing,omitempty"`
	Spurious []string `json:"spurious,omitempty"`
}

// Report aggregates per-sample scores with corpus-level means.
type Report struct {
	Samples       []Score `json:"samples"`
	MeanPrecision float64 `json:"mean_precision"`
	MeanRecall    float64 `json:"mean_recall"`
	MeanF1        float64 `json:"mean_f1"`
}

// Evaluate scores an actual payload against the expected one for a
// single sample. Both payloads must validate against the fact type's
// schema; values are compared as normalized sets.
func Evaluate(sample Sample, actual json.RawMessage) (Score, error) {
	spec, err := facttype.Lookup(sample.FactType)
	if err != nil {
		return Score{}, err
	}
	expected, err := payloadValues(spec, sample.Expected)
	if err != nil {
		return Score{}, fmt.Errorf("expected payload: %w", err)
	}
	got, err := payloadValues(spec, actual)
	if err != nil {
		return Score{}, fmt.Errorf("actual payload: %w", err)
	}

	kind := valueKind(sample.FactType)
	expSet := normalizedSet(expected, kind)
	gotSet := normalizedSet(got, kind)

	score := Score{Scope: sample.Scope, FactType: sample.FactType}

	// Both empty means the extractor correctly reported nothing.
	if len(expSet) == 0 && len(gotSet) == 0 {
		score.Precision, score.Recall, score.F1 = 1, 1, 1
		return score, nil
	}

	truePos := 0
	for norm := range gotSet {
		if _, ok := expSet[norm]; ok {
			truePos++
		} else {
			score.Spurious = append(score.Spurious, gotSet[norm])
		}
	}
	for norm := range expSet {
		if _, ok := gotSet[norm]; !ok {
			score.Missing = append(score.Missing, expSet[norm])
		}
	}

	if len(gotSet) > 0 {
		score.Precision = float64(truePos) / float64(len(gotSet))
	}
	if len(expSet) > 0 {
		score.Recall = float64(truePos) / float64(len(expSet))
	}
	if score.Precision+score.Recall > 0 {
		score.F1 = 2 * score.Precision * score.Recall / (score.Precision + score.Recall)
	}
	return score, nil
}

// Summarize folds per-sample scores into a report with macro averages.
func Summarize(scores []Score) Report {
	rep := Report{Samples: scores}
	if len(scores) == 0 {
		return rep
	}
	for _, s := range scores {
		rep.MeanPrecision += s.Precision
		rep.MeanRecall += s.Recall
		rep.MeanF1 += s.F1
	}
	n := float64(len(scores))
	rep.MeanPrecision /= n
	rep.MeanRecall /= n
	rep.MeanF1 /= n
	return rep
}

// payloadValues validates raw against the fact type's schema and flattens it
// into comparable strings.
func payloadValues(spec *facttype.Spec, raw json.RawMessage) ([]string, error) {
	if _, err := spec.ValidatePayload(raw); err != nil {
		return nil, err
	}
	return flatten(raw)
}

// flatten turns a payload object into a list of "field=value" strings,
// one per scalar, so every fact type compares the same way.
func flatten(raw json.RawMessage) ([]string, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	var out []string
	for key, val := range obj {
		switch v := val.(type) {
		case []any:
			for _, item := range v {
				out = append(out, fmt.Sprintf("%s=%v", key, item))
			}
		case nil:
			// absent optional field
		default:
			out = append(out, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return out, nil
}

func valueKind(ft facttype.FactType) dedupe.Kind {
	switch ft {
	case facttype.OfficeLocations, facttype.ContactInfo:
		return dedupe.KindAddress
	case facttype.Attorneys:
		return dedupe.KindName
	default:
		return dedupe.KindPlain
	}
}

func normalizedSet(values []string, kind dedupe.Kind) map[string]string {
	set := make(map[string]string, len(values))
	for _, v := range values {
		norm := dedupe.Normalize(v, kind)
		if norm == "" {
			continue
		}
		if _, ok := set[norm]; !ok {
			set[norm] = v
		}
	}
	return set
}
