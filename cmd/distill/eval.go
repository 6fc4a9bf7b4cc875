package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/hurttlocker/distill/internal/eval"
)

func runEval(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(cf.rest) != 1 {
		return fmt.Errorf("usage: distill eval <samples.json>")
	}

	data, err := os.ReadFile(cf.rest[0])
	if err != nil {
		return fmt.Errorf("reading samples: %w", err)
	}
	var samples []eval.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return fmt.Errorf("parsing samples: %w", err)
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples in %s", cf.rest[0])
	}

	s, err := openStoreOnly(cf.config)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	var scores []eval.Score
	skipped := 0
	for _, sample := range samples {
		r, err := s.LatestResult(ctx, sample.Scope, string(sample.FactType))
		if err != nil {
			return err
		}
		if r == nil {
			skipped++
			continue
		}
		score, err := eval.Evaluate(sample, r.Payload)
		if err != nil {
			return fmt.Errorf("scoring %s/%s: %w", sample.Scope, sample.FactType, err)
		}
		scores = append(scores, score)
	}

	report := eval.Summarize(scores)

	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	for _, sc := range report.Samples {
		fmt.Printf("%s %s  P=%.2f R=%.2f F1=%.2f\n", bold(sc.Scope), sc.FactType, sc.Precision, sc.Recall, sc.F1)
		for _, m := range sc.Missing {
			fmt.Printf("  %s %s\n", yellow("missing"), m)
		}
		for _, sp := range sc.Spurious {
			fmt.Printf("  %s %s\n", yellow("spurious"), sp)
		}
	}
	fmt.Printf("\n%d sample(s) scored", len(scores))
	if skipped > 0 {
		fmt.Printf(", %d skipped (no stored result)", skipped)
	}
	fmt.Printf("\nmean: P=%.3f R=%.3f F1=%.3f\n", report.MeanPrecision, report.MeanRecall, report.MeanF1)
	return nil
}
