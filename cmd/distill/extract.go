package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/hurttlocker/distill/internal/extract"
	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/retrieve"
)

func runExtract(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}

	var scopeArg, typeArg string
	byDocument := false
	rest := cf.rest
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--type" && i+1 < len(rest):
			i++
			typeArg = rest[i]
		case rest[i] == "--document":
			byDocument = true
		case len(rest[i]) > 0 && rest[i][0] == '-':
			return fmt.Errorf("unknown flag: %s", rest[i])
		case scopeArg == "":
			scopeArg = rest[i]
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}
	if scopeArg == "" {
		return fmt.Errorf("usage: distill extract <scope> [--document] [--type <fact-type>]")
	}

	scope := retrieve.Scope{Domain: scopeArg}
	if byDocument {
		scope = retrieve.Scope{DocumentID: scopeArg}
	}

	types := facttype.All()
	if typeArg != "" {
		ft := facttype.FactType(typeArg)
		if _, err := facttype.Lookup(ft); err != nil {
			return err
		}
		types = []facttype.FactType{ft}
	}

	p, err := openPipeline(cf.config)
	if err != nil {
		return err
	}
	defer p.Close()

	orch, err := p.orchestrator()
	if err != nil {
		return err
	}
	runner := extract.NewRunner(orch, p.store, p.cfg.Extract.Concurrency)

	requests := make([]extract.Request, len(types))
	for i, ft := range types {
		requests[i] = extract.Request{Scope: scope, FactType: ft}
	}

	report := runner.Run(context.Background(), requests)
	printBatchReport(report)

	if report.Succeeded < report.Requested {
		return fmt.Errorf("%d of %d extraction(s) failed", report.Requested-report.Succeeded, report.Requested)
	}
	return nil
}

func printBatchReport(report *extract.BatchReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	for _, r := range report.Results {
		fmt.Printf("%s %s (%d attempt(s))\n", green("✓"), bold(r.FactType), r.Attempts)
		fmt.Printf("  %s\n", r.Payload)
	}
	for _, f := range report.Failures {
		fmt.Printf("%s %s: %v\n", red("✗"), bold(string(f.FactType)), f.Err)
	}
	fmt.Printf("\n%d/%d succeeded\n", report.Succeeded, report.Requested)
}
