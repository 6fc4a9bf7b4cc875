package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/hurttlocker/distill/internal/ingest"
)

func runIngest(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(cf.rest) == 0 {
		return fmt.Errorf("usage: distill ingest <path> [--domain <domain>]")
	}

	var paths []string
	domain := ""
	rest := cf.rest
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--domain" && i+1 < len(rest):
			i++
			domain = rest[i]
		case len(rest[i]) > 0 && rest[i][0] == '-':
			return fmt.Errorf("unknown flag: %s", rest[i])
		default:
			paths = append(paths, rest[i])
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no path specified")
	}

	p, err := openPipeline(cf.config)
	if err != nil {
		return err
	}
	defer p.Close()

	chunker, err := p.chunker()
	if err != nil {
		return err
	}
	engine := ingest.New(p.store, p.embedder, chunker, p.cfg.Extract.Concurrency)
	engine.Progress = func(o ingest.Outcome) {
		if o.Skipped {
			fmt.Printf("  unchanged %s\n", o.DocumentID)
			return
		}
		fmt.Printf("  ingested  %s (%d chunks)\n", o.DocumentID, o.Chunks)
	}

	var docs []ingest.Document
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			loaded, err := ingest.LoadDir(path)
			if err != nil {
				return err
			}
			docs = append(docs, loaded...)
		} else {
			doc, err := ingest.LoadFile(path, "")
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
	}
	if domain != "" {
		for i := range docs {
			docs[i].Domain = domain
		}
	}
	if len(docs) == 0 {
		return fmt.Errorf("no ingestable text files found")
	}

	ctx := context.Background()
	report, err := engine.IngestAll(ctx, docs)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("%s %d document(s): %d chunk(s) stored, %d unchanged\n",
		green("Ingested"), report.Documents-len(report.Failures), report.Chunks, report.Skipped)
	for _, f := range report.Failures {
		fmt.Printf("  %s %s: %v\n", red("failed"), f.DocumentID, f.Err)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d document(s) failed", len(report.Failures))
	}
	return nil
}
