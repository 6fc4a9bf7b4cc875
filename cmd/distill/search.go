package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/retrieve"
)

func runSearch(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}

	var typeArg, domain, document string
	k := 0
	rest := cf.rest
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--domain" && i+1 < len(rest):
			i++
			domain = rest[i]
		case rest[i] == "--document" && i+1 < len(rest):
			i++
			document = rest[i]
		case rest[i] == "--k" && i+1 < len(rest):
			i++
			k, err = strconv.Atoi(rest[i])
			if err != nil {
				return fmt.Errorf("invalid --k value: %s", rest[i])
			}
		case len(rest[i]) > 0 && rest[i][0] == '-':
			return fmt.Errorf("unknown flag: %s", rest[i])
		case typeArg == "":
			typeArg = rest[i]
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}
	if typeArg == "" {
		return fmt.Errorf("usage: distill search <fact-type> [--domain <domain>] [--document <id>] [--k <n>]")
	}

	ft := facttype.FactType(typeArg)
	if _, err := facttype.Lookup(ft); err != nil {
		return err
	}

	p, err := openPipeline(cf.config)
	if err != nil {
		return err
	}
	defer p.Close()

	ranked, err := p.retriever.Retrieve(context.Background(), retrieve.Scope{
		Domain:     domain,
		DocumentID: document,
	}, ft, k)
	if err != nil {
		return err
	}
	if len(ranked) == 0 {
		fmt.Println("No chunks found. Ingest documents first with: distill ingest <path>")
		return nil
	}

	cyan := color.New(color.FgCyan).SprintFunc()
	for i, r := range ranked {
		fmt.Printf("%d. %s #%d  score=%.3f (sim=%.3f boost=%.2f)\n",
			i+1, cyan(r.Chunk.DocumentID), r.Chunk.Index, r.Score, r.Similarity, r.Boost)
		fmt.Printf("   %s\n", snippet(r.Chunk.Text, 160))
	}
	return nil
}

// snippet collapses whitespace and truncates to at most max runes,
// never splitting a multi-byte character.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "…"
}
