package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/hurttlocker/distill/internal/config"
	"github.com/hurttlocker/distill/internal/facttype"
	"github.com/hurttlocker/distill/internal/store"
)

func runFacts(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}

	var scope, typeArg string
	rest := cf.rest
	for i := 0; i < len(rest); i++ {
		switch {
		case rest[i] == "--type" && i+1 < len(rest):
			i++
			typeArg = rest[i]
		case len(rest[i]) > 0 && rest[i][0] == '-':
			return fmt.Errorf("unknown flag: %s", rest[i])
		case scope == "":
			scope = rest[i]
		default:
			return fmt.Errorf("unexpected argument: %s", rest[i])
		}
	}
	if scope == "" {
		return fmt.Errorf("usage: distill facts <scope> [--type <fact-type>]")
	}

	types := facttype.All()
	if typeArg != "" {
		ft := facttype.FactType(typeArg)
		if _, err := facttype.Lookup(ft); err != nil {
			return err
		}
		types = []facttype.FactType{ft}
	}

	s, err := openStoreOnly(cf.config)
	if err != nil {
		return err
	}
	defer s.Close()

	bold := color.New(color.Bold).SprintFunc()
	ctx := context.Background()
	found := 0
	for _, ft := range types {
		r, err := s.LatestResult(ctx, scope, string(ft))
		if err != nil {
			return err
		}
		if r == nil {
			continue
		}
		found++
		fmt.Printf("%s (%s, %d attempt(s), %s)\n", bold(r.FactType), r.Model, r.Attempts,
			r.ExtractedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("  %s\n", r.Payload)
	}
	if found == 0 {
		fmt.Printf("No facts stored for %q. Run: distill extract %s\n", scope, scope)
	}
	return nil
}

// openStoreOnly opens just the database, for commands that never embed
// or prompt.
func openStoreOnly(opts config.Options) (*store.SQLiteStore, error) {
	cfg, err := config.Resolve(opts)
	if err != nil {
		return nil, err
	}
	return store.Open(store.Config{DBPath: cfg.DBPath})
}
