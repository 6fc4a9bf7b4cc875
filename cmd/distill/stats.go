package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
)

func runStats(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(cf.rest) != 1 {
		return fmt.Errorf("usage: distill stats <domain>")
	}
	domain := cf.rest[0]

	s, err := openStoreOnly(cf.config)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(context.Background(), domain)
	if err != nil {
		return err
	}
	if stats == nil {
		fmt.Printf("No corpus for %q. Run: distill ingest <path>\n", domain)
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s\n", bold(stats.Domain))
	fmt.Printf("  documents:       %d\n", stats.DocumentCount)
	fmt.Printf("  chunks:          %d\n", stats.ChunkCount)
	fmt.Printf("  address chunks:  %d\n", stats.AddressChunks)
	fmt.Printf("  contact chunks:  %d\n", stats.ContactChunks)
	fmt.Printf("  money chunks:    %d\n", stats.MoneyChunks)
	fmt.Printf("  updated:         %s\n", stats.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}
