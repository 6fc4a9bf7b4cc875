package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hurttlocker/distill/internal/mcp"
)

func runMCP(args []string) error {
	cf, err := parseCommon(args)
	if err != nil {
		return err
	}
	if len(cf.rest) != 0 {
		return fmt.Errorf("usage: distill mcp")
	}

	p, err := openPipeline(cf.config)
	if err != nil {
		return err
	}
	defer p.Close()

	// An unreachable LLM backend should not keep the read-only tools
	// from serving.
	orch, err := p.orchestrator()
	if err != nil {
		orch = nil
	}

	s := mcp.NewServer(mcp.ServerConfig{
		Store:        p.store,
		Retriever:    p.retriever,
		Orchestrator: orch,
		Version:      version,
	})
	return server.ServeStdio(s)
}
