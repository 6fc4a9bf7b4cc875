package main

import (
	"fmt"
	"time"

	"github.com/hurttlocker/distill/internal/chunk"
	"github.com/hurttlocker/distill/internal/config"
	"github.com/hurttlocker/distill/internal/embed"
	"github.com/hurttlocker/distill/internal/extract"
	"github.com/hurttlocker/distill/internal/llm"
	"github.com/hurttlocker/distill/internal/retrieve"
	"github.com/hurttlocker/distill/internal/store"
)

// pipeline bundles the wired components a subcommand needs. Close must
// be called when done.
type pipeline struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	embedder  *embed.Client
	retriever *retrieve.Retriever
}

func openPipeline(opts config.Options) (*pipeline, error) {
	cfg, err := config.Resolve(opts)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(store.Config{DBPath: cfg.DBPath})
	if err != nil {
		return nil, err
	}

	embedCfg, err := embed.ParseProviderFlag(cfg.Embed.Provider, cfg.Embed.Endpoint, cfg.Embed.APIKey)
	if err != nil {
		s.Close()
		return nil, err
	}
	embedder, err := embed.NewClient(embedCfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	return &pipeline{
		cfg:       cfg,
		store:     s,
		embedder:  embedder,
		retriever: retrieve.New(s, embedder, cfg.Retrieve.BoostWeight),
	}, nil
}

func (p *pipeline) Close() error {
	return p.store.Close()
}

// orchestrator wires the LLM provider lazily so read-only commands never
// require one.
func (p *pipeline) orchestrator() (*extract.Orchestrator, error) {
	llmCfg, err := llm.ParseFlag(p.cfg.LLM.Provider)
	if err != nil {
		return nil, err
	}
	llmCfg.Endpoint = p.cfg.LLM.Endpoint
	llmCfg.APIKey = p.cfg.LLM.APIKey
	llmCfg.Temperature = p.cfg.Extract.Temperature
	llmCfg.Seed = p.cfg.Extract.Seed

	provider, err := llm.New(llmCfg)
	if err != nil {
		return nil, err
	}

	return extract.NewOrchestrator(p.retriever, provider, extract.Options{
		RetryAttempts: p.cfg.Extract.RetryAttempts,
		CallTimeout:   time.Duration(p.cfg.Extract.CallTimeoutS) * time.Second,
	}), nil
}

func (p *pipeline) chunker() (*chunk.Chunker, error) {
	c, err := chunk.New(p.cfg.Chunk.Size, p.cfg.Chunk.Overlap)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}
	return c, nil
}
