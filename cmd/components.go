/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/josephgoksu/LinkWing/internal/disambig"
	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/josephgoksu/LinkWing/internal/linking"
	"github.com/josephgoksu/LinkWing/internal/llm"
	"github.com/josephgoksu/LinkWing/types"
)

// components is the wired linking engine shared by the CLI surfaces.
type components struct {
	store     knowledge.EntityStore
	fileStore *knowledge.FileStore   // non-nil only for the file backend
	records   *knowledge.SQLiteStore // non-nil only for the sqlite backend
	index     *linking.Index
	session   *linking.Session
	cfg       *types.AppConfig
}

// newContext builds a fresh per-document session context.
func (c *components) newContext() (*linking.Context, error) {
	return linking.ContextFromConfig(c.cfg.Linking)
}

func (c *components) close() {
	if err := c.store.Close(); err != nil {
		slog.Warn("closing entity store", "err", err)
	}
}

// buildComponents opens the configured backend, loads the index, and
// wires the session pipeline. withLLM controls whether the external
// disambiguator is constructed; read-only commands skip it.
func buildComponents(ctx context.Context, withLLM bool) (*components, error) {
	cfg := GetConfig()

	c := &components{cfg: cfg}
	switch cfg.Knowledge.Backend {
	case "sqlite":
		store, err := knowledge.NewSQLiteStore(cfg.Knowledge.Database)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", cfg.Knowledge.Database, err)
		}
		c.store = store
		c.records = store
	default:
		store, err := knowledge.NewFileStore(nil, cfg.Knowledge.File)
		if err != nil {
			return nil, fmt.Errorf("open file store %s: %w", cfg.Knowledge.File, err)
		}
		c.store = store
		c.fileStore = store
	}

	entities, err := c.store.ListAll(ctx)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("load entities: %w", err)
	}
	c.index = linking.NewIndex()
	n := c.index.Rebuild(entities)
	slog.Debug("index loaded", "entities", n, "backend", cfg.Knowledge.Backend)

	var d linking.Disambiguator
	timeout := time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second
	if withLLM && cfg.Linking.EnableExternalFallback {
		adapter, err := buildDisambiguator(ctx, cfg)
		if err != nil {
			c.close()
			return nil, err
		}
		d = adapter
	}

	engine := linking.NewEngine(linking.NewScorer(), d, timeout)
	c.session = linking.NewSession(
		linking.NewGenerator(c.index),
		engine,
		c.store,
		linking.OptionsFromConfig(cfg.Linking.Candidates),
	)
	return c, nil
}

// buildDisambiguator constructs the LLM adapter from config, resolving
// the API key from provider-specific env vars when unset.
func buildDisambiguator(ctx context.Context, cfg *types.AppConfig) (*disambig.Adapter, error) {
	provider, err := llm.ValidateProvider(cfg.LLM.Provider)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	apiKey := cfg.LLM.APIKey
	if apiKey == "" {
		switch provider {
		case llm.ProviderOpenAI:
			apiKey = os.Getenv("OPENAI_API_KEY")
		case llm.ProviderAnthropic:
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		case llm.ProviderGemini:
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	adapter, err := disambig.New(ctx, llm.Config{
		Provider: provider,
		Model:    cfg.LLM.Model,
		APIKey:   apiKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create disambiguator: %w", err)
	}
	return adapter, nil
}
