package main

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/synthpop/internal/categorizer"
	"github.com/sells-group/synthpop/internal/config"
	"github.com/sells-group/synthpop/internal/draw"
	"github.com/sells-group/synthpop/internal/fetcher"
	"github.com/sells-group/synthpop/internal/ipf"
	"github.com/sells-group/synthpop/internal/ipu"
	"github.com/sells-group/synthpop/internal/recipe"
	"github.com/sells-group/synthpop/internal/store"
	"github.com/sells-group/synthpop/internal/synth"
)

// buildRecipe constructs the configured input source.
func buildRecipe(ctx context.Context, cfg *config.Config) (synth.Recipe, error) {
	switch cfg.Recipe.Source {
	case "csv":
		return recipe.OpenCSV(ctx, cfg.Recipe.Dir)
	case "http":
		if cfg.Recipe.BaseURL == "" {
			return nil, eris.New("recipe.base_url is required for the http recipe")
		}
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Recipe.UserAgent,
			RateLimit: rate.Limit(cfg.Recipe.RateLimit),
			Burst:     int(cfg.Recipe.RateLimit),
		})
		return recipe.NewHTTP(cfg.Recipe.BaseURL, f), nil
	default:
		return nil, eris.Errorf("unknown recipe source %q", cfg.Recipe.Source)
	}
}

// buildSynthesizer wires the solvers into a Synthesizer.
func buildSynthesizer(cfg *config.Config, maxGeogs int) *synth.Synthesizer {
	return synth.New(ipf.New(), categorizer.Tabulator{}, ipu.New(), draw.Drawer{}, synth.Options{
		MarginalZeroSub: cfg.Synthesis.MarginalZeroSub,
		JDZeroSub:       cfg.Synthesis.JDZeroSub,
		MaxIterations:   cfg.Synthesis.MaxIterations,
		Seed:            cfg.Synthesis.Seed,
		Workers:         cfg.Synthesis.Workers,
		MaxGeographies:  maxGeogs,
	})
}

// openStore opens and migrates the configured result store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
