package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/thywilljoshua/urdu-link/internal/ai"
	"github.com/thywilljoshua/urdu-link/internal/config"
	"github.com/thywilljoshua/urdu-link/internal/observability"
	"github.com/thywilljoshua/urdu-link/internal/store"
)

// app carries what every command needs after flags are parsed.
type app struct {
	cfgFile  string
	logLevel string

	cfg *config.Config
	log zerolog.Logger
}

func (a *app) load() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg
	a.log = observability.NewLogger(cfg.Log)
	return nil
}

// service returns the Gemini client, or a stand-in that reports the
// missing key on every call when none is configured.
func (a *app) service(ctx context.Context) (ai.Service, error) {
	if !a.cfg.HasAPIKey() {
		a.log.Warn().Msg("no API key configured; set GEMINI_API_KEY to enable remote calls")
		return ai.Noop{}, nil
	}
	return ai.NewGemini(ctx, ai.Options{
		APIKey:  a.cfg.Gemini.APIKey,
		BaseURL: a.cfg.Gemini.BaseURL,
		Models:  a.cfg.Gemini.Models,
		Retry:   a.cfg.Gemini.Retry,
		Logger:  a.log,
	})
}

// requireService is service for commands that cannot do anything without
// the remote model.
func (a *app) requireService(ctx context.Context) (ai.Service, error) {
	if !a.cfg.HasAPIKey() {
		return nil, fmt.Errorf("no API key: set GEMINI_API_KEY (or GOOGLE_API_KEY / API_KEY)")
	}
	return a.service(ctx)
}

// openStore opens the translation memory, or returns nil when disabled.
func (a *app) openStore() (*store.Store, error) {
	if !a.cfg.Store.Enabled {
		return nil, nil
	}
	st, err := store.New(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.Store.Path, err)
	}
	return st, nil
}

var (
	successf = color.New(color.FgGreen).SprintfFunc()
	warnf    = color.New(color.FgYellow).SprintfFunc()
	errorf   = color.New(color.FgRed).SprintfFunc()
	infof    = color.New(color.FgCyan).SprintfFunc()
)
