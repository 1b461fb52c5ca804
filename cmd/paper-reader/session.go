// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/paper-reader/internal/api"
	"github.com/pdiddy/paper-reader/internal/entitydb"
	"github.com/pdiddy/paper-reader/internal/highlights"
	"github.com/pdiddy/paper-reader/internal/metrics"
	"github.com/pdiddy/paper-reader/internal/reader"
	"github.com/pdiddy/paper-reader/internal/textfind"
	"github.com/pdiddy/paper-reader/internal/viewer"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// openBackend returns the remote API when backend.url is set, otherwise
// the local database. The returned close func releases it.
func openBackend(cfg types.Config) (api.Backend, func() error, error) {
	if cfg.Backend.URL != "" {
		log.Debug().Str("url", cfg.Backend.URL).Msg("using entity API")
		return api.NewClient(cfg.Backend, log), func() error { return nil }, nil
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

func openDB(cfg types.Config) (*entitydb.DB, error) {
	db, err := entitydb.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.DB.Path, err)
	}
	log.Debug().Str("path", cfg.DB.Path).Msg("using entity database")
	return db, nil
}

// sessionOptions are the per-session pieces a reader is built from.
type sessionOptions struct {
	backend api.Backend
	nav     *viewer.Navigator
	metrics *metrics.Metrics
}

// newEngine loads the paper's highlight corpus. It returns nil when no
// corpus is configured or the corpus has no entry for the paper.
func newEngine(cfg types.Config, paper types.PaperID, nav *viewer.Navigator, m *metrics.Metrics) (*highlights.Engine, error) {
	if cfg.Highlights.Corpus == "" {
		return nil, nil
	}
	corpus, err := highlights.LoadCorpus(cfg.Highlights.Corpus, paper.ID)
	if errors.Is(err, highlights.ErrNoCorpus) {
		log.Debug().Str("paper", paper.String()).Msg("no highlights for paper")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	opts := []highlights.Option{highlights.WithLogger(log), highlights.WithMetrics(m)}
	if nav != nil {
		opts = append(opts, highlights.WithNavigator(nav))
	}
	return highlights.New(corpus, cfg.Highlights, opts...), nil
}

// newReader builds a reader for paper. Without a navigator the session is
// headless and free-text find runs over sentence entities.
func newReader(cfg types.Config, paper types.PaperID, so sessionOptions) (*reader.Reader, error) {
	engine, err := newEngine(cfg, paper, so.nav, so.metrics)
	if err != nil {
		return nil, err
	}
	opts := reader.Options{
		Paper:      paper,
		Backend:    so.backend,
		Highlights: engine,
		Config:     cfg.Reader,
		Log:        log,
		Metrics:    so.metrics,
	}
	if so.nav != nil {
		opts.Navigator = so.nav
	} else {
		opts.TextMatcher = textfind.Finder{}
	}
	return reader.New(opts), nil
}

// loadReader opens the configured backend and loads a headless reader for
// the paper. The returned close func releases the backend.
func loadReader(ctx context.Context, rawPaper string) (*reader.Reader, types.Config, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, types.Config{}, nil, err
	}
	backend, closeFn, err := openBackend(cfg)
	if err != nil {
		return nil, types.Config{}, nil, err
	}
	r, err := newReader(cfg, types.ParsePaperID(rawPaper), sessionOptions{backend: backend})
	if err != nil {
		closeFn()
		return nil, types.Config{}, nil, err
	}
	if err := r.Load(ctx); err != nil {
		closeFn()
		return nil, types.Config{}, nil, err
	}
	return r, cfg, closeFn, nil
}
