// cmd/app.go
package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/browser"
	"github.com/xkilldash9x/formpilot-cli/internal/cache"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
	"github.com/xkilldash9x/formpilot-cli/internal/executor"
	"github.com/xkilldash9x/formpilot-cli/internal/observability"
	"github.com/xkilldash9x/formpilot-cli/internal/oracle"
	"github.com/xkilldash9x/formpilot-cli/internal/profile"
	"github.com/xkilldash9x/formpilot-cli/internal/ratelimit"
	"github.com/xkilldash9x/formpilot-cli/internal/recorder"
	"github.com/xkilldash9x/formpilot-cli/internal/resolver"
	"github.com/xkilldash9x/formpilot-cli/internal/runner"
	"github.com/xkilldash9x/formpilot-cli/internal/store"
	"github.com/xkilldash9x/formpilot-cli/internal/watcher"
	"github.com/xkilldash9x/formpilot-cli/internal/workflow"
)

// app holds the wired collaborators a command needs. Commands build only the
// parts they use: document-store operations never launch a browser.
type app struct {
	cfg config.Interface
	log *zap.Logger

	docs     schemas.DocumentStore
	pool     *pgxpool.Pool
	flows    *workflow.Store
	profiles *profile.Provider
	answers  *cache.QuestionCache

	session *browser.Session
	oracle  schemas.OracleClient
}

// newApp wires the storage-side collaborators.
func newApp(ctx context.Context) (*app, error) {
	cfg := appConfig
	log := observability.GetLogger()

	a := &app{cfg: cfg, log: log}

	storeCfg := cfg.Store()
	switch storeCfg.Type {
	case "postgres":
		pool, err := pgxpool.New(ctx, storeCfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		pg, err := store.NewPostgres(ctx, pool, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.pool = pool
		a.docs = pg
	default:
		fs, err := store.NewFileStore(storeCfg.DataDir, log)
		if err != nil {
			return nil, err
		}
		a.docs = fs
	}

	a.flows = workflow.NewStore(a.docs, log)
	a.profiles = profile.New(a.docs, log)
	a.answers = cache.New(ctx, cfg.Cache(), a.docs, log)
	return a, nil
}

// openBrowser launches the shared page session.
func (a *app) openBrowser(ctx context.Context) error {
	session, err := browser.NewSession(ctx, a.cfg.Browser(), a.log)
	if err != nil {
		return err
	}
	a.session = session
	return nil
}

// openOracle creates the reasoning client when an API key is configured.
// Without one, template and cache answers still work.
func (a *app) openOracle() {
	oracleCfg := a.cfg.Oracle()
	if oracleCfg.APIKey == "" {
		a.log.Warn("No oracle API key configured; free-text questions fall back to templates and cache only.")
		return
	}
	client, err := oracle.NewGeminiClient(oracleCfg, a.log)
	if err != nil {
		a.log.Warn("Failed to create oracle client.", zap.Error(err))
		return
	}
	a.oracle = client
}

// buildRunner assembles the full pipeline. Requires openBrowser first.
func (a *app) buildRunner() *runner.BatchRunner {
	limiter := ratelimit.New(a.cfg.RateLimit().MaxCalls, a.cfg.RateLimit().Window, a.log)
	answerResolver := watcher.NewAnswerResolver(a.answers, a.oracle, limiter, a.profiles, a.log)
	w := watcher.New(a.session, answerResolver, a.cfg.Watcher(), a.log)

	rec := recorder.New(a.session, a.flows, a.cfg.Recorder(), a.log)
	ex := executor.New(a.session, a.flows, resolver.New(a.log), a.profiles, a.cfg.Executor(), a.log)

	return runner.New(a.session, rec, ex, w, answerResolver, a.profiles, a.cfg.Apply(), a.log)
}

// Close releases everything newApp and openBrowser acquired.
func (a *app) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.oracle != nil {
		if err := a.oracle.Close(); err != nil {
			a.log.Debug("Oracle close failed.", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
