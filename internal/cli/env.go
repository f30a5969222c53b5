package cli

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/app"
	"github.com/roach88/storefront/internal/config"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/journal"
	"github.com/roach88/storefront/internal/logging"
)

// env is one invocation's wired client: configuration, logger, journal
// and the app that records into it.
type env struct {
	cfg     config.Config
	logger  *zap.Logger
	journal *journal.Store
	jar     *journal.Jar
	app     *app.App
}

// loadConfig reads .env and the environment, then applies flag overrides.
func loadConfig(opts *RootOptions, logOut io.Writer) (config.Config, error) {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	cfg.Log.Output = logOut
	return cfg, nil
}

// openEnv wires the full client. The journal doubles as the runtime's
// recorder and the cookie store, and the logical clock resumes after the
// last journaled sequence number.
func openEnv(ctx context.Context, opts *RootOptions, logOut io.Writer) (*env, error) {
	cfg, err := loadConfig(opts, logOut)
	if err != nil {
		return nil, err
	}

	logger, err := logging.Init(cfg.Log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialise logging", err)
	}

	e, err := openJournal(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	seq, err := e.journal.LastSeq(ctx)
	if err != nil {
		e.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	e.app, err = app.New(app.Options{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.Timeout,
		EntryRoute: cfg.EntryRoute,
		Jar:        e.jar,
		Recorder:   e.journal,
		Clock:      engine.NewClockAt(seq),
		Logger:     logger.Sugar(),
	})
	if err != nil {
		e.Close()
		return nil, WrapExitError(ExitCommandError, "invalid API URL", err)
	}

	logger.Debug("client ready",
		zap.String("api", cfg.APIURL),
		zap.String("db", cfg.DBPath),
		zap.Int64("seq", seq),
	)
	return e, nil
}

func openJournal(ctx context.Context, cfg config.Config, logger *zap.Logger) (*env, error) {
	st, err := journal.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	jar, err := st.Jar(ctx)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load cookies", err)
	}
	return &env{cfg: cfg, logger: logger, journal: st, jar: jar}, nil
}

// Close releases the app, reports a cookie persistence failure and closes
// the journal.
func (e *env) Close() {
	if e.app != nil {
		e.app.Close()
	}
	if e.jar != nil {
		if err := e.jar.Err(); err != nil {
			e.logger.Warn("session cookie not persisted", zap.Error(err))
		}
	}
	if err := e.journal.Close(); err != nil {
		e.logger.Warn("failed to close journal", zap.Error(err))
	}
	_ = e.logger.Sync()
}
