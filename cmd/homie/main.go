package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/goliatone/go-homie"
	"github.com/goliatone/go-homie/activitymap"
	"github.com/goliatone/go-homie/config"
	"github.com/goliatone/go-homie/control"
	"github.com/goliatone/go-homie/provider/identitytoolkit"
	"github.com/goliatone/go-homie/provider/local"
	"github.com/goliatone/go-homie/tui"
)

// logLogger writes through the standard logger, which tea.LogToFile points
// at the log file so output never lands on the alternate screen.
type logLogger struct{}

func (logLogger) Debug(format string, args ...any) { log.Printf("[DEBUG] "+format, args...) }
func (logLogger) Info(format string, args ...any)  { log.Printf("[INFO] "+format, args...) }
func (logLogger) Warn(format string, args ...any)  { log.Printf("[WARN] "+format, args...) }
func (logLogger) Error(format string, args ...any) { log.Printf("[ERR] "+format, args...) }

type closer func()

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.UI.LogFile), 0o755); err != nil {
		return fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := tea.LogToFile(cfg.UI.LogFile, "homie")
	if err != nil {
		return fmt.Errorf("log file: %w", err)
	}
	defer f.Close()

	logger := logLogger{}
	activity := activitymap.NewSink(f)

	provider, release, err := openProvider(ctx, cfg, logger, activity)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	defer release()

	model := tui.New(ctx, provider,
		tui.WithTitle(cfg.UI.Title),
		tui.WithButton(control.ParseVariant(cfg.UI.ButtonVariant), control.ParseSize(cfg.UI.ButtonSize)),
		tui.WithTimeout(cfg.Provider.Timeout),
		tui.WithLogger(logger),
		tui.WithActivitySink(activity),
	)
	defer model.Close()

	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func openProvider(ctx context.Context, cfg config.Config, logger homie.Logger, sink homie.ActivitySink) (homie.Provider, closer, error) {
	switch cfg.Provider.Kind {
	case config.ProviderIdentityToolkit:
		var verifier *identitytoolkit.Verifier
		if cfg.Provider.VerifyTokens {
			v, err := identitytoolkit.NewJWKSVerifier(cfg.Provider.JWKSURL, cfg.Provider.ProjectID, logger)
			if err != nil {
				return nil, nil, err
			}
			verifier = v
		}
		p := identitytoolkit.New(identitytoolkit.Config{
			APIKey:     cfg.Provider.APIKey,
			ProjectID:  cfg.Provider.ProjectID,
			AuthDomain: cfg.Provider.AuthDomain,
			BaseURL:    cfg.Provider.BaseURL,
			Verifier:   verifier,
			Logger:     logger,
		})
		return p, func() {
			p.Close()
			if verifier != nil {
				verifier.Close()
			}
		}, nil

	default:
		if path, ok := strings.CutPrefix(cfg.Local.DSN, "file:"); ok {
			path, _, _ = strings.Cut(path, "?")
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, nil, fmt.Errorf("mkdir db dir: %w", err)
			}
		}

		db, err := local.Open(cfg.Local.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := local.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}

		accounts := local.NewAccounts(db, cfg, local.WithAccountsLogger(logger))
		p, err := local.NewProvider(ctx, db, accounts,
			local.WithLogger(logger),
			local.WithPersistentSession(cfg.Local.PersistSession),
			local.WithLatency(cfg.Local.Latency),
			local.WithActivitySink(sink),
		)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return p, func() {
			p.Close()
			db.Close()
		}, nil
	}
}
