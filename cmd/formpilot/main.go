// Command formpilot is the registration form assistant daemon.
//
// Usage:
//
//	formpilot -config formpilot.yaml -serve        # watchdog + HTTP API
//	formpilot -register smart                      # one-shot registration
//	formpilot -generate                            # print a random identity
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voralis/formpilot/browser"
	"github.com/voralis/formpilot/config"
	"github.com/voralis/formpilot/fields"
	"github.com/voralis/formpilot/formguard"
	"github.com/voralis/formpilot/httpapi"
	"github.com/voralis/formpilot/notify"
	"github.com/voralis/formpilot/regflow"
	"github.com/voralis/formpilot/service"
	"github.com/voralis/formpilot/store"
	"github.com/voralis/formpilot/submit"
)

func main() {
	configPath := flag.String("config", "", "path to formpilot.yaml config file")
	serve := flag.Bool("serve", false, "run the watchdog and HTTP API")
	register := flag.String("register", "", "run one registration with the named profile and exit")
	generate := flag.Bool("generate", false, "print a random registration identity and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *serve, *register, *generate); err != nil {
		logger.Error("formpilot: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath string, serve bool, register string, generate bool) error {
	cfg := config.Default()
	if configPath != "" {
		c, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}

	switch {
	case generate:
		return runGenerate(cfg)
	case register != "":
		return runRegister(ctx, logger, cfg, register)
	case serve:
		return runServe(ctx, logger, cfg)
	}

	fmt.Fprintln(os.Stderr, "usage: formpilot [-config <file>] -serve | -register <profile> | -generate")
	os.Exit(1)
	return nil
}

func runGenerate(cfg *config.Config) error {
	orch := regflow.New(submit.NewScript(), regflow.WithDomain(cfg.Strategy.Domain))
	data := orch.GenerateData()
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
	return nil
}

func runRegister(ctx context.Context, logger *slog.Logger, cfg *config.Config, profile string) error {
	svc, cleanup, err := buildService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := svc.Register(ctx, profile)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
	return nil
}

func runServe(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	svc, cleanup, err := buildService(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           httpapi.New(svc, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("formpilot: http api listening", "addr", cfg.API.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// buildService assembles the accessor, watchdog, orchestrator, store and
// notifiers from configuration. The returned cleanup closes everything the
// build opened.
func buildService(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*service.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	acc, err := buildAccessor(ctx, logger, cfg, &closers)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	notifier := buildNotifier(logger, cfg)

	st, err := store.Open(cfg.Store.Path, store.WithMaxHistory(cfg.Store.MaxHistory))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	closers = append(closers, func() { st.Close() })

	guard := formguard.New(acc, formguard.Config{
		AssessInterval:   cfg.Guard.AssessInterval,
		AutosaveInterval: cfg.Guard.AutosaveInterval,
		ClearThreshold:   cfg.Guard.ClearThreshold,
		Notifier:         notifier,
		Logger:           logger,
	})

	var sub submit.Submitter
	switch cfg.Submit.Mode {
	case "http":
		sub = submit.NewHTTP(cfg.Submit.SignupURL)
	default:
		sub = submit.NewMock(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
	}

	opts := []regflow.Option{
		regflow.WithNotifier(notifier),
		regflow.WithLogger(logger),
		regflow.WithDomain(cfg.Strategy.Domain),
	}
	if len(cfg.Strategy.Profiles) > 0 {
		opts = append(opts, regflow.WithProfiles(cfg.Strategy.Profiles...))
	}
	orch := regflow.New(sub, opts...)

	svc, err := service.New(service.Config{
		Guard:          guard,
		Orch:           orch,
		Store:          st,
		Accessor:       acc,
		DefaultProfile: cfg.Strategy.Default,
		Notifier:       notifier,
		Logger:         logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func buildAccessor(ctx context.Context, logger *slog.Logger, cfg *config.Config, closers *[]func()) (fields.Accessor, error) {
	if !cfg.Browser.Enabled {
		return fields.NewMemory(), nil
	}

	mgr := browser.NewManager(browser.Config{
		RemoteURL:  cfg.Browser.Remote,
		Headful:    cfg.Browser.Headful,
		NavTimeout: cfg.Browser.NavTimeout,
		Logger:     logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	*closers = append(*closers, func() { mgr.Close() })

	selectors := browser.DefaultSelectors()
	for k, v := range cfg.Browser.Selectors {
		id := fields.ID(k)
		if fields.Valid(id) {
			selectors[id] = v
		}
	}

	form, err := browser.OpenForm(ctx, mgr, cfg.Browser.FormURL, selectors)
	if err != nil {
		return nil, fmt.Errorf("open form: %w", err)
	}
	*closers = append(*closers, func() { form.Close() })
	return form, nil
}

func buildNotifier(logger *slog.Logger, cfg *config.Config) notify.Notifier {
	var sinks notify.Multi
	for _, n := range cfg.Notify {
		switch n.Type {
		case "webhook":
			sinks = append(sinks, notify.NewWebhook(n.URL,
				notify.WithWebhookRetries(n.Retries),
				notify.WithWebhookLogger(logger)))
		default:
			sinks = append(sinks, notify.NewSlog(logger))
		}
	}
	if len(sinks) == 0 {
		return notify.NewSlog(logger)
	}
	if len(sinks) == 1 {
		return sinks[0]
	}
	return sinks
}
