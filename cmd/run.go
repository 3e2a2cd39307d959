package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/scribeworks/scribe/analytics"
	"github.com/scribeworks/scribe/config"
	"github.com/scribeworks/scribe/detect"
	"github.com/scribeworks/scribe/event"
	"github.com/scribeworks/scribe/ingest"
	"github.com/scribeworks/scribe/memory"
	"github.com/scribeworks/scribe/model"
	"github.com/scribeworks/scribe/secret"
	"github.com/scribeworks/scribe/session"
)

const cacheTTL = time.Hour

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Observe the capture spool and build the task timeline until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := slog.Default()

		store, err := memory.New(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		router := event.NewRouter(0, nil)
		defer router.Close()

		pairs := detect.DefaultSameTaskPairs()
		if cfg.Detection.PairsFile != "" {
			if err := pairs.LoadPairsFile(cfg.Detection.PairsFile); err != nil {
				return fmt.Errorf("load pairs file: %w", err)
			}
		}

		vision, err := buildVisionProvider(cfg, log)
		if err != nil {
			return err
		}

		var analyticsClient analytics.Client
		if cfg.Analytics.Enabled {
			analyticsClient, err = buildAnalyticsClient(cfg)
			if err != nil {
				log.Warn("analytics disabled", "error", err)
			} else {
				defer analyticsClient.Close()
			}
		}

		overrides := &detect.Config{
			MinTaskDuration:   cfg.Detection.MinTaskDuration,
			IdleThreshold:     cfg.Detection.IdleThreshold,
			AppSwitchDebounce: cfg.Detection.AppSwitchDebounce,
		}

		svc := session.NewService(session.ServiceOptions{
			Log:             log,
			Store:           store,
			Router:          router,
			Vision:          vision,
			VisionTimeout:   cfg.Provider.Timeout,
			Pairs:           pairs,
			Analytics:       analyticsClient,
			ConfigOverrides: overrides,
		})

		if err := svc.Start(ctx); err != nil {
			return err
		}

		recorder := session.NewRecorder(router, store, svc.SessionID(), log)
		watcher := ingest.NewWatcher(cfg.Spool.Dir, svc, log)

		group, groupCtx := errgroup.WithContext(ctx)

		// Subscribe before the watcher starts draining the spool so the
		// crash mirror sees the very first events.
		consume := recorder.Listen(groupCtx)
		group.Go(func() error {
			consume()
			return nil
		})
		group.Go(func() error {
			return watcher.Run(groupCtx)
		})

		runErr := group.Wait()

		// Flush the session with a fresh context; the run context is already
		// cancelled by the signal.
		endCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tasks, endErr := svc.End(endCtx)
		if endErr != nil {
			return endErr
		}
		fmt.Printf("Session %s ended with %d task(s).\n", svc.SessionID(), len(tasks))
		return runErr
	},
}

func buildVisionProvider(cfg *config.Config, log *slog.Logger) (model.VisionProvider, error) {
	if cfg.Provider.Kind == "none" {
		return nil, nil
	}

	resolver, err := secret.NewResolver(cfg.Storage.SecretsDir)
	if err != nil {
		return nil, err
	}

	var inner model.VisionProvider
	switch cfg.Provider.Kind {
	case "anthropic":
		key, err := resolver.Resolve(secret.KeyAnthropicAPIKey)
		if err != nil {
			log.Warn("no anthropic api key, model assistance disabled")
			return nil, nil
		}
		inner, err = model.NewAnthropicProvider(key, cfg.Provider.Model)
		if err != nil {
			return nil, err
		}
	case "openai":
		key, err := resolver.Resolve(secret.KeyOpenAIAPIKey)
		if err != nil {
			log.Warn("no openai api key, model assistance disabled")
			return nil, nil
		}
		inner, err = model.NewOpenAIProvider(key, cfg.Provider.Model)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}

	return model.NewCachingProvider(inner, cfg.Provider.CacheCapacity, cacheTTL)
}

func buildAnalyticsClient(cfg *config.Config) (analytics.Client, error) {
	resolver, err := secret.NewResolver(cfg.Storage.SecretsDir)
	if err != nil {
		return nil, err
	}
	token, err := resolver.Resolve(secret.KeyAnalyticsToken)
	if err != nil {
		return nil, err
	}
	return posthog.NewWithConfig(token, posthog.Config{
		Endpoint: cfg.Analytics.Endpoint,
	})
}

func init() {
	rootCmd.AddCommand(runCmd)
}
