package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cobra"

	"github.com/kalkan-ai/kalkan/internal/audit"
	"github.com/kalkan-ai/kalkan/internal/catalog"
	"github.com/kalkan-ai/kalkan/internal/classifier"
	"github.com/kalkan-ai/kalkan/internal/config"
	"github.com/kalkan-ai/kalkan/internal/guard"
	"github.com/kalkan-ai/kalkan/internal/oplog"
	"github.com/kalkan-ai/kalkan/internal/pattern"
	"github.com/kalkan-ai/kalkan/internal/server"
	"github.com/kalkan-ai/kalkan/internal/telemetry"
)

const version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:   "kalkan",
		Short: "Dual-layer content safety gateway",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newCheckCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP evaluation gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "kalkan.yaml", "path to config file")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "check [text]",
		Short: "Evaluate a single text from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(configPath, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "kalkan.yaml", "path to config file")
	return cmd
}

func buildService(ctx context.Context, cfg *config.Config, withAudit bool) (*guard.Service, *telemetry.Provider, error) {
	cat := catalog.New()
	matcher := pattern.NewMatcher(cat)

	var provider classifier.Provider
	if cfg.Classifier.Provider != "" {
		p, err := classifier.NewProvider(cfg.Classifier.Provider, cfg.Classifier.Model, cfg.Classifier.APIKeyEnv)
		if err != nil {
			return nil, nil, err
		}
		provider = p
	} else {
		oplog.Logf("no classifier provider configured, running pattern-only")
	}
	adapter := classifier.NewAdapter(provider, cat, matcher, cfg.Classifier.Timeout())

	var emitter *audit.Emitter
	if withAudit {
		fileSink, err := audit.NewFileSink(cfg.Audit.Dir)
		if err != nil {
			return nil, nil, err
		}
		sinks := []audit.Sink{fileSink}
		for _, sc := range cfg.Audit.Sinks {
			if strings.EqualFold(sc.Type, "webhook") {
				hook, err := audit.NewWebhookSink(sc.URL, sc.Headers, 0)
				if err != nil {
					return nil, nil, err
				}
				sinks = append(sinks, hook)
			}
		}
		emitter = audit.NewEmitter(audit.EmitterConfig{
			QueueSize: cfg.Audit.QueueSize,
			Workers:   cfg.Audit.Workers,
		}, sinks)
	}

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "kalkan",
		Version:  version,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry setup: %w", err)
	}

	svc := guard.New(cat, adapter, emitter, tel, guard.Limits{
		MaxInputBytes: cfg.Limits.MaxInputBytes,
		PreviewChars:  cfg.Limits.PreviewChars,
	})
	return svc, tel, nil
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, tel, err := buildService(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.Close(closeCtx)
		tel.Shutdown(closeCtx)
	}()

	srv := server.New(svc, int64(cfg.Limits.MaxInputBytes)+4096)
	oplog.Logf("kalkan %s listening on %s", version, cfg.Server.Addr)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func runCheck(configPath, text string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()
	svc, tel, err := buildService(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer tel.Shutdown(ctx)

	res := svc.Evaluate(ctx, text)

	out := map[string]any{
		"status":     string(res.Status),
		"content":    res.Content,
		"violations": res.Violations,
		"confidence": res.Confidence,
		"audit_id":   res.AuditID,
		"summary":    res.Summary,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
