// Package main is the entry point for the inbox rotor daemon.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mailops/inbox-rotor/internal/config"
	"github.com/mailops/inbox-rotor/internal/graph"
	"github.com/mailops/inbox-rotor/internal/loop"
	"github.com/mailops/inbox-rotor/internal/reply"
	"github.com/mailops/inbox-rotor/internal/reply/ses"
	"github.com/mailops/inbox-rotor/internal/reply/stdout"
	"github.com/mailops/inbox-rotor/internal/rotor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration file")
	flag.Parse()

	// Configuration errors are the only fatal errors: a process that cannot
	// know its mailbox or recipients must not start.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	client := graph.New(graph.ClientConfig{
		TenantID:      cfg.Graph.TenantID,
		TokenEndpoint: cfg.Graph.TokenEndpoint,
		ClientID:      cfg.Graph.ClientID,
		ClientSecret:  cfg.Graph.ClientSecret,
		Mailbox:       cfg.Graph.Mailbox,
		Folder:        cfg.Graph.Folder,
		FetchCount:    cfg.Poll.FetchCount,
	})

	rot, err := rotor.New(recipients(cfg))
	if err != nil {
		slog.Error("failed to build recipient rotor", "error", err)
		os.Exit(1)
	}

	replier := selectReplier(cfg, client)

	slog.Info("starting inbox-rotor",
		"mailbox", cfg.Graph.Mailbox,
		"folder", cfg.Graph.Folder,
		"recipients", rot.Len(),
		"interval", cfg.PollInterval(),
		"auto_reply", cfg.ReplyEnabled(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	l := loop.New(client, client, rot, replier, loop.Config{
		Interval:     cfg.PollInterval(),
		MessageDelay: cfg.MessageDelay(),
	})

	// Blocks until a termination signal arrives.
	l.Run(ctx)

	slog.Info("inbox-rotor stopped")
}

// recipients converts the configured recipient list into rotor recipients,
// preserving order.
func recipients(cfg *config.Config) []rotor.Recipient {
	out := make([]rotor.Recipient, 0, len(cfg.Recipients))
	for _, r := range cfg.Recipients {
		out = append(out, rotor.Recipient{Name: r.Name, Email: r.Email})
	}
	return out
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectReplier builds the auto-replier for the configured provider, or nil
// when auto-reply is disabled.
func selectReplier(cfg *config.Config, client *graph.Client) *reply.AutoReplier {
	var sender reply.Sender

	switch cfg.Reply.Provider {
	case "":
		return nil

	case "graph":
		slog.Info("auto-reply via Microsoft Graph", "mailbox", cfg.Graph.Mailbox)
		sender = client

	case "ses":
		slog.Info("auto-reply via AWS SES",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		s, err := ses.New(context.Background(), ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			slog.Error("failed to create SES sender", "error", err)
			os.Exit(1)
		}
		sender = s

	case "stdout":
		slog.Info("auto-reply to stdout (dry run)")
		sender = stdout.New()

	default:
		// Validate() rejects unknown providers before we get here.
		slog.Error("unknown reply provider", "provider", cfg.Reply.Provider)
		os.Exit(1)
	}

	return reply.NewAutoReplier(sender, cfg.Reply.Subject, cfg.Reply.Body, cfg.Reply.Exclude)
}
