// Command watch connects the change notifier to a running studio server and
// logs every status change and content update.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/studio/internal/config"
	"github.com/bilgisen/studio/internal/logger"
	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/realtime"
	"github.com/spf13/cobra"
)

type options struct {
	url         string
	interval    time.Duration
	timeout     time.Duration
	maxAttempts int
	types       []string
	sync        bool
	jsonOut     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := options{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow content changes on a studio server",
		Long: "watch polls the server's status endpoint and prints every content update.\n" +
			"It keeps polling when the server is unreachable and gives up after --max-attempts failures.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.Config{
				Level:  cfg.LogLevel,
				Output: "stderr",
				Pretty: !opts.jsonOut,
			}); err != nil {
				return err
			}
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.url, "url", cfg.StatusBaseURL, "server base URL")
	f.DurationVar(&opts.interval, "interval", cfg.PollInterval, "poll interval")
	f.DurationVar(&opts.timeout, "connect-timeout", cfg.ConnectTimeout, "initial connection timeout")
	f.IntVar(&opts.maxAttempts, "max-attempts", cfg.MaxReconnectAttempts, "consecutive failures before giving up")
	f.StringSliceVar(&opts.types, "type", nil, "only print these update types (default all)")
	f.BoolVar(&opts.sync, "sync", false, "force a sync before watching")
	f.BoolVar(&opts.jsonOut, "json", false, "print updates as JSON lines")

	return cmd
}

func run(ctx context.Context, opts options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.For("watch")
	n := realtime.New(realtime.Config{
		BaseURL:              opts.url,
		PollInterval:         opts.interval,
		ConnectTimeout:       opts.timeout,
		MaxReconnectAttempts: opts.maxAttempts,
		Logger:               &log,
	})
	defer n.Disconnect()

	failed := make(chan struct{}, 1)
	n.OnStatusChange(func(s realtime.Status) {
		log.Info().Str("status", string(s)).Msg("Connection status changed")
		if s == realtime.StatusError {
			select {
			case failed <- struct{}{}:
			default:
			}
		}
	})

	show := func(u models.ContentUpdate) {
		if opts.jsonOut {
			_ = json.NewEncoder(os.Stdout).Encode(u)
			return
		}
		fmt.Printf("%s  %-10s %-14s %s\n", u.Timestamp, u.Type, u.Action, string(u.Data))
	}
	if len(opts.types) == 0 {
		n.Subscribe(realtime.Wildcard, show)
	} else {
		for _, typ := range opts.types {
			n.Subscribe(typ, show)
		}
	}

	if err := n.Connect(ctx); err != nil {
		return err
	}

	if opts.sync {
		if _, err := n.ForceSync(ctx); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case <-failed:
		return fmt.Errorf("giving up after %d failed status checks", n.Failures())
	}
}
