package main

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/danmuck/invokereader/internal/config"
	"github.com/danmuck/invokereader/internal/observability"
	"github.com/danmuck/invokereader/internal/protocol/session"
	"github.com/danmuck/invokereader/internal/reader"
	"github.com/danmuck/invokereader/internal/server"
)

var errUsage = errors.New("missing rtmp url")

type options struct {
	ConfigPath  string
	Channel     uint32
	MetricsAddr string
	PlayPath    string
	Timeout     time.Duration
	LogLevel    string
}

func newRootCommand(opts *options, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invokereader [flags] rtmp://host[:port]/app[/playpath]",
		Short: "Print the remote invocations an RTMP server sends",
		Long: `Connect to an RTMP server, read command messages on the control channel
and print each invocation as a property tree.

Example:
  invokereader rtmp://localhost/live/cam1
  invokereader --channel 5 --metrics-addr :9464 rtmps://edge.example.com/app`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, link, err := resolve(cmd, opts, args)
			if errors.Is(err, errUsage) {
				_ = cmd.Usage()
				return err
			}
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, link, out)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to a TOML config file")
	cmd.Flags().Uint32Var(&opts.Channel, "channel", reader.DefaultControlChannel, "chunk stream id carrying invocations")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /health and /metrics on this address")
	cmd.Flags().StringVar(&opts.PlayPath, "play", "", "stream to play after connecting (overrides the url)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "read timeout per packet (0 waits forever)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level (trace|debug|info|warn|error)")

	return cmd
}

// resolve layers defaults, the config file, changed flags and the url argument.
func resolve(cmd *cobra.Command, opts *options, args []string) (config.Config, session.Link, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, session.Link{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("channel") {
		cfg.ControlChannel = opts.Channel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	if flags.Changed("play") {
		cfg.PlayPath = opts.PlayPath
	}
	if flags.Changed("timeout") {
		cfg.ReadTimeout = opts.Timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if len(args) == 1 {
		cfg.URL = args[0]
	}
	if cfg.URL == "" {
		return config.Config{}, session.Link{}, errUsage
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, session.Link{}, err
	}

	link, err := session.ParseURL(cfg.URL)
	if err != nil {
		return config.Config{}, session.Link{}, err
	}
	if cfg.PlayPath != "" {
		link.PlayPath = cfg.PlayPath
	}
	return cfg, link, nil
}

func run(ctx context.Context, cfg config.Config, link session.Link, out io.Writer) error {
	logger := observability.InitLogger("invokereader", cfg.LogLevel)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var status *server.Server
	if cfg.MetricsAddr != "" {
		status = server.New(server.Options{
			Addr:         cfg.MetricsAddr,
			CORSOrigins:  cfg.CORSOrigins,
			MetricsToken: cfg.MetricsToken,
		}, logger)
		g.Go(func() error {
			return status.Run(gctx)
		})
	}

	g.Go(func() error {
		// The status server follows the packet loop down.
		defer cancel()
		client, err := session.Dial(gctx, link, cfg.Session())
		if err != nil {
			return err
		}
		defer client.Close()

		sessionLogger := logger.With().Str("session_id", client.ID()).Logger()
		sessionLogger.Info().
			Str("addr", client.Link().Address()).
			Str("app", client.Link().App).
			Str("play_path", client.Link().PlayPath).
			Uint32("channel", cfg.ControlChannel).
			Msg("invokereader.connected")
		if status != nil {
			status.SetStatus(server.Status{SessionID: client.ID(), URL: cfg.URL, Connected: true})
		}

		r := &reader.Reader{
			Source:         client,
			Sink:           out,
			ControlChannel: cfg.ControlChannel,
			Logger:         sessionLogger,
			Metrics:        observability.NewReaderMetrics(),
		}
		err = r.Run(gctx)
		if status != nil {
			status.SetStatus(server.Status{SessionID: client.ID(), URL: cfg.URL})
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("invokereader.stopped")
	return nil
}
