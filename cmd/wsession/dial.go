package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sonirico/wsession"
)

type dialOptions struct {
	url                  string
	configPath           string
	headers              []string
	keepAlive            time.Duration
	pongTimeout          time.Duration
	logLevel             string
	metricsAddr          string
	terminateOnSendError bool
}

func dialCmd() *cobra.Command {
	var opts dialOptions

	cmd := &cobra.Command{
		Use:   "dial [url]",
		Short: "Open a session and bridge it to stdin/stdout",
		Long: `Open a websocket session, send every stdin line as a text message and
print every session event. The session is closed on EOF or interrupt.

Settings may come from a YAML file (--config); flags given explicitly
override the file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.url = args[0]
			}

			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return dial(ctx, cfg, opts.metricsAddr, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "Socket URL (ws:// or wss://)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Handshake header as Key:Value (repeatable)")
	cmd.Flags().DurationVar(&opts.keepAlive, "keepalive", wsession.DefaultKeepAliveInterval, "Idle period before a ping is sent")
	cmd.Flags().DurationVar(&opts.pongTimeout, "pong-timeout", wsession.DefaultPongTimeout, "Time to wait for a pong")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.terminateOnSendError, "terminate-on-send-error", false, "Close the session when a send fails")

	return cmd
}

// resolveConfig loads the config file, if any, and applies the flags the
// user set explicitly on top of it.
func resolveConfig(cmd *cobra.Command, opts dialOptions) (wsession.Config, error) {
	cfg := wsession.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := wsession.LoadConfig(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if opts.url != "" {
		cfg.URL = opts.url
	}
	if flags.Changed("keepalive") || opts.configPath == "" {
		cfg.KeepAliveInterval = opts.keepAlive
	}
	if flags.Changed("pong-timeout") || opts.configPath == "" {
		cfg.PongTimeout = opts.pongTimeout
	}
	if flags.Changed("log-level") || opts.configPath == "" {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("terminate-on-send-error") {
		cfg.TerminateOnSendError = opts.terminateOnSendError
	}

	for _, h := range opts.headers {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			return cfg, errors.Errorf("invalid header %q, expected Key:Value", h)
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		cfg.Headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return cfg, cfg.Validate()
}

func dial(
	ctx context.Context,
	cfg wsession.Config,
	metricsAddr string,
	in io.Reader,
	out io.Writer,
	errOut io.Writer,
) error {
	log := wsession.NewWriterLogger(errOut, wsession.ParseLogLevel(cfg.LogLevel))

	opts := []wsession.Option{wsession.WithLogger(log)}
	if wsession.ParseLogLevel(cfg.LogLevel) == wsession.LevelDebug {
		opts = append(opts, wsession.WithStateHandler(traceTransitions(errOut)))
	}

	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		opts = append(opts, wsession.WithMetrics(wsession.NewMetrics(wsession.WithMetricsRegistry(registry))))

		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server stopped: %s", err)
			}
		}()
		defer srv.Close()
	}

	client, err := wsession.NewFromConfig(cfg, opts...)
	if err != nil {
		return err
	}

	return runSession(ctx, client, in, out)
}

// runSession bridges client to in/out until in is exhausted, the session
// closes, or ctx is done.
func runSession(ctx context.Context, client wsession.Client, in io.Reader, out io.Writer) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := client.ListenStream(streamCtx)

	if err := client.Connect(ctx); err != nil {
		return errors.Wrap(err, "cannot connect")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-streamCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return closeSession(client, events, out)
		case e, ok := <-events:
			if !ok {
				return nil
			}
			printEvent(out, e)
			if e.Type == wsession.EventClosed {
				return e.Err
			}
		case line, ok := <-lines:
			if !ok {
				return closeSession(client, events, out)
			}
			if err := client.Send(ctx, wsession.NewTextPayload(line)); err != nil {
				fmt.Fprintf(out, "!! send failed: %s\n", err)
			}
		}
	}
}

// closeSession closes client and waits for the event stream to finish.
func closeSession(client wsession.Client, events <-chan wsession.Event, out io.Writer) error {
	err := client.Close()
	for e := range events {
		printEvent(out, e)
	}
	if err != nil && !errors.Is(err, wsession.ErrInvalidSocket) {
		return err
	}
	return nil
}

// traceTransitions prints every session state change to out.
func traceTransitions(out io.Writer) wsession.StateHandler {
	return func(t wsession.Transition) {
		fmt.Fprintf(out, "~~ state %s\n", t)
	}
}

func printEvent(out io.Writer, e wsession.Event) {
	switch e.Type {
	case wsession.EventOpened:
		fmt.Fprintln(out, "-- opened")
	case wsession.EventClosed:
		if e.Err != nil {
			fmt.Fprintf(out, "-- closed: %s\n", e.Err)
			return
		}
		fmt.Fprintln(out, "-- closed")
	case wsession.EventDataReceived:
		if e.Payload.Kind.IsText() {
			fmt.Fprintf(out, "<= %s\n", e.Payload.Text())
			return
		}
		fmt.Fprintf(out, "<= [%d bytes]\n", len(e.Payload.Data))
	}
}
