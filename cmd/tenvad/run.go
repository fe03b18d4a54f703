package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/tenvad/internal/wavio"
	"github.com/wippyai/tenvad/vad"
)

type runOptions struct {
	realtime    bool
	metricsAddr string
}

func newRunCmd(a *app) *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run <file.wav>",
		Short: "Process a mono 16-bit WAV file frame by frame",
		Long: `Process a mono 16-bit WAV file and print one line per frame:

  [index] probability, flag

Trailing samples that do not fill a frame are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				o.metricsAddr = a.cfg.Metrics.Addr
			}
			return a.run(cmd, args[0], o)
		},
	}
	cmd.Flags().BoolVar(&o.realtime, "realtime", false, "pace frames at the audio sample rate")
	cmd.Flags().StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path string, o runOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	clip, err := wavio.Load(path)
	if err != nil {
		return err
	}
	if len(clip.Samples) == 0 {
		return fmt.Errorf("%s: no audio samples", path)
	}
	a.logger.Info("loaded wav",
		zap.String("path", path),
		zap.Int("sample_rate", clip.SampleRate),
		zap.Int("samples", len(clip.Samples)),
	)

	if o.metricsAddr != "" {
		stop, err := a.serveMetrics(o.metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	v, err := vad.New(a.cfg.HopSize, a.cfg.Threshold, a.vadOptions(ctx)...)
	if err != nil {
		return err
	}
	defer v.Close()

	hop := v.FrameSize()
	var tick <-chan time.Time
	if o.realtime {
		t := time.NewTicker(wavio.FrameDuration(hop, clip.SampleRate))
		defer t.Stop()
		tick = t.C
	}

	frames := len(clip.Samples) / hop
	for i := range frames {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}

		prob, voice, err := v.Process(clip.Samples[i*hop : (i+1)*hop])
		if err != nil {
			a.logger.Warn("frame failed", zap.Int("frame", i), zap.Error(err))
			continue
		}
		flag := 0
		if voice {
			flag = 1
		}
		fmt.Fprintf(out, "[%d] %.6f, %d\n", i, prob, flag)
	}

	if rem := len(clip.Samples) % hop; rem > 0 {
		fmt.Fprintf(out, "Note: %d remaining samples at the end were not processed as they don't form a full frame of size %d.\n", rem, hop)
	}
	return nil
}

// serveMetrics exposes the registry on addr until the returned stop is called.
func (a *app) serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
