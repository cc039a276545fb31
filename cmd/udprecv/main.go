package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sheerbytes/udprecv/internal/config"
	"github.com/sheerbytes/udprecv/internal/logging"
	"github.com/sheerbytes/udprecv/internal/session"
	"github.com/sheerbytes/udprecv/internal/sink"
	"github.com/sheerbytes/udprecv/internal/source"
	"github.com/sheerbytes/udprecv/internal/termio"
)

const version = "v0.1.0"

func main() {
	if hasVersionFlag(os.Args[1:]) {
		fmt.Fprintln(os.Stdout, "udprecv", version)
		return
	}

	cfg, err := config.ParseReceiverConfig()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	logger := logging.New("udprecv", cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("receive failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.ReceiverConfig, logger *slog.Logger) error {
	src, err := source.Open(ctx, cfg.Transport, source.Options{
		ListenAddr:      cfg.ListenAddr,
		PeerAddr:        cfg.PeerAddr,
		PeerURL:         cfg.PeerURL,
		ReadBufferBytes: cfg.UDPReadBufferBytes,
		Timeout:         cfg.RecvTimeout,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("open %s source: %w", cfg.Transport, err)
	}
	defer src.Close()

	var progressOut io.Writer
	if cfg.Progress {
		tw := termio.NewWriter(os.Stdout)
		defer tw.Close()
		progressOut = tw
	}
	s, err := session.New(src, sink.DirSink{Root: cfg.OutDir}, session.Config{
		ExpectedFiles:    cfg.ExpectedFiles,
		MaxBufferedBytes: cfg.MaxBufferedBytes,
	}, session.WithLogger(logger), session.WithProgress(progressOut))
	if err != nil {
		return err
	}

	_, err = s.Run(ctx)
	return err
}

func hasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--version" || arg == "-version" {
			return true
		}
	}
	return false
}
