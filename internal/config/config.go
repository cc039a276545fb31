package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sheerbytes/udprecv/internal/logging"
)

// Transport names accepted by ReceiverConfig.Transport.
const (
	TransportUDP       = "udp"
	TransportQUIC      = "quic"
	TransportWebSocket = "ws"
)

const envPrefix = "UDPRECV_"

// ReceiverConfig holds configuration for the receiver binary.
type ReceiverConfig struct {
	Transport          string        `yaml:"transport"`
	ListenAddr         string        `yaml:"listen"`
	PeerAddr           string        `yaml:"peer"`
	PeerURL            string        `yaml:"peer_url"`
	ExpectedFiles      int           `yaml:"files"`
	OutDir             string        `yaml:"out_dir"`
	MaxBufferedBytes   int64         `yaml:"max_buffered_bytes"` // 0 = unbounded
	RecvTimeout        time.Duration `yaml:"recv_timeout"`       // 0 = wait forever
	UDPReadBufferBytes int           `yaml:"udp_read_buffer_bytes"`
	LogLevel           string        `yaml:"log_level"`
	Progress           bool          `yaml:"progress"`
}

// Default returns the reference deployment settings.
func Default() ReceiverConfig {
	return ReceiverConfig{
		Transport:          TransportUDP,
		ListenAddr:         "0.0.0.0:7077",
		PeerAddr:           "127.0.0.1:6014",
		PeerURL:            "ws://127.0.0.1:6014/",
		ExpectedFiles:      3,
		OutDir:             ".",
		UDPReadBufferBytes: 8 * 1024 * 1024,
		LogLevel:           "info",
		Progress:           true,
	}
}

// ParseReceiverConfig parses receiver configuration from an optional YAML
// file, environment variables and flags, in increasing precedence.
func ParseReceiverConfig() (ReceiverConfig, error) {
	return parseReceiverConfigWithFlagSet(flag.CommandLine, os.Args[1:])
}

// parseReceiverConfigWithFlagSet is an internal helper for testing with isolated flag sets.
func parseReceiverConfigWithFlagSet(fs *flag.FlagSet, args []string) (ReceiverConfig, error) {
	cfg := Default()

	configPath := os.Getenv(envPrefix + "CONFIG")
	if p, ok := findConfigArg(args); ok {
		configPath = p
	}
	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	// Flags override file and environment
	fs.String("config", configPath, "YAML config file")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "datagram transport (udp, quic, ws)")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "local UDP address to bind")
	fs.StringVar(&cfg.PeerAddr, "peer", cfg.PeerAddr, "sender address (udp, quic)")
	fs.StringVar(&cfg.PeerURL, "peer-url", cfg.PeerURL, "sender WebSocket URL (ws)")
	fs.IntVar(&cfg.ExpectedFiles, "files", cfg.ExpectedFiles, "number of files to receive")
	fs.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory file names are resolved against")
	fs.Int64Var(&cfg.MaxBufferedBytes, "max-buffered-bytes", cfg.MaxBufferedBytes, "abort when buffered chunk bytes exceed this (0 = unbounded)")
	fs.DurationVar(&cfg.RecvTimeout, "recv-timeout", cfg.RecvTimeout, "abort when no datagram arrives within this duration (0 = wait forever)")
	fs.IntVar(&cfg.UDPReadBufferBytes, "udp-read-buffer-bytes", cfg.UDPReadBufferBytes, "UDP socket receive buffer size")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Progress, "progress", cfg.Progress, "print a dot per received datagram")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c ReceiverConfig) Validate() error {
	switch c.Transport {
	case TransportUDP, TransportQUIC:
		if c.PeerAddr == "" {
			return errors.New("peer address is required")
		}
	case TransportWebSocket:
		if c.PeerURL == "" {
			return errors.New("peer URL is required")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.ExpectedFiles < 1 || c.ExpectedFiles > 256 {
		return fmt.Errorf("files must be between 1 and 256, got %d", c.ExpectedFiles)
	}
	if c.MaxBufferedBytes < 0 {
		return fmt.Errorf("max-buffered-bytes must not be negative, got %d", c.MaxBufferedBytes)
	}
	if c.RecvTimeout < 0 {
		return fmt.Errorf("recv-timeout must not be negative, got %s", c.RecvTimeout)
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func loadFile(path string, cfg *ReceiverConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *ReceiverConfig) error {
	if v := os.Getenv(envPrefix + "TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv(envPrefix + "LISTEN"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envPrefix + "PEER"); v != "" {
		cfg.PeerAddr = v
	}
	if v := os.Getenv(envPrefix + "PEER_URL"); v != "" {
		cfg.PeerURL = v
	}
	if v := os.Getenv(envPrefix + "OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envPrefix + "FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sFILES: %w", envPrefix, err)
		}
		cfg.ExpectedFiles = n
	}
	if v := os.Getenv(envPrefix + "MAX_BUFFERED_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_BUFFERED_BYTES: %w", envPrefix, err)
		}
		cfg.MaxBufferedBytes = n
	}
	if v := os.Getenv(envPrefix + "RECV_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sRECV_TIMEOUT: %w", envPrefix, err)
		}
		cfg.RecvTimeout = d
	}
	if v := os.Getenv(envPrefix + "PROGRESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sPROGRESS: %w", envPrefix, err)
		}
		cfg.Progress = b
	}
	return nil
}

// findConfigArg looks for -config/--config ahead of flag parsing so the
// file can be loaded before flags are layered on top.
func findConfigArg(args []string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1], true
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v, true
		}
	}
	return "", false
}
