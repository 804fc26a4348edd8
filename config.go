package rxgo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/engine/native" // registers librandomx when built with -tags randomx
	"github.com/hupe1980/rxgo/engine/reference"
	"github.com/hupe1980/rxgo/resource"
)

var errConfigInvalid = errors.New("invalid config")

// Config is the file form of the constructor options. It is read from JSON
// with comments and trailing commas allowed (JSONC).
//
//	{
//	    // hashing flags, or "auto" for RecommendedFlags()
//	    "flags": "hard_aes|jit",
//	    "workers": 8,
//	    "log_level": "info",
//	    "memory_limit_bytes": 4294967296,
//	}
type Config struct {
	// Engine is "librandomx", "reference" or empty for the default engine.
	Engine string `json:"engine,omitempty"`

	// Flags is a ParseFlags expression or "auto".
	Flags string `json:"flags,omitempty"`

	Workers   int  `json:"workers,omitempty"`
	ChunkSize int  `json:"chunk_size,omitempty"`
	Verify    bool `json:"verify,omitempty"`

	// LogLevel is debug, info, warn or error. Empty disables logging.
	LogLevel string `json:"log_level,omitempty"`
	// LogFormat is text (default) or json.
	LogFormat string `json:"log_format,omitempty"`

	MemoryLimitBytes    int64 `json:"memory_limit_bytes,omitempty"`
	MaxConcurrentBuilds int64 `json:"max_concurrent_builds,omitempty"`
	IOLimitBytesPerSec  int64 `json:"io_limit_bytes_per_sec,omitempty"`
}

// ParseConfig parses a JSONC document.
func ParseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: invalid JSONC: %w", errConfigInvalid, err)
	}

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errConfigInvalid, err)
	}
	return cfg, nil
}

// LoadConfig reads and parses the config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally caller-controlled
	if err != nil {
		return Config{}, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParsedFlags returns the configured flags.
func (c Config) ParsedFlags() (Flags, error) {
	if strings.EqualFold(strings.TrimSpace(c.Flags), "auto") {
		return RecommendedFlags(), nil
	}
	return ParseFlags(c.Flags)
}

// Options converts the config into constructor options.
func (c Config) Options() ([]Option, error) {
	var opts []Option

	eng, err := c.engine()
	if err != nil {
		return nil, err
	}
	if eng != nil {
		opts = append(opts, WithEngine(eng))
	}

	if c.Workers > 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	if c.ChunkSize > 0 {
		opts = append(opts, WithChunkSize(c.ChunkSize))
	}
	if c.Verify {
		opts = append(opts, WithVerify(true))
	}

	if c.LogLevel != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			return nil, fmt.Errorf("%w: log_level: %w", errConfigInvalid, err)
		}
		switch strings.ToLower(c.LogFormat) {
		case "", "text":
			opts = append(opts, WithLogger(NewTextLogger(level)))
		case "json":
			opts = append(opts, WithLogger(NewJSONLogger(level)))
		default:
			return nil, fmt.Errorf("%w: unknown log_format %q", errConfigInvalid, c.LogFormat)
		}
	}

	if c.MemoryLimitBytes > 0 || c.MaxConcurrentBuilds > 0 || c.IOLimitBytesPerSec > 0 {
		opts = append(opts, WithResourceController(resource.NewController(resource.Config{
			MemoryLimitBytes:    c.MemoryLimitBytes,
			MaxConcurrentBuilds: c.MaxConcurrentBuilds,
			IOLimitBytesPerSec:  c.IOLimitBytesPerSec,
		})))
	}

	return opts, nil
}

func (c Config) engine() (engine.Engine, error) {
	switch strings.ToLower(c.Engine) {
	case "", "default":
		return nil, nil
	case "reference":
		return DefaultReferenceEngine(), nil
	case "librandomx", "randomx", "native":
		e, err := native.New()
		if err != nil {
			return nil, fmt.Errorf("%w: engine %q: %w", errConfigInvalid, c.Engine, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", errConfigInvalid, c.Engine)
	}
}

// DefaultReferenceEngine returns the shared reference engine with its
// default configuration.
func DefaultReferenceEngine() *reference.Engine {
	return referenceEngine()
}
