package rxgo

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/engine/reference"
	"github.com/hupe1980/rxgo/resource"
)

// DefaultChunkSize is the snapshot copy granularity.
const DefaultChunkSize = 4 << 20

type options struct {
	engine    engine.Engine
	workers   int
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
	chunkSize int
	verify    bool
}

// Option configures Cache, Dataset and Machine constructors.
type Option func(*options)

// WithEngine selects the hashing engine. Handles from different engines
// cannot be combined.
//
// If nil is passed, the registered default engine is used (librandomx when
// built with the "randomx" tag, the reference engine otherwise).
func WithEngine(e engine.Engine) Option {
	return func(o *options) {
		o.engine = e
	}
}

// WithWorkers sets the number of dataset initialization workers.
// Values below 1 select DefaultWorkers(); values above MaxWorkers are
// clamped. A build never starts more workers than there are items.
//
// Tests use this to force a single synchronous worker or a fixed fan-out.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := rxgo.NewJSONLogger(slog.LevelInfo)
//	ds, _ := rxgo.NewDataset(ctx, flags, key, rxgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithResourceController accounts cache and dataset memory, dataset build
// slots and snapshot IO against rc.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithChunkSize sets the snapshot copy granularity in bytes.
// Values below 1 select DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithVerify makes OpenDataset check the snapshot manifest sidecar
// (geometry, flags, checksum) before accepting a snapshot.
func WithVerify(verify bool) Option {
	return func(o *options) {
		o.verify = verify
	}
}

var referenceEngine = sync.OnceValue(reference.New)

// DefaultEngine returns the engine used when WithEngine is not given.
func DefaultEngine() engine.Engine {
	if e := engine.Default(); e != nil {
		return e
	}
	return referenceEngine()
}

func applyOptions(optFns []Option) (options, error) {
	o := options{
		workers:   DefaultWorkers(),
		logger:    NoopLogger(),
		metrics:   NoopMetricsCollector{},
		chunkSize: DefaultChunkSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.engine == nil {
		o.engine = DefaultEngine()
	}
	if o.workers < 1 {
		o.workers = DefaultWorkers()
	}
	o.workers = min(o.workers, MaxWorkers)
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	if o.chunkSize < 1 {
		o.chunkSize = DefaultChunkSize
	}

	if hs := o.engine.HashSize(); hs != DigestSize {
		return o, fmt.Errorf("%w: %s produces %d-byte digests, want %d", ErrUnsupportedEngine, o.engine.Name(), hs, DigestSize)
	}
	return o, nil
}
