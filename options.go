package autopacket

import (
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// factoryOptions holds configuration resolved from a FactoryOption slice,
// grounded in inprocgrpc/options.go's functional-options pattern.
type factoryOptions struct {
	container      Container
	logger         zerolog.Logger
	tracer         trace.Tracer
	maxOutstanding int
	maxCached      int
}

// FactoryOption configures an AutoPacketFactory at construction time.
type FactoryOption interface {
	applyFactoryOption(*factoryOptions) error
}

type factoryOptionFunc func(*factoryOptions) error

func (f factoryOptionFunc) applyFactoryOption(o *factoryOptions) error { return f(o) }

// WithContainer supplies the Container used to enumerate peer/ancestor
// factories when wiring a new packet's filter set. Without one, a factory
// only ever sees its own directly registered filters.
func WithContainer(c Container) FactoryOption {
	return factoryOptionFunc(func(o *factoryOptions) error {
		if c == nil {
			return errors.New("autopacket: container must not be nil")
		}
		o.container = c
		return nil
	})
}

// WithLogger configures the factory's structured logger, which records
// factory start and stop at debug level. Packet issuance/recycling and
// filter registration are not logged. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) FactoryOption {
	return factoryOptionFunc(func(o *factoryOptions) error {
		o.logger = l
		return nil
	})
}

// WithTracer configures the tracer used for per-filter-invocation spans;
// there are no per-packet spans. Defaults to the global otel TracerProvider's tracer, which is a
// no-op until the embedding application registers a provider.
func WithTracer(t trace.Tracer) FactoryOption {
	return factoryOptionFunc(func(o *factoryOptions) error {
		if t == nil {
			return errors.New("autopacket: tracer must not be nil")
		}
		o.tracer = t
		return nil
	})
}

// WithPoolLimits bounds the packet pool's outstanding and cached counts.
// Pass Unbounded for either to remove that bound. Defaults to Unbounded for
// both, matching the source system's default ObjectPool<AutoPacket>
// configuration.
func WithPoolLimits(maxOutstanding, maxCached int) FactoryOption {
	return factoryOptionFunc(func(o *factoryOptions) error {
		o.maxOutstanding = maxOutstanding
		o.maxCached = maxCached
		return nil
	})
}

func resolveFactoryOptions(opts []FactoryOption) (*factoryOptions, error) {
	cfg := &factoryOptions{
		logger:         defaultLogger(),
		tracer:         defaultTracer(),
		maxOutstanding: Unbounded,
		maxCached:      Unbounded,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyFactoryOption(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
