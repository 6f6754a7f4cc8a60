package apolloAuth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/apolloAuth/internal/audit"
	"github.com/MrEthical07/apolloAuth/reqcache"
	"github.com/MrEthical07/apolloAuth/tokenslot"
)

// Builder assembles a [Coordinator]. A Builder can be used once.
type Builder struct {
	config Config

	exchange CredentialExchange
	slot     TokenSlot
	cache    RequestCache
	logger   *slog.Logger
	sink     EventSink

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithExchange sets the credential exchange. Required.
func (b *Builder) WithExchange(exchange CredentialExchange) *Builder {
	b.exchange = exchange
	return b
}

// WithTokenSlot sets the durable token slot. Defaults to an empty in-memory slot.
func (b *Builder) WithTokenSlot(slot TokenSlot) *Builder {
	b.slot = slot
	return b
}

// WithRequestCache sets the shared request cache. Defaults to an in-memory cache.
func (b *Builder) WithRequestCache(cache RequestCache) *Builder {
	b.cache = cache
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithEventSink sets the event sink and enables event dispatch.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	b.config.Events.Enabled = sink != nil
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) WithValidation(enabled bool) *Builder {
	b.config.Validation.Enabled = enabled
	return b
}

// Build validates the configuration, seeds the session token from the slot
// and returns the Coordinator. A slot that cannot be read leaves the session
// anonymous and does not fail Build.
func (b *Builder) Build() (*Coordinator, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.exchange == nil {
		return nil, errors.New("credential exchange required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		config:     cfg,
		exchange:   b.exchange,
		slot:       b.slot,
		cache:      b.cache,
		logger:     b.logger,
		state:      newState(),
		gate:       newBootstrapGate(),
		metrics:    NewMetrics(cfg.Metrics),
		rehydrated: make(chan struct{}),
		now:        time.Now,
	}
	if c.slot == nil {
		c.slot = tokenslot.NewMemory("")
	}
	if c.cache == nil {
		c.cache = reqcache.NewMemory()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.events = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Events.Enabled,
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
		Logger:     c.logger,
	}, b.sink)

	c.seedFromSlot(context.Background())

	b.built = true
	return c, nil
}
