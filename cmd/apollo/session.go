package main

import (
	"context"
	"errors"
	"fmt"
	"net"

	apolloAuth "github.com/MrEthical07/apolloAuth"
	"github.com/MrEthical07/apolloAuth/exchange"
	"github.com/MrEthical07/apolloAuth/internal/cliconfig"
	"github.com/MrEthical07/apolloAuth/internal/output"
	"github.com/MrEthical07/apolloAuth/reqcache"
	"github.com/MrEthical07/apolloAuth/tokenslot"
	"github.com/redis/go-redis/v9"
)

// session is a bootstrapped coordinator plus the resources behind it.
type session struct {
	coord    *apolloAuth.Coordinator
	client   *exchange.Client
	slotDesc string
	rdb      *redis.Client
}

// openSession builds the coordinator over the configured slot and cache and
// waits for the bootstrap gate.
func (c *cli) openSession(ctx context.Context) (*session, error) {
	cfg := c.cfg

	client, err := exchange.New(exchange.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, configError(err)
	}

	s := &session{client: client}
	if cfg.UsesRedis() {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	slot, desc, err := c.buildSlot(s.rdb)
	if err != nil {
		s.Close()
		return nil, configError(err)
	}
	s.slotDesc = desc

	var cache apolloAuth.RequestCache
	if cfg.Cache.Backend == cliconfig.CacheRedis {
		cache = reqcache.NewRedis(s.rdb, cfg.Cache.RedisPrefix, cfg.Cache.TTL)
	} else {
		cache = reqcache.NewMemory()
	}

	coordCfg, err := apolloAuth.ConfigFromEnv()
	if err != nil {
		s.Close()
		return nil, configError(err)
	}

	builder := apolloAuth.New().
		WithConfig(coordCfg).
		WithExchange(client).
		WithTokenSlot(slot).
		WithRequestCache(cache).
		WithLogger(c.logger)
	if sink := c.eventSink(coordCfg); sink != nil {
		builder = builder.WithEventSink(sink)
	}
	coord, err := builder.Build()
	if err != nil {
		s.Close()
		return nil, configError(err)
	}
	s.coord = coord

	if err := coord.Bootstrap(ctx).Wait(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := coord.SlotErr(); err != nil {
		c.printer.Warning("token slot unavailable, session kept in memory only: %v", err)
	}
	return s, nil
}

func (c *cli) buildSlot(rdb *redis.Client) (apolloAuth.TokenSlot, string, error) {
	cfg := c.cfg.Slot
	if cfg.Backend == cliconfig.SlotRedis {
		slot := tokenslot.NewRedis(rdb, cfg.RedisKey, cfg.RedisTTL)
		return slot, fmt.Sprintf("redis %s/%s", c.cfg.Redis.Addr, slot.Key()), nil
	}

	var opts []tokenslot.FileOption
	desc := "file " + cfg.Path
	if cfg.Seal {
		id, err := tokenslot.LoadOrCreateIdentity(cfg.IdentityPath)
		if err != nil {
			return nil, "", err
		}
		opts = append(opts, tokenslot.WithIdentity(id))
		desc += " (sealed)"
	}
	return tokenslot.NewFile(cfg.Path, opts...), desc, nil
}

// Close flushes events and releases the Redis client.
// eventSink logs session events when --verbose is set or the environment
// enables events.
func (c *cli) eventSink(cfg apolloAuth.Config) apolloAuth.EventSink {
	if !c.verbose && !cfg.Events.Enabled {
		return nil
	}
	return apolloAuth.NewLogSink(c.logger)
}

func (s *session) Close() {
	if s.coord != nil {
		s.coord.Close()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
}

func configError(err error) error {
	return &output.CLIError{
		Summary:  "Invalid configuration",
		Detail:   err.Error(),
		ExitCode: output.ExitConfigError,
	}
}

// describeError maps session errors to user-facing CLI errors.
func describeError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *exchange.APIError
	var netErr net.Error
	switch {
	case errors.Is(err, apolloAuth.ErrInvalidInput):
		return &output.CLIError{
			Summary:  "Invalid input",
			Detail:   err.Error(),
			ExitCode: output.ExitUsageError,
		}
	case errors.Is(err, apolloAuth.ErrNotAuthenticated):
		return &output.CLIError{
			Summary:    "Not logged in",
			Suggestion: "Run 'apollo login'",
			ExitCode:   output.ExitAuthError,
		}
	case errors.As(err, &apiErr):
		cliErr := &output.CLIError{
			Summary:  apiErr.Detail,
			Detail:   apiErr.Error(),
			ExitCode: output.ExitGeneral,
		}
		if apiErr.Unauthorized() {
			cliErr.ExitCode = output.ExitAuthError
		}
		return cliErr
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return &output.CLIError{
			Summary:    "Credential API unreachable",
			Detail:     err.Error(),
			Suggestion: "Check api.base_url and that the service is running",
			ExitCode:   output.ExitNetworkError,
		}
	}
	return err
}
