// Package lingo is the batteries-included entry point: one call wires
// storage, the event bus, and the optional read-side followers into a ready
// ProgressService.
package lingo

import (
	"log/slog"

	"lingokit/adapters/memory"
	"lingokit/core"
	"lingokit/engine"
	"lingokit/integrations/webhook"
	"lingokit/leaderboard"
	"lingokit/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	storage  engine.Storage
	mode     engine.DispatchMode
	rewards  core.Rewards
	log      *slog.Logger
	hub      *realtime.Hub
	board    leaderboard.Board
	webhooks []string
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithRewards overrides the XP reward schedule.
func WithRewards(rw core.Rewards) Option { return func(c *config) { c.rewards = rw } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option { return func(c *config) { c.log = log } }

// WithRealtime wires a realtime hub to receive every domain event.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithLeaderboard keeps the given board in step with lesson completions.
func WithLeaderboard(b leaderboard.Board) Option { return func(c *config) { c.board = b } }

// WithWebhooks posts every domain event to the given URLs.
func WithWebhooks(urls ...string) Option { return func(c *config) { c.webhooks = urls } }

// New builds a configured ProgressService. Defaults when not overridden:
//   - storage: in-memory
//   - rewards: the standard schedule
//   - dispatch: async
func New(opts ...Option) (*engine.ProgressService, error) {
	cfg := &config{mode: engine.DispatchAsync, rewards: core.DefaultRewards()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = memory.New()
	}

	bus := engine.NewEventBus(cfg.mode, cfg.log)
	svc, err := engine.NewProgressService(cfg.storage, bus, cfg.rewards, cfg.log)
	if err != nil {
		return nil, err
	}

	if cfg.hub != nil {
		cfg.hub.AttachBus(bus)
	}
	if cfg.board != nil {
		leaderboard.Follow(cfg.board, bus)
	}
	if len(cfg.webhooks) > 0 {
		webhook.New(cfg.webhooks).AttachBus(bus)
	}
	return svc, nil
}
