package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shoptalk/shoptalk/internal/observability"
)

type Loader interface {
	Load(ctx context.Context) (Context, error)
}

// Provider caches the loaded schema context and refreshes it in the
// background. Request handling only ever reads the cached copy.
type Provider struct {
	loader   Loader
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	current Context
	loaded  bool
}

func NewProvider(loader Loader, interval time.Duration, logger *slog.Logger) *Provider {
	return &Provider{loader: loader, interval: interval, logger: logger}
}

func (p *Provider) Current() Context {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Provider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

func (p *Provider) Refresh(ctx context.Context) error {
	loaded, err := p.loader.Load(ctx)
	if err != nil {
		observability.ObserveSchemaRefresh(0, err)
		return fmt.Errorf("load schema context: %w", err)
	}

	p.mu.Lock()
	p.current = loaded
	p.loaded = true
	p.mu.Unlock()

	observability.ObserveSchemaRefresh(len(loaded.Tables), nil)
	return nil
}

// Run refreshes the context on the configured interval until the context is
// cancelled. A failed refresh keeps the previous copy.
func (p *Provider) Run(ctx context.Context) error {
	if p.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				if p.logger != nil {
					p.logger.ErrorContext(ctx, "schema refresh failed", slog.Any("error", err))
				}
				continue
			}
			if p.logger != nil {
				p.logger.InfoContext(ctx, "schema refreshed", slog.Int("tables", len(p.Current().Tables)))
			}
		}
	}
}
