// Package channels holds the active channel registry. It is built from
// the configured channels and the channels stored in the database, and
// is refreshed periodically.
package channels

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
)

var (
	registry        = channel.NewRegistry(nil)
	static          []channel.Channel
	refreshInterval time.Duration

	// loadStored returns the stored channels, replaced in tests.
	loadStored = func(ctx context.Context) ([]storage.Channel, error) {
		if storage.DB() == nil {
			return nil, nil
		}
		return storage.GetChannels(ctx, storage.DB())
	}
)

// Setup parses the configured channels and loads the initial registry.
func Setup(ctx context.Context, c config.Config) error {
	static = nil
	for _, cc := range c.Meshtastic.Channels {
		ch, err := channel.New(cc.Name, cc.PSK)
		if err != nil {
			return errors.Wrap(err, "parse channel error")
		}
		static = append(static, ch)
	}

	refreshInterval = c.Meshtastic.ChannelRefreshInterval

	return Reload(ctx)
}

// Registry returns the active channel registry.
func Registry() *channel.Registry {
	return registry
}

// Reload rebuilds the registry from the configured and stored channels.
func Reload(ctx context.Context) error {
	stored, err := loadStored(ctx)
	if err != nil {
		return errors.Wrap(err, "get stored channels error")
	}

	set, err := buildSet(static, stored)
	if err != nil {
		return err
	}

	registry.Replace(set)

	log.WithFields(log.Fields{
		"channels": set.Names(),
	}).Debug("channels: registry reloaded")

	return nil
}

// buildSet merges the configured channels with the stored channels. On a
// name conflict the configured channel wins.
func buildSet(static []channel.Channel, stored []storage.Channel) (*channel.Set, error) {
	names := make(map[string]struct{})
	var out []channel.Channel

	for _, ch := range static {
		names[ch.Name] = struct{}{}
		out = append(out, ch)
	}

	for _, sc := range stored {
		if _, ok := names[sc.Name]; ok {
			log.WithField("channel", sc.Name).Warning("channels: stored channel shadowed by configured channel")
			continue
		}

		ch, err := sc.ToChannel()
		if err != nil {
			log.WithError(err).WithField("channel", sc.Name).Error("channels: invalid stored channel")
			continue
		}

		names[ch.Name] = struct{}{}
		out = append(out, ch)
	}

	return channel.NewSet(out...)
}

// Refresher periodically reloads the registry.
type Refresher struct {
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Start starts the refresh loop. It is a no-op when no refresh interval
// is configured.
func (r *Refresher) Start() error {
	if refreshInterval == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := Reload(ctx); err != nil {
					log.WithError(err).Error("channels: reload channels error")
				}
			}
		}
	}()

	return nil
}

// Stop stops the refresh loop.
func (r *Refresher) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return nil
}
