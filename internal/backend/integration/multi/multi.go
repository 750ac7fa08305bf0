// Package multi implements an integration that fans out to multiple
// integrations.
package multi

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

// Integration implements the multi integration.
type Integration struct {
	wg            sync.WaitGroup
	integrations  []integration.Integration
	txRequestChan chan models.TXRequest
}

// New creates a new multi integration. The tx requests of all given
// integrations are merged into a single channel.
func New(integrations []integration.Integration) *Integration {
	i := Integration{
		integrations:  integrations,
		txRequestChan: make(chan models.TXRequest),
	}

	for _, ii := range integrations {
		c := ii.TXRequestChan()
		if c == nil {
			continue
		}

		i.wg.Add(1)
		go func(c chan models.TXRequest) {
			defer i.wg.Done()
			for req := range c {
				i.txRequestChan <- req
			}
		}(c)
	}

	return &i
}

// SendUplinkEvent sends the uplink event to all integrations. All
// integrations are tried, the first error is returned.
func (i *Integration) SendUplinkEvent(ctx context.Context, evt models.UplinkEvent) error {
	var firstErr error

	for _, ii := range i.integrations {
		if err := ii.SendUplinkEvent(ctx, evt); err != nil {
			log.WithError(err).WithField("integration", fmt.Sprintf("%T", ii)).Error("integration/multi: send uplink event error")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// TXRequestChan returns the merged tx request channel.
func (i *Integration) TXRequestChan() chan models.TXRequest {
	return i.txRequestChan
}

// Close closes all integrations. The tx request channel is closed once
// all integrations closed their channels.
func (i *Integration) Close() error {
	var firstErr error
	for _, ii := range i.integrations {
		if err := ii.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "close integration error")
		}
	}

	i.wg.Wait()
	close(i.txRequestChan)

	return firstErr
}
