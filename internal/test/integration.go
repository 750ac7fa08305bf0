package test

import (
	"context"

	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

// Integration is an integration for testing.
type Integration struct {
	UplinkEventChan      chan models.UplinkEvent
	SendUplinkEventError error
	txRequestChan        chan models.TXRequest
}

// NewIntegration returns a new Integration.
func NewIntegration() *Integration {
	return &Integration{
		UplinkEventChan: make(chan models.UplinkEvent, 100),
		txRequestChan:   make(chan models.TXRequest, 100),
	}
}

// DisableTXRequests makes TXRequestChan return nil, like publish-only
// integrations do.
func (i *Integration) DisableTXRequests() {
	i.txRequestChan = nil
}

// SendUplinkEvent method.
func (i *Integration) SendUplinkEvent(ctx context.Context, evt models.UplinkEvent) error {
	i.UplinkEventChan <- evt
	return i.SendUplinkEventError
}

// TXRequestChan method.
func (i *Integration) TXRequestChan() chan models.TXRequest {
	return i.txRequestChan
}

// Close method.
func (i *Integration) Close() error {
	if i.txRequestChan != nil {
		close(i.txRequestChan)
	}
	return nil
}
