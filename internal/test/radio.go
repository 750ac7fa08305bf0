package test

import (
	"context"

	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

// RadioBackend is a radio backend for testing.
type RadioBackend struct {
	rxPacketChan      chan models.RXPacket
	TXPacketChan      chan models.TXPacket
	SendTXPacketError error
}

// NewRadioBackend returns a new RadioBackend.
func NewRadioBackend() *RadioBackend {
	return &RadioBackend{
		rxPacketChan: make(chan models.RXPacket, 100),
		TXPacketChan: make(chan models.TXPacket, 100),
	}
}

// SendTXPacket method.
func (b *RadioBackend) SendTXPacket(ctx context.Context, pkt models.TXPacket) error {
	if b.SendTXPacketError != nil {
		return b.SendTXPacketError
	}
	b.TXPacketChan <- pkt
	return nil
}

// RXPacketChan method.
func (b *RadioBackend) RXPacketChan() chan models.RXPacket {
	return b.rxPacketChan
}

// Close method.
func (b *RadioBackend) Close() error {
	if b.rxPacketChan != nil {
		close(b.rxPacketChan)
	}
	return nil
}
