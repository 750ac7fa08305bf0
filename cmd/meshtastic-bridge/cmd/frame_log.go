package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/framelog"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
)

var frameLogCmd = &cobra.Command{
	Use:   "frame-log",
	Short: "Print the received and transmitted frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := storage.Setup(config.C); err != nil {
			return errors.Wrap(err, "setup storage error")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		frames := make(chan framelog.FrameLog)
		errChan := make(chan error, 1)
		go func() {
			errChan <- framelog.GetFrameLogs(ctx, frames)
		}()

		for {
			select {
			case fl := <-frames:
				printFrameLog(fl)
			case err := <-errChan:
				return err
			}
		}
	},
}

func printFrameLog(fl framelog.FrameLog) {
	if f := fl.UplinkFrame; f != nil {
		channel := f.ChannelName
		if channel == "" {
			channel = "?"
		}

		pterm.Info.Printfln("up   %s rssi=%d snr=%.2f channel=%s payload=%s",
			headerString(f.Header), f.RXInfo.RSSI, f.RXInfo.SNR, channel, hex.EncodeToString(f.Payload))
	}

	if f := fl.DownlinkFrame; f != nil {
		pterm.Success.Printfln("down %s channel=%s payload=%s",
			headerString(f.Header), f.ChannelName, hex.EncodeToString(f.Payload))
	}
}

func headerString(h packet.Header) string {
	return fmt.Sprintf("%s -> %s id=%08x hash=0x%02x hops=%d/%d want_ack=%t via_mqtt=%t",
		h.Sender, h.Destination, h.PacketID, h.ChannelHash, h.HopLimit, h.HopStart, h.WantAck, h.ViaMQTT)
}
