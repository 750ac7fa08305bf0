package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
)

var channelInfoCmd = &cobra.Command{
	Use:   "channel-info",
	Short: "Print the name, hash and key of the configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := pterm.TableData{
			{"Name", "Hash", "Cipher", "PSK"},
		}

		for _, cc := range config.C.Meshtastic.Channels {
			ch, err := channel.New(cc.Name, cc.PSK)
			if err != nil {
				return errors.Wrap(err, "parse channel error")
			}

			data = append(data, channelInfoRow(ch))
		}

		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

func channelInfoRow(ch channel.Channel) []string {
	cipher := "none"
	switch len(ch.Key) {
	case channel.AES128KeySize:
		cipher = "AES128-CTR"
	case channel.AES256KeySize:
		cipher = "AES256-CTR"
	}

	return []string{
		ch.Name,
		fmt.Sprintf("0x%02x", ch.Hash),
		cipher,
		ch.PSK(),
	}
}
