package channels

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/theverygaming/meshtastic-bridge/internal/channel"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
)

func TestChannels(t *testing.T) {
	Convey("Given a configuration with two channels", t, func() {
		var c config.Config
		c.Meshtastic.Channels = append(c.Meshtastic.Channels,
			struct {
				Name string `mapstructure:"name"`
				PSK  string `mapstructure:"psk"`
			}{Name: "LongFast", PSK: "AQ=="},
			struct {
				Name string `mapstructure:"name"`
				PSK  string `mapstructure:"psk"`
			}{Name: "Clear", PSK: "AA=="},
		)

		var stored []storage.Channel
		var storedErr error
		loadStored = func(ctx context.Context) ([]storage.Channel, error) {
			return stored, storedErr
		}

		Convey("When no channels are stored", func() {
			So(Setup(context.Background(), c), ShouldBeNil)

			Convey("Then the registry contains the configured channels", func() {
				So(Registry().Set().Names(), ShouldResemble, []string{"Clear", "LongFast"})

				ch, ok := Registry().Get("LongFast")
				So(ok, ShouldBeTrue)
				So(ch.Hash, ShouldEqual, uint8(0x08))
				So(ch.Key, ShouldResemble, channel.DefaultKey())

				ch, ok = Registry().Get("Clear")
				So(ok, ShouldBeTrue)
				So(ch.Encrypted(), ShouldBeFalse)

				So(Registry().Candidates(0x08), ShouldHaveLength, 1)
			})
		})

		Convey("When channels are stored", func() {
			stored = []storage.Channel{
				{Name: "LongFast", Key: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}},
				{Name: "MediumSlow", Key: channel.DefaultKey()},
			}
			So(Setup(context.Background(), c), ShouldBeNil)

			Convey("Then the configured channel wins", func() {
				So(Registry().Set().Names(), ShouldResemble, []string{"Clear", "LongFast", "MediumSlow"})

				ch, ok := Registry().Get("LongFast")
				So(ok, ShouldBeTrue)
				So(ch.Key, ShouldResemble, channel.DefaultKey())

				ch, ok = Registry().Get("MediumSlow")
				So(ok, ShouldBeTrue)
				So(ch.Hash, ShouldEqual, uint8(0x18))
			})
		})

		Convey("When loading the stored channels fails", func() {
			So(Setup(context.Background(), c), ShouldBeNil)
			storedErr = errors.New("boom")

			Convey("Then reload fails and keeps the active registry", func() {
				So(Reload(context.Background()), ShouldNotBeNil)
				So(Registry().Set().Names(), ShouldResemble, []string{"Clear", "LongFast"})
			})
		})

		Convey("When a configured channel has an empty psk", func() {
			c.Meshtastic.Channels[1].PSK = ""

			Convey("Then setup fails", func() {
				err := Setup(context.Background(), c)
				So(errors.Cause(err), ShouldEqual, channel.ErrEmptyPSK)
			})
		})
	})
}
