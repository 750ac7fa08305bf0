package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration/amqp"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration/azureservicebus"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration/gcppubsub"
	mqttintegration "github.com/theverygaming/meshtastic-bridge/internal/backend/integration/mqtt"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration/multi"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration/postgresql"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/radio"
	mqttradio "github.com/theverygaming/meshtastic-bridge/internal/backend/radio/mqtt"
	"github.com/theverygaming/meshtastic-bridge/internal/backend/radio/tcpmodem"
	"github.com/theverygaming/meshtastic-bridge/internal/channels"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/downlink"
	"github.com/theverygaming/meshtastic-bridge/internal/framelog"
	"github.com/theverygaming/meshtastic-bridge/internal/monitoring"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
	"github.com/theverygaming/meshtastic-bridge/internal/uplink"
)

func run(cmd *cobra.Command, args []string) error {
	var uplinkServer = new(uplink.Server)
	var downlinkServer = new(downlink.Server)
	var refresher = new(channels.Refresher)

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return errors.Wrap(err, "could not create cpu profile file")
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			return errors.Wrap(err, "could not start cpu profile")
		}
		defer pprof.StopCPUProfile()
	}

	tasks := []func() error{
		setLogLevel,
		setSyslog,
		printStartMessage,
		setupStorage,
		setupChannels,
		setupFrameLog,
		setRadioBackend,
		setIntegration,
		setupMonitoring,
		setupUplink,
		setupDownlink,
		startChannelRefresher(refresher),
		startUplink(uplinkServer),
		startDownlink(downlinkServer),
	}

	for _, t := range tasks {
		if err := t(); err != nil {
			log.Fatal(err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	exitChan := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	log.WithField("signal", <-sigChan).Info("signal received")
	go func() {
		log.Warning("stopping meshtastic-bridge")
		if err := radio.Backend().Close(); err != nil {
			log.WithError(err).Error("close radio backend error")
		}
		if err := uplinkServer.Stop(); err != nil {
			log.Fatal(err)
		}
		if err := integration.GetIntegration().Close(); err != nil {
			log.WithError(err).Error("close integration error")
		}
		if err := downlinkServer.Stop(); err != nil {
			log.Fatal(err)
		}
		if err := refresher.Stop(); err != nil {
			log.Fatal(err)
		}
		exitChan <- struct{}{}
	}()
	select {
	case <-exitChan:
	case s := <-sigChan:
		log.WithField("signal", s).Info("signal received, stopping immediately")
	}

	return nil
}

func setLogLevel() error {
	log.SetLevel(log.Level(uint8(config.C.General.LogLevel)))
	return nil
}

func printStartMessage() error {
	log.WithFields(log.Fields{
		"version":      version,
		"node_id":      fmt.Sprintf("!%08x", config.C.Meshtastic.NodeID),
		"counter_mode": config.C.Meshtastic.CounterMode,
		"radio":        config.C.Radio.Backend.Type,
		"integrations": config.C.Integration.Enabled,
	}).Info("starting meshtastic-bridge")
	return nil
}

func setupStorage() error {
	if err := storage.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup storage error")
	}
	return nil
}

func setupChannels() error {
	if err := channels.Setup(context.Background(), config.C); err != nil {
		return errors.Wrap(err, "setup channels error")
	}
	return nil
}

func setupFrameLog() error {
	if err := framelog.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup frame log error")
	}
	return nil
}

func setRadioBackend() error {
	var err error
	var r radio.Radio

	switch config.C.Radio.Backend.Type {
	case "mqtt":
		r, err = mqttradio.NewBackend(config.C)
	case "tcp_modem":
		r, err = tcpmodem.NewBackend(config.C)
	default:
		return fmt.Errorf("unexpected radio backend type: %s", config.C.Radio.Backend.Type)
	}

	if err != nil {
		return errors.Wrap(err, "radio-backend setup failed")
	}

	radio.SetBackend(r)
	return nil
}

func setIntegration() error {
	var integrations []integration.Integration

	for _, name := range config.C.Integration.Enabled {
		var i integration.Integration
		var err error

		switch name {
		case "mqtt":
			i, err = mqttintegration.New(config.C)
		case "amqp":
			i, err = amqp.New(config.C)
		case "gcp_pub_sub":
			i, err = gcppubsub.New(config.C)
		case "azure_service_bus":
			i, err = azureservicebus.New(config.C)
		case "postgresql":
			i = postgresql.New(storage.DB())
		default:
			return fmt.Errorf("unknown integration type: %s", name)
		}

		if err != nil {
			return errors.Wrapf(err, "setup %s integration error", name)
		}

		integrations = append(integrations, i)
	}

	integration.SetIntegration(multi.New(integrations))
	return nil
}

func setupMonitoring() error {
	if err := monitoring.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup monitoring error")
	}
	return nil
}

func setupUplink() error {
	if err := uplink.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup uplink error")
	}
	return nil
}

func setupDownlink() error {
	if err := downlink.Setup(config.C); err != nil {
		return errors.Wrap(err, "setup downlink error")
	}
	return nil
}

func startChannelRefresher(r *channels.Refresher) func() error {
	return func() error {
		return r.Start()
	}
}

func startUplink(server *uplink.Server) func() error {
	return func() error {
		return server.Start()
	}
}

func startDownlink(server *downlink.Server) func() error {
	return func() error {
		return server.Start()
	}
}
