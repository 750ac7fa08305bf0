package config

import (
	"time"
)

// Version defines the meshtastic-bridge version.
var Version string

// Config defines the configuration structure.
type Config struct {
	General struct {
		LogLevel    int  `mapstructure:"log_level"`
		LogToSyslog bool `mapstructure:"log_to_syslog"`
	} `mapstructure:"general"`

	PostgreSQL struct {
		DSN                string `mapstructure:"dsn"`
		Automigrate        bool   `mapstructure:"automigrate"`
		MaxOpenConnections int    `mapstructure:"max_open_connections"`
		MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	} `mapstructure:"postgresql"`

	Redis struct {
		URL        string   `mapstructure:"url"` // deprecated
		Servers    []string `mapstructure:"servers"`
		Cluster    bool     `mapstructure:"cluster"`
		MasterName string   `mapstructure:"master_name"`
		PoolSize   int      `mapstructure:"pool_size"`
		Password   string   `mapstructure:"password"`
		Database   int      `mapstructure:"database"`
		TLSEnabled bool     `mapstructure:"tls_enabled"`
		KeyPrefix  string   `mapstructure:"key_prefix"`
	} `mapstructure:"redis"`

	Meshtastic struct {
		NodeIDString           string        `mapstructure:"node_id"`
		NodeID                 uint32        `mapstructure:"-"`
		CounterMode            string        `mapstructure:"counter_mode"`
		HopLimit               uint8         `mapstructure:"hop_limit"`
		DeduplicationTTL       time.Duration `mapstructure:"deduplication_ttl"`
		ChannelRefreshInterval time.Duration `mapstructure:"channel_refresh_interval"`
		KEK                    string        `mapstructure:"kek"`
		SNRHistorySize         int           `mapstructure:"snr_history_size"`

		Channels []struct {
			Name string `mapstructure:"name"`
			PSK  string `mapstructure:"psk"`
		} `mapstructure:"channels"`
	} `mapstructure:"meshtastic"`

	Radio struct {
		Backend struct {
			Type string `mapstructure:"type"`

			MQTT struct {
				Server               string        `mapstructure:"server"`
				Username             string        `mapstructure:"username"`
				Password             string        `mapstructure:"password"`
				MaxReconnectInterval time.Duration `mapstructure:"max_reconnect_interval"`
				QOS                  uint8         `mapstructure:"qos"`
				CleanSession         bool          `mapstructure:"clean_session"`
				ClientID             string        `mapstructure:"client_id"`
				CACert               string        `mapstructure:"ca_cert"`
				TLSCert              string        `mapstructure:"tls_cert"`
				TLSKey               string        `mapstructure:"tls_key"`
				EventTopic           string        `mapstructure:"event_topic"`
				CommandTopicTemplate string        `mapstructure:"command_topic_template"`
				LockTTL              time.Duration `mapstructure:"lock_ttl"`
			} `mapstructure:"mqtt"`

			TCPModem struct {
				Server         string        `mapstructure:"server"`
				ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
				TXTimeout      time.Duration `mapstructure:"tx_timeout"`
			} `mapstructure:"tcp_modem"`
		} `mapstructure:"backend"`

		Modem struct {
			Frequency           int  `mapstructure:"frequency"`
			Bandwidth           int  `mapstructure:"bandwidth"`
			SpreadingFactor     int  `mapstructure:"spreading_factor"`
			CodingRate          int  `mapstructure:"coding_rate"`
			PreambleLength      int  `mapstructure:"preamble_length"`
			SyncWord            int  `mapstructure:"sync_word"`
			TXPower             int  `mapstructure:"tx_power"`
			Gain                int  `mapstructure:"gain"`
			CRC                 bool `mapstructure:"crc"`
			InvertIQ            bool `mapstructure:"invert_iq"`
			LowDataRateOptimize bool `mapstructure:"low_data_rate_optimize"`
		} `mapstructure:"modem"`
	} `mapstructure:"radio"`

	Integration struct {
		Enabled []string `mapstructure:"enabled"`

		MQTT struct {
			Server             string `mapstructure:"server"`
			Username           string `mapstructure:"username"`
			Password           string `mapstructure:"password"`
			QOS                uint8  `mapstructure:"qos"`
			CleanSession       bool   `mapstructure:"clean_session"`
			ClientID           string `mapstructure:"client_id"`
			CACert             string `mapstructure:"ca_cert"`
			TLSCert            string `mapstructure:"tls_cert"`
			TLSKey             string `mapstructure:"tls_key"`
			EventTopicTemplate string `mapstructure:"event_topic_template"`
			TXRequestTopic     string `mapstructure:"tx_request_topic"`
			RetainEvents       bool   `mapstructure:"retain_events"`
		} `mapstructure:"mqtt"`

		AMQP struct {
			URL                     string `mapstructure:"url"`
			EventRoutingKeyTemplate string `mapstructure:"event_routing_key_template"`
		} `mapstructure:"amqp"`

		GCPPubSub struct {
			CredentialsFile string `mapstructure:"credentials_file"`
			ProjectID       string `mapstructure:"project_id"`
			TopicName       string `mapstructure:"topic_name"`
		} `mapstructure:"gcp_pub_sub"`

		AzureServiceBus struct {
			ConnectionString string `mapstructure:"connection_string"`
			PublishMode      string `mapstructure:"publish_mode"`
			PublishName      string `mapstructure:"publish_name"`
		} `mapstructure:"azure_service_bus"`
	} `mapstructure:"integration"`

	Monitoring struct {
		Bind                string `mapstructure:"bind"`
		PrometheusEndpoint  bool   `mapstructure:"prometheus_endpoint"`
		HealthcheckEndpoint bool   `mapstructure:"healthcheck_endpoint"`
		FrameLogMaxHistory  int64  `mapstructure:"frame_log_max_history"`
	} `mapstructure:"monitoring"`
}

// C holds the global configuration.
var C Config
