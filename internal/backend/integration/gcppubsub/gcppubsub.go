// Package gcppubsub implements a Google Cloud Pub/Sub integration.
package gcppubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/theverygaming/meshtastic-bridge/internal/backend/integration"
	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
)

const integrationName = "gcp_pub_sub"

// Integration implements a Google Cloud Pub/Sub integration.
type Integration struct {
	ctx    context.Context
	cancel context.CancelFunc

	client *pubsub.Client
	topic  *pubsub.Topic
}

// New creates a new Pub/Sub integration.
func New(c config.Config) (*Integration, error) {
	conf := c.Integration.GCPPubSub

	var o []option.ClientOption
	if conf.CredentialsFile != "" {
		o = append(o, option.WithCredentialsFile(conf.CredentialsFile))
	}

	return newIntegration(conf.ProjectID, conf.TopicName, o...)
}

func newIntegration(projectID, topicName string, o ...option.ClientOption) (*Integration, error) {
	var i Integration
	var err error

	i.ctx, i.cancel = context.WithCancel(context.Background())

	log.Info("integration/gcp_pub_sub: setting up client")
	i.client, err = pubsub.NewClient(i.ctx, projectID, o...)
	if err != nil {
		return nil, errors.Wrap(err, "integration/gcp_pub_sub: new pubsub client error")
	}

	log.WithField("topic", topicName).Info("integration/gcp_pub_sub: setup topic")
	i.topic = i.client.Topic(topicName)
	ok, err := i.topic.Exists(i.ctx)
	if err != nil {
		return nil, errors.Wrap(err, "integration/gcp_pub_sub: topic exists error")
	}
	if !ok {
		return nil, fmt.Errorf("integration/gcp_pub_sub: topic '%s' does not exist", topicName)
	}

	return &i, nil
}

// SendUplinkEvent publishes the uplink event as JSON.
func (i *Integration) SendUplinkEvent(ctx context.Context, evt models.UplinkEvent) error {
	start := time.Now()

	b, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "integration/gcp_pub_sub: marshal event error")
	}

	res := i.topic.Publish(ctx, &pubsub.Message{
		Data: b,
		Attributes: map[string]string{
			"event":   "up",
			"channel": evt.ChannelName,
			"sender":  evt.Sender.String(),
		},
	})
	if _, err := res.Get(ctx); err != nil {
		integration.EventErrorCounter(integrationName, "up").Inc()
		return errors.Wrap(err, "integration/gcp_pub_sub: get publish result error")
	}

	integration.EventCounter(integrationName, "up").Inc()

	log.WithFields(log.Fields{
		"duration": time.Since(start),
		"channel":  evt.ChannelName,
		"sender":   evt.Sender,
	}).Info("integration/gcp_pub_sub: uplink event published")

	return nil
}

// TXRequestChan returns nil, the Pub/Sub integration is publish-only.
func (i *Integration) TXRequestChan() chan models.TXRequest {
	return nil
}

// Close closes the integration.
func (i *Integration) Close() error {
	log.Info("integration/gcp_pub_sub: closing integration")
	i.topic.Stop()
	i.cancel()
	return i.client.Close()
}
