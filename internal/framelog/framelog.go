// Package framelog logs the raw uplink and downlink frames to a Redis
// stream, so they can be inspected using the frame-log command.
package framelog

import (
	"bytes"
	"context"
	"encoding/gob"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/models"
	"github.com/theverygaming/meshtastic-bridge/internal/packet"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
)

const (
	frameLogStreamKey = "meshtastic:stream:frame"

	frameTypeUplink   = "up"
	frameTypeDownlink = "down"
)

var maxHistory int64 = 10

// UplinkFrameLog contains the details of an uplink frame.
type UplinkFrameLog struct {
	Header  packet.Header
	Payload []byte

	// ChannelName is set when the payload could be decrypted.
	ChannelName string
	RXInfo      models.RXInfo
}

// DownlinkFrameLog contains the details of a downlink frame.
type DownlinkFrameLog struct {
	Header      packet.Header
	Payload     []byte
	ChannelName string
	Source      string
	SentAt      time.Time
}

// FrameLog contains either an uplink or downlink frame.
type FrameLog struct {
	UplinkFrame   *UplinkFrameLog
	DownlinkFrame *DownlinkFrameLog
}

// Setup configures the frame log.
func Setup(c config.Config) error {
	maxHistory = c.Monitoring.FrameLogMaxHistory
	return nil
}

// LogUplinkFrame logs the given uplink frame.
func LogUplinkFrame(ctx context.Context, frame UplinkFrameLog) error {
	return logFrame(ctx, frameTypeUplink, frame)
}

// LogDownlinkFrame logs the given downlink frame.
func LogDownlinkFrame(ctx context.Context, frame DownlinkFrameLog) error {
	return logFrame(ctx, frameTypeDownlink, frame)
}

func logFrame(ctx context.Context, typ string, frame interface{}) error {
	if maxHistory == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(frame); err != nil {
		return errors.Wrap(err, "gob encode error")
	}

	err := storage.RedisClient().XAdd(ctx, &redis.XAddArgs{
		Stream: storage.GetRedisKey(frameLogStreamKey),
		MaxLen: maxHistory,
		Approx: true,
		Values: map[string]interface{}{
			typ: buf.Bytes(),
		},
	}).Err()
	if err != nil {
		return errors.Wrap(err, "redis xadd error")
	}

	return nil
}

// GetFrameLogs reads the frames logged after calling this function and
// sends them to the given channel. It returns when the context is
// cancelled.
func GetFrameLogs(ctx context.Context, frameLogChan chan FrameLog) error {
	key := storage.GetRedisKey(frameLogStreamKey)
	lastID := "$"

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		resp, err := storage.RedisClient().XRead(ctx, &redis.XReadArgs{
			Streams: []string{key, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			return errors.Wrap(err, "redis xread error")
		}

		for _, stream := range resp {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				fl, err := redisMessageToFrameLog(msg)
				if err != nil {
					log.WithError(err).WithField("id", msg.ID).Error("framelog: decode frame error")
					continue
				}

				select {
				case frameLogChan <- fl:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func redisMessageToFrameLog(msg redis.XMessage) (FrameLog, error) {
	var fl FrameLog

	for k, v := range msg.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}

		switch k {
		case frameTypeUplink:
			fl.UplinkFrame = &UplinkFrameLog{}
			if err := gob.NewDecoder(bytes.NewReader([]byte(s))).Decode(fl.UplinkFrame); err != nil {
				return fl, errors.Wrap(err, "gob decode uplink frame error")
			}
		case frameTypeDownlink:
			fl.DownlinkFrame = &DownlinkFrameLog{}
			if err := gob.NewDecoder(bytes.NewReader([]byte(s))).Decode(fl.DownlinkFrame); err != nil {
				return fl, errors.Wrap(err, "gob decode downlink frame error")
			}
		}
	}

	if fl.UplinkFrame == nil && fl.DownlinkFrame == nil {
		return fl, errors.New("no frame in message")
	}

	return fl, nil
}
