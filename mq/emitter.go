package mq

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel carries change notices between instances sharing one store.
const Channel = "dinoevent:changes"

const publishTimeout = 2 * time.Second

// Change is the notice published after a committed write. It carries no
// event data; receivers re-read the store.
type Change struct {
	Origin string `json:"origin"`
	At     int64  `json:"at"`
}

// Target is told about changes made by other instances.
type Target interface {
	Changed(ctx context.Context)
}

type Publisher struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewPublisher publishes on channel, tagging notices with origin so the
// sending instance can skip its own.
func NewPublisher(client *redis.Client, channel, origin string, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = Channel
	}
	return &Publisher{client: client, channel: channel, origin: origin, logger: logger}
}

// Changed publishes a notice. Failures are logged, never returned: the
// write has already committed and other instances catch up on the next
// scheduled refresh.
func (p *Publisher) Changed(ctx context.Context) {
	data, err := json.Marshal(Change{Origin: p.origin, At: time.Now().UnixMilli()})
	if err != nil {
		p.logger.Error("marshal change notice", "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warn("publish change notice", "channel", p.channel, "err", err)
	}
}

// Listen forwards notices from other instances to target until ctx ends.
func Listen(ctx context.Context, client *redis.Client, channel, origin string, target Target, logger *slog.Logger) error {
	if channel == "" {
		channel = Channel
	}
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no notice is missed
	// between startup and the first receive.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logger.Info("listening for change notices", "channel", channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				logger.Warn("bad change notice", "payload", msg.Payload, "err", err)
				continue
			}
			if c.Origin == origin {
				continue
			}
			logger.Debug("change notice", "origin", c.Origin)
			target.Changed(ctx)
		}
	}
}
