package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// InboundMessage is one enqueued user message.
type InboundMessage struct {
	UserID     string
	MessageID  string
	Text       string
	ReceivedAt time.Time
}

var ErrQueueFull = errors.New("inbound queue is full")

// Enqueue hands a message to the worker without blocking; the webhook
// handler must never wait on agent invocation.
func (c *Coordinator) Enqueue(msg InboundMessage) error {
	select {
	case c.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// RunWorker drains the queue sequentially: no two ladder invocations
// ever run concurrently. Blocks until the context is cancelled.
func (c *Coordinator) RunWorker(ctx context.Context) {
	log.Info().Msg("message worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("message worker stopping")
			return
		case msg := <-c.queue:
			c.processOne(ctx, msg)
		}
	}
}

// processOne is the worker's failure boundary: any failure becomes a
// generic apology to the user and the loop keeps going.
func (c *Coordinator) processOne(ctx context.Context, msg InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("user", msg.UserID).Msg("panic while processing message")
			c.deliver(ctx, msg.UserID, MsgApology)
		}
	}()

	if err := c.HandleInbound(ctx, msg.UserID, msg.Text); err != nil {
		log.Error().Err(err).
			Str("user", msg.UserID).
			Str("message_id", msg.MessageID).
			Msg("message processing failed")
		c.deliver(ctx, msg.UserID, MsgApology)
	}
}
