package messaging

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Govind-619/MemberSphere/metrics"
	"github.com/Govind-619/MemberSphere/utils"
	"golang.org/x/sync/errgroup"
)

// Settlement outcomes reported to metrics
const (
	OutcomeAcked    = "ack"
	OutcomeRejected = "business_error"
	OutcomeRequeued = "requeue"
	OutcomeTimeout  = "timeout"
	OutcomeDropped  = "dropped"
)

// ErrStreamClosed is returned by Run when the transport stops delivering
// while the consumer is still meant to run
var ErrStreamClosed = errors.New("messaging: delivery stream closed")

var errHandlerPanic = errors.New("handler panicked")

// ConsumerConfig bounds the work a consumer takes on
type ConsumerConfig struct {
	Concurrency int
	Timeout     time.Duration
}

// Consumer pulls deliveries from a transport and settles each one after its
// handler returns:
//
//	success            reply, ack
//	business error     reply with the failure, ack
//	infrastructure     nack and requeue
//	timeout, shutdown  nack and requeue
//	panic              nack without requeue
type Consumer struct {
	transport Transport
	router    *Router
	cfg       ConsumerConfig
	metrics   *metrics.Metrics
}

// NewConsumer wires a consumer. m may be nil.
func NewConsumer(t Transport, r *Router, cfg ConsumerConfig, m *metrics.Metrics) *Consumer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = utils.DefaultPrefetch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Consumer{transport: t, router: r, cfg: cfg, metrics: m}
}

// Run consumes until ctx ends and waits for in-flight handlers before
// returning. It returns ErrStreamClosed if the transport gives up first.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.transport.Deliveries(ctx)
	if err != nil {
		return err
	}
	utils.LogInfo("Consumer started - Concurrency: %d, Timeout: %s, Commands: %d",
		c.cfg.Concurrency, c.cfg.Timeout, len(c.router.Commands()))

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for d := range deliveries {
		d := d
		g.Go(func() error {
			c.Handle(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		utils.LogInfo("Consumer stopped")
		return nil
	}
	return ErrStreamClosed
}

// Handle processes one delivery and settles it
func (c *Consumer) Handle(ctx context.Context, d Delivery) {
	started := time.Now()
	outcome := c.process(ctx, d)
	c.metrics.ObserveMessage(d.Command, outcome, time.Since(started))
	utils.LogDebug("Message %s (%s) settled as %s in %s", d.ID, d.Command, outcome, time.Since(started))
}

func (c *Consumer) process(parent context.Context, d Delivery) string {
	if parent.Err() != nil {
		c.nack(d, true)
		return OutcomeRequeued
	}
	if d.Redelivered {
		utils.LogInfo("Redelivered message %s (%s)", d.ID, d.Command)
	}

	ctx, cancel := context.WithTimeout(parent, c.cfg.Timeout)
	defer cancel()

	reply, err := c.dispatch(ctx, d)
	// a handler that returned a result has committed or rolled back, so
	// the result settles the message even past the deadline
	replyCtx := context.WithoutCancel(ctx)
	switch {
	case errors.Is(err, errHandlerPanic):
		c.nack(d, false)
		return OutcomeDropped
	case err == nil:
		c.reply(replyCtx, d, utils.NewSuccess(reply.Code, reply.Data))
		c.ack(d)
		return OutcomeAcked
	case utils.IsBusinessError(err):
		utils.LogInfo("Message %s (%s) failed: %v", d.ID, d.Command, err)
		c.reply(replyCtx, d, utils.NewFailure(err))
		c.ack(d)
		return OutcomeRejected
	case parent.Err() != nil:
		utils.LogInfo("Shutdown while handling message %s (%s), requeueing", d.ID, d.Command)
		c.nack(d, true)
		return OutcomeRequeued
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		utils.LogError("Message %s (%s) exceeded %s, requeueing", d.ID, d.Command, c.cfg.Timeout)
		c.nack(d, true)
		return OutcomeTimeout
	default:
		utils.LogError("Message %s (%s) hit an infrastructure error, requeueing: %v", d.ID, d.Command, err)
		c.nack(d, true)
		return OutcomeRequeued
	}
}

func (c *Consumer) dispatch(ctx context.Context, d Delivery) (reply Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			utils.LogErrorWithStack(fmt.Errorf("message %s (%s): %v", d.ID, d.Command, r), debug.Stack())
			err = errHandlerPanic
		}
	}()
	return c.router.Dispatch(ctx, d)
}

func (c *Consumer) reply(ctx context.Context, d Delivery, resp utils.StandardResponse) {
	if d.ReplyTo == "" {
		return
	}
	body, err := EncodeReply(d.ID, resp)
	if err != nil {
		utils.LogError("Failed to encode reply for message %s: %v", d.ID, err)
		body, _ = EncodeReply(d.ID, utils.NewFailure(err))
	}
	if err := d.Reply(ctx, body); err != nil {
		utils.LogError("Failed to reply to message %s: %v", d.ID, err)
	}
}

func (c *Consumer) ack(d Delivery) {
	if err := d.Ack(); err != nil {
		utils.LogError("Failed to ack message %s: %v", d.ID, err)
	}
}

func (c *Consumer) nack(d Delivery, requeue bool) {
	if err := d.Nack(requeue); err != nil {
		utils.LogError("Failed to nack message %s: %v", d.ID, err)
	}
}
