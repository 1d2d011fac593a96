package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/metrics"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 5 * time.Second

type echoPayload struct {
	UserID string `json:"userId" binding:"required"`
}

var errNoBalance = utils.InsufficientFundsError("wallet.insufficient_balance", "insufficient wallet balance")

func startConsumer(t *testing.T, transport *MemoryTransport, router *Router, cfg ConsumerConfig) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	consumer := NewConsumer(transport, router, cfg, metrics.MustNew(prometheus.NewRegistry()))
	done := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		done <- consumer.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(waitFor):
		}
	})
	return cancel, done
}

func decodeReply(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var reply map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &reply))
	return reply
}

func TestConsumerAcksAndRepliesOnSuccess(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	router.Handle("core.echo", func(ctx context.Context, d Delivery) (Reply, error) {
		var p echoPayload
		if err := Bind(d, &p); err != nil {
			return Reply{}, err
		}
		return Reply{Code: "echo.ok", Data: p}, nil
	})
	startConsumer(t, transport, router, ConsumerConfig{Concurrency: 1, Timeout: time.Second})

	id, err := transport.Send(context.Background(), "core.echo", echoPayload{UserID: "user-1"}, "gateway.reply")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(transport.Acked()) == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{id}, transport.Acked())
	assert.Zero(t, transport.Unsettled())

	replies := transport.Replies("gateway.reply")
	require.Len(t, replies, 1)
	reply := decodeReply(t, replies[0])
	assert.Equal(t, id, reply["id"])
	assert.Equal(t, true, reply["isDisposed"])
	response := reply["response"].(map[string]interface{})
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "echo.ok", response["code"])
	assert.Equal(t, "user-1", response["data"].(map[string]interface{})["userId"])
}

func TestConsumerAcksBusinessErrors(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	router.Handle("core.charge", func(ctx context.Context, d Delivery) (Reply, error) {
		return Reply{}, errNoBalance
	})
	router.Handle("core.echo", func(ctx context.Context, d Delivery) (Reply, error) {
		var p echoPayload
		if err := Bind(d, &p); err != nil {
			return Reply{}, err
		}
		return Reply{Code: "echo.ok"}, nil
	})
	startConsumer(t, transport, router, ConsumerConfig{Concurrency: 1, Timeout: time.Second})
	ctx := context.Background()

	_, err := transport.Send(ctx, "core.charge", nil, "r1")
	require.NoError(t, err)
	_, err = transport.Send(ctx, "core.echo", map[string]string{}, "r2")
	require.NoError(t, err)
	_, err = transport.Send(ctx, "core.nothing", nil, "r3")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(transport.Acked()) == 3 }, waitFor, 10*time.Millisecond)
	assert.Empty(t, transport.Requeued())

	failure := decodeReply(t, transport.Replies("r1")[0])["err"].(map[string]interface{})
	assert.Equal(t, "wallet.insufficient_balance", failure["code"])
	assert.Equal(t, false, failure["success"])

	invalid := decodeReply(t, transport.Replies("r2")[0])["err"].(map[string]interface{})
	assert.Equal(t, utils.CodeInvalidPayload, invalid["code"])
	fields := invalid["error"].(map[string]interface{})["fields"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "userId", fields[0].(map[string]interface{})["field"])

	unknown := decodeReply(t, transport.Replies("r3")[0])["err"].(map[string]interface{})
	assert.Equal(t, "common.unknown_command", unknown["code"])
}

func TestConsumerRequeuesInfrastructureErrors(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	var calls int32
	var sawRedelivery atomic.Bool
	router.Handle("core.flaky", func(ctx context.Context, d Delivery) (Reply, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return Reply{}, errors.New("connection refused")
		}
		sawRedelivery.Store(d.Redelivered)
		return Reply{Code: "flaky.ok"}, nil
	})
	startConsumer(t, transport, router, ConsumerConfig{Concurrency: 1, Timeout: time.Second})

	id, err := transport.Send(context.Background(), "core.flaky", nil, "r")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(transport.Acked()) == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{id}, transport.Requeued())
	assert.True(t, sawRedelivery.Load())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	// only the successful attempt replies
	require.Len(t, transport.Replies("r"), 1)
}

func TestConsumerRequeuesOnTimeout(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	var calls int32
	router.Handle("core.slow", func(ctx context.Context, d Delivery) (Reply, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			<-ctx.Done()
			return Reply{}, ctx.Err()
		}
		return Reply{Code: "slow.ok"}, nil
	})
	startConsumer(t, transport, router, ConsumerConfig{Concurrency: 1, Timeout: 50 * time.Millisecond})

	id, err := transport.Send(context.Background(), "core.slow", nil, "r")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(transport.Acked()) == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{id}, transport.Requeued())
	require.Len(t, transport.Replies("r"), 1)
	assert.Equal(t, true, decodeReply(t, transport.Replies("r")[0])["response"].(map[string]interface{})["success"])
}

func TestConsumerAcksResultReturnedPastDeadline(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	var calls int32
	router.Handle("core.late", func(ctx context.Context, d Delivery) (Reply, error) {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return Reply{Code: "late.ok"}, nil
	})
	startConsumer(t, transport, router, ConsumerConfig{Concurrency: 1, Timeout: 30 * time.Millisecond})

	id, err := transport.Send(context.Background(), "core.late", nil, "r")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(transport.Acked()) == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{id}, transport.Acked())
	assert.Empty(t, transport.Requeued())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Len(t, transport.Replies("r"), 1)
	response := decodeReply(t, transport.Replies("r")[0])["response"].(map[string]interface{})
	assert.Equal(t, "late.ok", response["code"])
}

func TestConsumerDropsPanickingMessage(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	router.Handle("core.boom", func(ctx context.Context, d Delivery) (Reply, error) {
		panic("nil map")
	})
	startConsumer(t, transport, router, ConsumerConfig{Concurrency: 1, Timeout: time.Second})

	id, err := transport.Send(context.Background(), "core.boom", nil, "r")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(transport.Dropped()) == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{id}, transport.Dropped())
	assert.Empty(t, transport.Acked())
	assert.Empty(t, transport.Replies("r"))
}

func TestConsumerDropsUndecodableMessage(t *testing.T) {
	transport := NewMemoryTransport(0)
	startConsumer(t, transport, NewRouter(), ConsumerConfig{Concurrency: 1, Timeout: time.Second})

	require.NoError(t, transport.SendRaw(context.Background(), "raw-1", []byte(`{"data":{}}`)))
	require.Eventually(t, func() bool { return len(transport.Dropped()) == 1 }, waitFor, 10*time.Millisecond)
	assert.Equal(t, []string{"raw-1"}, transport.Dropped())
}

func TestConsumerBoundsConcurrency(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	router.Handle("core.work", func(ctx context.Context, d Delivery) (Reply, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return Reply{Code: "work.ok"}, nil
	})
	startConsumer(t, transport, router, ConsumerConfig{Concurrency: 2, Timeout: time.Second})

	for i := 0; i < 8; i++ {
		require.NoError(t, transport.Publish(context.Background(), "core.work", nil))
	}

	require.Eventually(t, func() bool { return len(transport.Acked()) == 8 }, waitFor, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
	assert.GreaterOrEqual(t, peak, 1)
}

func TestConsumerRequeuesInFlightWorkOnShutdown(t *testing.T) {
	transport := NewMemoryTransport(0)
	router := NewRouter()
	started := make(chan struct{})
	router.Handle("core.block", func(ctx context.Context, d Delivery) (Reply, error) {
		close(started)
		<-ctx.Done()
		return Reply{}, ctx.Err()
	})
	cancel, done := startConsumer(t, transport, router, ConsumerConfig{Concurrency: 1, Timeout: time.Minute})

	id, err := transport.Send(context.Background(), "core.block", nil, "")
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(waitFor):
		t.Fatal("handler never started")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("consumer did not stop")
	}
	assert.Equal(t, []string{id}, transport.Requeued())
	assert.Empty(t, transport.Acked())
}

func TestConsumerReportsClosedStream(t *testing.T) {
	transport := NewMemoryTransport(0)
	_, done := startConsumer(t, transport, NewRouter(), ConsumerConfig{})

	require.NoError(t, transport.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStreamClosed)
	case <-time.After(waitFor):
		t.Fatal("consumer did not notice the closed transport")
	}
	assert.ErrorIs(t, transport.Publish(context.Background(), "core.work", nil), ErrTransportClosed)
}

func TestRedeliverUnsettled(t *testing.T) {
	transport := NewMemoryTransport(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := transport.Send(ctx, "core.work", nil, "")
	require.NoError(t, err)
	deliveries, err := transport.Deliveries(ctx)
	require.NoError(t, err)

	first := <-deliveries
	assert.False(t, first.Redelivered)
	assert.Equal(t, 1, transport.Unsettled())

	// the worker dies without settling
	assert.Equal(t, 1, transport.RedeliverUnsettled())
	second := <-deliveries
	assert.True(t, second.Redelivered)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, second.Ack())
	assert.Error(t, first.Ack())
	assert.Zero(t, transport.Unsettled())
}

func TestRouterRejectsDuplicateCommand(t *testing.T) {
	router := NewRouter()
	h := func(ctx context.Context, d Delivery) (Reply, error) { return Reply{}, nil }
	router.Handle("core.a", h)
	assert.Panics(t, func() { router.Handle("core.a", h) })
	assert.Equal(t, []string{"core.a"}, router.Commands())
}
