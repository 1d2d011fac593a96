package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/Govind-619/MemberSphere/utils"
)

var errAlreadySettled = errors.New("messaging: delivery already settled")

type memoryMessage struct {
	id          string
	body        []byte
	replyTo     string
	redelivered bool
}

// MemoryTransport is an in-process queue with broker semantics: unsettled
// deliveries stay outstanding, requeued ones come back flagged as
// redelivered. It backs local runs and tests.
type MemoryTransport struct {
	queue     chan *memoryMessage
	done      chan struct{}
	closeOnce sync.Once

	mu        sync.Mutex
	acked     []string
	requeued  []string
	dropped   []string
	replies   map[string][][]byte
	unsettled map[string]*memoryMessage
}

// NewMemoryTransport creates a queue holding up to size messages
func NewMemoryTransport(size int) *MemoryTransport {
	if size <= 0 {
		size = 1024
	}
	return &MemoryTransport{
		queue:     make(chan *memoryMessage, size),
		done:      make(chan struct{}),
		replies:   make(map[string][][]byte),
		unsettled: make(map[string]*memoryMessage),
	}
}

// Publish enqueues command without a reply address
func (t *MemoryTransport) Publish(ctx context.Context, command string, payload interface{}) error {
	_, err := t.Send(ctx, command, payload, "")
	return err
}

// Send enqueues command and returns the message id. A non-empty replyTo
// collects the reply under that address.
func (t *MemoryTransport) Send(ctx context.Context, command string, payload interface{}, replyTo string) (string, error) {
	body, err := Encode(command, payload)
	if err != nil {
		return "", err
	}
	msg, err := Decode(body)
	if err != nil {
		return "", err
	}
	return msg.ID, t.enqueue(ctx, &memoryMessage{id: msg.ID, body: body, replyTo: replyTo})
}

// SendRaw enqueues body as is
func (t *MemoryTransport) SendRaw(ctx context.Context, id string, body []byte) error {
	return t.enqueue(ctx, &memoryMessage{id: id, body: body})
}

func (t *MemoryTransport) enqueue(ctx context.Context, msg *memoryMessage) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	select {
	case t.queue <- msg:
		return nil
	case <-t.done:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliveries streams queued messages until ctx ends or the transport closes
func (t *MemoryTransport) Deliveries(ctx context.Context) (<-chan Delivery, error) {
	select {
	case <-t.done:
		return nil, ErrTransportClosed
	default:
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.done:
				return
			case msg := <-t.queue:
				if ctx.Err() != nil {
					t.requeue(msg)
					return
				}
				d, ok := t.deliver(msg)
				if !ok {
					continue
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				case <-t.done:
					return
				}
			}
		}
	}()
	return out, nil
}

func (t *MemoryTransport) deliver(msg *memoryMessage) (Delivery, bool) {
	decoded, err := Decode(msg.body)
	if err != nil {
		utils.LogError("Dropping undecodable message %s: %v", msg.id, err)
		t.mu.Lock()
		t.dropped = append(t.dropped, msg.id)
		t.mu.Unlock()
		return Delivery{}, false
	}

	t.mu.Lock()
	t.unsettled[msg.id] = msg
	t.mu.Unlock()

	d := NewDelivery(decoded, &memoryAck{t: t, msg: msg})
	d.ID = msg.id
	d.Redelivered = msg.redelivered
	d.ReplyTo = msg.replyTo
	d.CorrelationID = msg.id
	return d, true
}

// RedeliverUnsettled puts every outstanding delivery back on the queue, as
// a broker does when a consumer dies
func (t *MemoryTransport) RedeliverUnsettled() int {
	t.mu.Lock()
	pending := make([]*memoryMessage, 0, len(t.unsettled))
	for id, msg := range t.unsettled {
		pending = append(pending, msg)
		delete(t.unsettled, id)
	}
	t.mu.Unlock()

	for _, msg := range pending {
		msg.redelivered = true
		t.requeue(msg)
	}
	return len(pending)
}

func (t *MemoryTransport) requeue(msg *memoryMessage) {
	select {
	case t.queue <- msg:
	case <-t.done:
	}
}

func (t *MemoryTransport) settle(msg *memoryMessage, record *[]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.unsettled[msg.id]; !ok {
		return errAlreadySettled
	}
	delete(t.unsettled, msg.id)
	*record = append(*record, msg.id)
	return nil
}

// Acked lists the ids of acknowledged deliveries in order
func (t *MemoryTransport) Acked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.acked...)
}

// Requeued lists the ids nacked with requeue
func (t *MemoryTransport) Requeued() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.requeued...)
}

// Dropped lists the ids nacked without requeue or discarded as undecodable
func (t *MemoryTransport) Dropped() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.dropped...)
}

// Unsettled counts deliveries handed out but neither acked nor nacked
func (t *MemoryTransport) Unsettled() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.unsettled)
}

// Replies returns the bodies sent to replyTo
func (t *MemoryTransport) Replies(replyTo string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.replies[replyTo]...)
}

// Close stops all delivery streams
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}

type memoryAck struct {
	t   *MemoryTransport
	msg *memoryMessage
}

func (a *memoryAck) Ack() error {
	return a.t.settle(a.msg, &a.t.acked)
}

func (a *memoryAck) Nack(requeue bool) error {
	if !requeue {
		return a.t.settle(a.msg, &a.t.dropped)
	}
	if err := a.t.settle(a.msg, &a.t.requeued); err != nil {
		return err
	}
	a.msg.redelivered = true
	a.t.requeue(a.msg)
	return nil
}

func (a *memoryAck) Reply(ctx context.Context, body []byte) error {
	a.t.mu.Lock()
	defer a.t.mu.Unlock()
	a.t.replies[a.msg.replyTo] = append(a.t.replies[a.msg.replyTo], body)
	return nil
}
