package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/Govind-619/MemberSphere/utils"
)

// ErrUnknownCommand is returned for a command with no registered handler
var ErrUnknownCommand = utils.InvalidError("common.unknown_command", "unknown command")

// Reply is the successful outcome of a handler
type Reply struct {
	Code string
	Data interface{}
}

// HandlerFunc runs one command. A returned AppError that is not internal
// is a business outcome; any other error is an infrastructure failure.
type HandlerFunc func(ctx context.Context, d Delivery) (Reply, error)

// Router maps command names to handlers
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Handle registers h for command. Registering a command twice panics.
func (r *Router) Handle(command string, h HandlerFunc) {
	if _, exists := r.handlers[command]; exists {
		panic("messaging: duplicate handler for " + command)
	}
	r.handlers[command] = h
}

// Commands lists the registered command names
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the handler registered for d.Command
func (r *Router) Dispatch(ctx context.Context, d Delivery) (Reply, error) {
	h, ok := r.handlers[d.Command]
	if !ok {
		return Reply{}, ErrUnknownCommand.WithFields(utils.FieldValidationError{Field: "cmd", Message: d.Command})
	}
	return h(ctx, d)
}

// Bind decodes the delivery payload into v and validates its binding tags
func Bind(d Delivery, v interface{}) error {
	payload := bytes.TrimSpace(d.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		payload = []byte("{}")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return utils.InvalidPayload(err)
	}
	return utils.ValidatePayload(v)
}
