package messaging

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Govind-619/MemberSphere/utils"
	"github.com/google/uuid"
)

// Message is the envelope exchanged with the gateway:
// {"pattern":{"cmd":"core.membership.subscribe"},"data":{...},"id":"..."}
type Message struct {
	ID      string
	Command string
	Data    json.RawMessage
}

type pattern struct {
	Cmd string `json:"cmd"`
}

type envelope struct {
	Pattern json.RawMessage `json:"pattern"`
	Data    json.RawMessage `json:"data,omitempty"`
	ID      string          `json:"id,omitempty"`
}

// replyEnvelope is sent back on ReplyTo. Err carries the failure body when
// the command did not succeed.
type replyEnvelope struct {
	ID         string      `json:"id,omitempty"`
	Response   interface{} `json:"response,omitempty"`
	Err        interface{} `json:"err,omitempty"`
	IsDisposed bool        `json:"isDisposed"`
}

// Encode builds the envelope for command with payload and a fresh id
func Encode(command string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", command, err)
	}
	pat, err := json.Marshal(pattern{Cmd: command})
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Pattern: pat, Data: data, ID: uuid.NewString()})
}

// Decode parses an envelope. The pattern may be {"cmd":"..."} or a bare
// string.
func Decode(body []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}

	var command string
	raw := bytes.TrimSpace(env.Pattern)
	switch {
	case len(raw) == 0:
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &command); err != nil {
			return Message{}, fmt.Errorf("decode pattern: %w", err)
		}
	default:
		var p pattern
		if err := json.Unmarshal(raw, &p); err != nil {
			return Message{}, fmt.Errorf("decode pattern: %w", err)
		}
		command = p.Cmd
	}
	if command == "" {
		return Message{}, fmt.Errorf("decode message: missing command pattern")
	}
	return Message{ID: env.ID, Command: command, Data: env.Data}, nil
}

// EncodeReply wraps a response envelope for the caller of message id
func EncodeReply(id string, resp utils.StandardResponse) ([]byte, error) {
	reply := replyEnvelope{ID: id, IsDisposed: true}
	if resp.Success {
		reply.Response = resp
	} else {
		reply.Err = resp
	}
	return json.Marshal(reply)
}
