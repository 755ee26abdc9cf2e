// Package protocol defines the line-oriented messages exchanged between the
// engine and its hook bridge child process.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MessageType defines the type of bridge message
type MessageType string

const (
	// TypeReady is sent once both hooks are installed
	TypeReady MessageType = "ready"

	// TypeError is sent when the hook cannot be installed; the child exits after it
	TypeError MessageType = "error"

	// TypePointer carries one accepted pointer-down inside the target window
	TypePointer MessageType = "pointer"

	// TypeKey carries one key transition
	TypeKey MessageType = "key"

	// TypeBye is the last line written before a clean exit
	TypeBye MessageType = "bye"
)

// Error codes carried by TypeError
const (
	CodeHookFailed  = "HOOK_FAILED"
	CodeUnsupported = "UNSUPPORTED"
	CodeBadArgs     = "BAD_ARGS"
)

// Message is the container for every bridge line
type Message struct {
	Type MessageType `json:"type"`

	// Pointer fields
	X       int    `json:"x,omitempty"`
	Y       int    `json:"y,omitempty"`
	Ticks   int64  `json:"ticks,omitempty"`
	Process string `json:"process,omitempty"`
	Title   string `json:"title,omitempty"`

	// Key fields
	Key     string `json:"key,omitempty"`
	Pressed bool   `json:"pressed,omitempty"`

	// Error fields
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Decode parses a single line
func Decode(line []byte) (Message, error) {
	var msg Message
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return msg, fmt.Errorf("empty bridge line")
	}
	if err := json.Unmarshal(line, &msg); err != nil {
		return msg, fmt.Errorf("invalid bridge line %q: %w", line, err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("bridge line without type: %q", line)
	}
	return msg, nil
}

// Writer serialises messages as newline-terminated JSON; safe for concurrent use
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter wraps out
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Send writes one message line
func (w *Writer) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.out.Write(data)
	return err
}
