// Package notify delivers fire-and-forget user notifications.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// Notifier receives out-of-band notifications. Implementations must not block.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Func adapts a function to Notifier.
type Func func(kind Kind, message string)

func (f Func) Notify(kind Kind, message string) { f(kind, message) }

// Discard drops every notification.
var Discard Notifier = Func(func(Kind, string) {})

// Log writes notifications to a slog logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(kind Kind, message string) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch kind {
	case Error:
		logger.Warn(message, "kind", string(kind))
	default:
		logger.Info(message, "kind", string(kind))
	}
}

// Writer prints notifications for humans, one per line.
type Writer struct {
	mu  sync.Mutex
	Out io.Writer
}

func NewWriter(out io.Writer) *Writer { return &Writer{Out: out} }

func (w *Writer) Notify(kind Kind, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := "•"
	switch kind {
	case Success:
		prefix = "✔"
	case Error:
		prefix = "✖"
	}
	fmt.Fprintf(w.Out, "%s %s\n", prefix, message)
}

type Notification struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Recorder collects notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Kind: kind, Message: message})
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Count returns how many notifications of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// Multi fans out to every notifier.
type Multi []Notifier

func (m Multi) Notify(kind Kind, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(kind, message)
		}
	}
}
