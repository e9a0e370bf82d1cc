// Package events publishes order lifecycle notifications to the message
// broker and to live dashboard connections.
package events

import (
	"context"
	"time"

	"github.com/go-faster/jx"
	"go.uber.org/multierr"
)

// Type identifies an event kind. It doubles as the broker routing key.
type Type string

const (
	TypePlaced        Type = "order.placed"
	TypeStatusChanged Type = "order.status_changed"
)

// Event describes a change to one order.
type Event struct {
	Type    Type
	OrderID string
	Number  string
	UserID  string
	Status  string
	Total   string
	At      time.Time
}

// Encode writes the event as a JSON object.
func (ev Event) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("type")
	e.Str(string(ev.Type))
	e.FieldStart("orderId")
	e.Str(ev.OrderID)
	e.FieldStart("orderNumber")
	e.Str(ev.Number)
	e.FieldStart("userId")
	e.Str(ev.UserID)
	e.FieldStart("status")
	e.Str(ev.Status)
	if ev.Total != "" {
		e.FieldStart("total")
		e.Num(jx.Num(ev.Total))
	}
	e.FieldStart("at")
	e.Str(ev.At.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

// JSON returns the encoded event.
func (ev Event) JSON() []byte {
	var e jx.Encoder
	ev.Encode(&e)
	return e.Bytes()
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and combines their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var err error
	for _, p := range m {
		err = multierr.Append(err, p.Publish(ctx, ev))
	}
	return err
}
