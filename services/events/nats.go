package eventsvc

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
)

const flushTimeout = 2 * time.Second

// RecordMarkedEvent is the payload published after a roster is marked.
type RecordMarkedEvent struct {
	Date      string    `json:"date"`
	Users     []string  `json:"users"`
	Present   int       `json:"present"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NATSNotifier publishes marked rosters on a NATS subject.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
}

var _ attendance.Notifier = (*NATSNotifier)(nil)

func NewNATSNotifier(conf *core.Config, logger core.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(
		conf.NATS.URL,
		nats.Name(conf.AppName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", err)
			}
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to nats")
	}
	return &NATSNotifier{nc: nc, subject: conf.NATS.Subject}, nil
}

func (n *NATSNotifier) RecordMarked(ctx context.Context, rec attendance.Record) error {
	data, err := json.Marshal(RecordMarkedEvent{
		Date:      rec.Date,
		Users:     rec.Users,
		Present:   len(rec.Users),
		UpdatedAt: rec.UpdatedAt,
	})
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}
	if err = n.nc.Publish(n.subject, data); err != nil {
		return errors.Wrap(err, "publishing event")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err = n.nc.FlushWithContext(ctx); err != nil {
		return errors.Wrap(err, "flushing event")
	}
	return nil
}

// Close drains pending messages before closing the connection.
func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) RecordMarked(context.Context, attendance.Record) error { return nil }
