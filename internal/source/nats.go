package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Listener subscribes to a NATS subject carrying raw telemetry payloads.
type Listener struct {
	URL     string
	Subject string
	Log     zerolog.Logger
	// Now stamps each message on receipt; nil uses the wall clock.
	Now func() int64
	// Ready, if set, is closed once the subscription is active.
	Ready chan<- struct{}
}

// Run consumes messages until ctx is cancelled, then unsubscribes and applies
// whatever was already buffered. Apply errors are logged and do not stop the
// listener.
func (l *Listener) Run(ctx context.Context, apply Apply) error {
	now := l.Now
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	nc, err := nats.Connect(l.URL,
		nats.Name("matchtel"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			l.Log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	msgs := make(chan *nats.Msg, 256)
	sub, err := nc.ChanSubscribe(l.Subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", l.Subject, err)
	}
	if err := nc.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}
	l.Log.Info().Str("url", nc.ConnectedUrl()).Str("subject", l.Subject).Msg("listening")
	if l.Ready != nil {
		close(l.Ready)
	}

	handle := func(m *nats.Msg) {
		if err := apply(context.WithoutCancel(ctx), m.Data, now()); err != nil {
			l.Log.Error().Err(err).Str("subject", m.Subject).Msg("apply payload")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case m := <-msgs:
				handle(m)
			case <-gctx.Done():
				for {
					select {
					case m := <-msgs:
						handle(m)
					default:
						return nil
					}
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			return fmt.Errorf("unsubscribe: %w", err)
		}
		l.Log.Info().Msg("subscription closed")
		return nil
	})
	return g.Wait()
}
