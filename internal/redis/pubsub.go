package redisx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kirinyoku/hallbook/internal/domain"
)

// BookingsPubSub fans booking events out to other instances so they can drop
// cached views.
type BookingsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewBookingsPubSub(rdb *redis.Client) *BookingsPubSub {
	return &BookingsPubSub{
		rdb:     rdb,
		channel: ChannelBookingsChanged(),
	}
}

func (p *BookingsPubSub) PublishBookingEvent(ctx context.Context, ev domain.BookingEvent) error {
	const op = "redisx.BookingsPubSub.PublishBookingEvent"

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := p.rdb.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Subscribe blocks until ctx is done, calling handler for every well-formed event.
func (p *BookingsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.BookingEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev domain.BookingEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.BookingID != 0 {
				handler(ctx, ev)
			}
		}
	}
}
