package collector

import (
	"context"
	"time"
)

// dailyClock fires once immediately on start (the catch-up run) and then
// once per day at the configured hour and minute.
type dailyClock struct {
	hour, minute int
	cancel       func()
	C            chan time.Time
}

func newDailyClock(hour, minute int) *dailyClock {
	return &dailyClock{
		hour:   hour,
		minute: minute,
		C:      make(chan time.Time),
	}
}

func (c *dailyClock) Start(ctx context.Context) <-chan time.Time {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		select {
		case c.C <- time.Now().UTC():
		case <-ctx.Done():
			return
		}

		for {
			timer := time.NewTimer(time.Until(nextFireTime(time.Now(), c.hour, c.minute)))
			select {
			case t := <-timer.C:
				select {
				case c.C <- t:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()

	return c.C
}

func (c *dailyClock) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func nextFireTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
