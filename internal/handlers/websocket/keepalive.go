package websocket

import (
	"context"
	"time"

	"github.com/sharpsoft/almosthuman/pkg/Logger"
)

// Keepalive emits a liveness ping on a fixed interval, independent of what
// the Listener and Brain are doing. The first failed send ends the unit
// silently; a broken connection surfacing here is what unblocks the
// supervisor race when nothing else notices.
type Keepalive struct {
	logger   *Logger.Logger
	session  *Session
	interval time.Duration
}

func NewKeepalive(logger *Logger.Logger, session *Session, interval time.Duration) *Keepalive {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Keepalive{
		logger:   logger,
		session:  session,
		interval: interval,
	}
}

func (k *Keepalive) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		ping := PingFrame{
			Type:      "ping",
			Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		}
		if err := k.session.SendFrame(ping); err != nil {
			k.logger.Debugf("keepalive send failed for client %s: %v", k.session.ClientID, err)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
