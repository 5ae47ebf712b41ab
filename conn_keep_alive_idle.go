package wsession

import (
	"context"
	"sync"
	"time"
)

const DefaultKeepAliveInterval = 20 * time.Second

// idleKeepAlive pings the peer whenever the connection stayed quiet for
// interval. Quietness is measured on the activity broadcaster: every reset
// restarts the debounce window, and each debounce firing sends one ping.
type idleKeepAlive struct {
	logger   logger
	interval time.Duration
	activity *Broadcaster[int]
	ping     func()

	cancel   context.CancelFunc
	stopOnce sync.Once
}

// startIdleKeepAlive subscribes to activity and opens the first debounce
// window right away. The subscription is registered before this returns.
func startIdleKeepAlive(
	logger logger,
	activity *Broadcaster[int],
	interval time.Duration,
	ping func(),
) *idleKeepAlive {
	ctx, cancel := context.WithCancel(context.Background())

	k := &idleKeepAlive{
		logger:   logger.WithField("subtype", "idleKeepAlive"),
		interval: interval,
		activity: activity,
		ping:     ping,
		cancel:   cancel,
	}

	fired := Debounce(ctx, activity.Subscribe(ctx), interval)
	k.reset()

	go k.run(ctx, fired)

	return k
}

// reset marks inbound activity.
func (k *idleKeepAlive) reset() {
	k.activity.Update(0)
}

// stop tears the subscription down. It does not wait for an in-flight ping.
func (k *idleKeepAlive) stop() {
	k.stopOnce.Do(k.cancel)
}

func (k *idleKeepAlive) run(ctx context.Context, fired <-chan int) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-fired:
			if !ok {
				return
			}
			k.logger.Debugf("no activity for %s, sending ping", k.interval)
			k.ping()
		}
	}
}
