package wsession

import (
	"context"
	"time"
)

// Debounce emits the most recent item read from in once d has elapsed
// without another item arriving. Every new item discards the pending
// emission and restarts the wait. The returned channel is closed when in is
// closed or ctx is done; a pending emission is dropped in both cases.
func Debounce[T any](ctx context.Context, in <-chan T, d time.Duration) <-chan T {
	out := make(chan T)

	go func() {
		defer close(out)

		timer := time.NewTimer(d)
		timer.Stop()
		defer timer.Stop()

		var (
			latest  T
			pending bool
		)

		for {
			var fire <-chan time.Time
			if pending {
				fire = timer.C
			}

			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				latest, pending = v, true
				timer.Reset(d)
			case <-fire:
				pending = false
				select {
				case out <- latest:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
