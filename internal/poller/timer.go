package poller

import (
	"sync"
	"time"

	"github.com/five82/dailystrip/internal/schedule"
)

// armTimer is the default ArmFunc. A single goroutine sleeps until the next
// fire time of cfg, calls fire, and repeats until disarmed. fire runs on the
// timer goroutine and must not block on the network.
func armTimer(cfg schedule.Config, fire func()) func() {
	stop := make(chan struct{})
	go func() {
		for {
			next, err := cfg.Next(time.Now())
			if err != nil {
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
				fire()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}
