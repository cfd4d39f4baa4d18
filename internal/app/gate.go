package app

import (
	"sync/atomic"

	"github.com/five82/dailystrip/internal/prefs"
)

// disclaimerGate is the poller.Gate backed by config and prefs.
type disclaimerGate struct {
	prefsPath string
	ok        atomic.Bool
}

func newDisclaimerGate(prefsPath string, acknowledged bool) *disclaimerGate {
	g := &disclaimerGate{prefsPath: prefsPath}
	g.ok.Store(acknowledged)
	return g
}

func (g *disclaimerGate) DisclaimerAcknowledged() bool {
	return g.ok.Load()
}

// acknowledge opens the gate and records it in prefs.
func (g *disclaimerGate) acknowledge() error {
	if _, err := prefs.Update(g.prefsPath, func(p *prefs.Prefs) { p.DisclaimerAcknowledged = true }); err != nil {
		return err
	}
	g.ok.Store(true)
	return nil
}
