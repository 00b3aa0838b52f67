// Package yield defines the port to an external yield-routing adapter that
// parks idle tranche liquidity in a lending market. The chain core only ever
// talks to the three calls below; the adapter's internal accounting is out of
// scope.
package yield

import "fmt"

// A Router is expected to start empty: on startup the app re-deposits its
// persisted reserve total, so implementations must not carry parked balances
// across process restarts.
type Router interface {
	// Deposit parks amount with the external market.
	Deposit(amount uint64) error
	// Withdraw unparks amount; it must be available synchronously or the
	// enclosing tx fails.
	Withdraw(amount uint64) error
	// Value reports the currently parked value.
	Value() (uint64, error)
}

// Noop is the default router: funds stay in the app's own reserves. It still
// tracks the running total so /yield queries report something meaningful.
type Noop struct {
	parked uint64
}

func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) Deposit(amount uint64) error {
	if n.parked > ^uint64(0)-amount {
		return fmt.Errorf("parked overflow: have=%d add=%d", n.parked, amount)
	}
	n.parked += amount
	return nil
}

func (n *Noop) Withdraw(amount uint64) error {
	if n.parked < amount {
		return fmt.Errorf("parked underflow: have=%d need=%d", n.parked, amount)
	}
	n.parked -= amount
	return nil
}

func (n *Noop) Value() (uint64, error) {
	return n.parked, nil
}
