package reconcile

import "sync/atomic"

// Token identifies one fetch issued through a Tracker.
type Token uint64

// Tracker discards results of superseded fetches: only the token from the
// most recent Begin is current.
type Tracker struct {
	gen atomic.Uint64
}

func (t *Tracker) Begin() Token {
	return Token(t.gen.Add(1))
}

func (t *Tracker) Current(tok Token) bool {
	return uint64(tok) == t.gen.Load()
}
