package hflashc

import (
	"sync"
	"sync/atomic"
)

// Token is the exclusive right to drive one flash controller. It is handed
// out once per port by Claim and consumed by New.
type Token struct {
	port Port
	used atomic.Bool
}

var (
	claimMu sync.Mutex
	claimed = map[Port]bool{}
)

// Claim takes ownership of the controller behind port. It fails with
// ErrClaimed if the port was claimed before. The port must be comparable,
// in practice a pointer.
func Claim(port Port) (*Token, error) {
	if port == nil {
		panic("port cannot be nil")
	}
	claimMu.Lock()
	defer claimMu.Unlock()
	if claimed[port] {
		return nil, ErrClaimed
	}
	claimed[port] = true
	return &Token{port: port}, nil
}

// take consumes the token.
func (t *Token) take() (Port, error) {
	if t == nil || !t.used.CompareAndSwap(false, true) {
		return nil, ErrClaimed
	}
	return t.port, nil
}
