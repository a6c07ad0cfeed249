// Package session holds a client's conversation state between resolution
// calls. Sending a message is an optimistic transaction: the user turn is
// shown immediately, then either committed with the resolver's advanced
// ledger or rolled back to the pre-send snapshot. Each transaction carries
// a monotonically increasing sequence number; a result arriving after a
// newer transaction has committed is discarded, so the state always
// reflects the most recently issued call that succeeded.
package session

import (
	"sync"

	"ambiance/internal/ledger"
	"ambiance/internal/logging"
)

// Session is one client's conversation state.
type Session struct {
	mu      sync.Mutex
	ledger  ledger.Ledger
	seq     uint64 // last issued transaction
	applied uint64 // last committed transaction
}

// New builds an empty session.
func New() *Session {
	return &Session{}
}

// Ledger returns a copy of the current conversation.
func (s *Session) Ledger() ledger.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone()
}

// Txn is one in-flight send. Exactly one of Commit or Rollback is called
// when the resolution call finishes.
type Txn struct {
	session  *Session
	seq      uint64
	snapshot ledger.Ledger
	done     bool
}

// Begin appends turn optimistically and returns the transaction plus the
// ledger to submit upstream.
func (s *Session) Begin(turn ledger.Turn) (*Txn, ledger.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &Txn{session: s, seq: s.seq, snapshot: s.ledger.Clone()}
	s.ledger = s.ledger.Append(turn)
	logging.SessionDebug("txn %d begun, %d turns pending", t.seq, len(s.ledger))
	return t, s.ledger.Clone()
}

// Commit installs the resolver's advanced ledger. Returns false when a
// newer transaction already committed; the late result is discarded and
// the state is untouched.
func (t *Txn) Commit(advanced ledger.Ledger) bool {
	s := t.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.seq <= s.applied {
		logging.Session("txn %d superseded by txn %d, result discarded", t.seq, s.applied)
		return false
	}
	s.applied = t.seq
	s.ledger = advanced.Clone()
	logging.SessionDebug("txn %d committed, %d turns", t.seq, len(s.ledger))
	return true
}

// Rollback restores the pre-send snapshot. It only takes effect when no
// newer transaction has started or committed; otherwise the failed turn is
// already buried under newer state and restoring the snapshot would erase
// turns that are not ours to remove.
func (t *Txn) Rollback() bool {
	s := t.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	if t.seq <= s.applied || t.seq != s.seq {
		logging.Session("txn %d failed after being superseded, no rollback", t.seq)
		return false
	}
	s.ledger = t.snapshot
	logging.SessionDebug("txn %d rolled back to %d turns", t.seq, len(s.ledger))
	return true
}
