package inmemdb

import (
	"sync"
	"time"

	"github.com/KhalilH786/GTManager-sub001/core/user"
)

type (
	// DB keeps profile documents in memory. Used by tests and the `memory` store backend.
	DB struct {
		user *userTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User

		// fault injection
		delay time.Duration
		err   error
		reads int
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
	}
}

// SetDelay makes every profile read wait d, or until its context is done.
func (db *DB) SetDelay(d time.Duration) {
	db.user.mutex.Lock()
	db.user.delay = d
	db.user.mutex.Unlock()
}

// SetError makes every profile read fail with err. A nil err restores normal reads.
func (db *DB) SetError(err error) {
	db.user.mutex.Lock()
	db.user.err = err
	db.user.mutex.Unlock()
}

// Reads returns the number of profile reads served so far.
func (db *DB) Reads() int {
	db.user.mutex.RLock()
	defer db.user.mutex.RUnlock()
	return db.user.reads
}

// Reset drops every document and clears injected faults.
func (db *DB) Reset() {
	db.user.mutex.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.delay = 0
	db.user.err = nil
	db.user.reads = 0
	db.user.mutex.Unlock()
}
