package vault

import (
	"sync"

	"github.com/spacemeshos/go-vault/common/types"
)

type refLock struct {
	sync.Mutex
	refs int
}

// vaultLocks serializes mutations of the same vault.
type vaultLocks struct {
	mu    sync.Mutex
	locks map[types.VaultID]*refLock
}

func newVaultLocks() *vaultLocks {
	return &vaultLocks{locks: map[types.VaultID]*refLock{}}
}

// lock vault id and return function that unlocks it.
func (l *vaultLocks) lock(id types.VaultID) func() {
	l.mu.Lock()
	lock, exists := l.locks[id]
	if !exists {
		lock = &refLock{}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
