package service

import (
	"sync"

	"github.com/google/uuid"
)

// Locks serialises every write to a single tournament. Locks for different
// tournaments are independent.
type Locks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock blocks until the tournament is free and returns the unlock func.
func (l *Locks) Lock(tournamentID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[tournamentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tournamentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
