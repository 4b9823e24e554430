/*
Package core provides tracking of in-flight agent runs for the Milo agent
service.

Every chat request registers the cancel function of its run context so the
server can stop outstanding runs, and any pending on-chain waits, when it
shuts down.
*/
package core

import (
	"context"
	"sync"
)

// RunRegistry tracks running agent executions and their cancel functions.
type RunRegistry struct {
	runs  map[string]context.CancelFunc // Map of run ID to cancellation function
	mutex sync.RWMutex
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{
		runs: make(map[string]context.CancelFunc),
	}
}

// Add registers a run under its run ID.
func (r *RunRegistry) Add(runID string, cancel context.CancelFunc) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.runs[runID] = cancel
}

// Remove forgets a finished run.
func (r *RunRegistry) Remove(runID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.runs, runID)
}

// CancelAll stops every tracked run and returns how many there were.
func (r *RunRegistry) CancelAll() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	count := len(r.runs)
	for id, cancel := range r.runs {
		cancel()
		delete(r.runs, id)
	}
	return count
}

// Active returns the IDs of all running executions.
func (r *RunRegistry) Active() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	runs := make([]string, 0, len(r.runs))
	for id := range r.runs {
		runs = append(runs, id)
	}
	return runs
}
