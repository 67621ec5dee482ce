// Package jobmanager implements C5: the in-memory table of restore jobs,
// keyed by a monotonically increasing id, with a fixed-size retention
// window over the most recent jobs.
package jobmanager

import (
	"os"
	"sync"
	"time"

	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// Manager owns the job table. A single RWMutex guards every field; reads
// (MapJob, ForEach) take the read lock, mutations take the write lock.
type Manager struct {
	mu          sync.RWMutex
	joblogsPath string
	windowSize  int
	lastID      int
	jobs        map[int]*Job
	log         *logger.Logger
}

// New returns an empty Manager retaining at most windowSize jobs.
// joblogsPath is the directory new jobs derive their stdout/stderr log
// paths from.
func New(joblogsPath string, windowSize int, log *logger.Logger) *Manager {
	if windowSize <= 0 {
		windowSize = 10
	}
	return &Manager{
		joblogsPath: joblogsPath,
		windowSize:  windowSize,
		jobs:        make(map[int]*Job),
		log:         log.With("component", "jobmanager"),
	}
}

// NextJobID allocates a new job for databaseName, pre-deletes any stale
// log files left at its derived stdout/stderr paths (a prior process
// lifetime may have used the same id after windowSize wrapped), evicts
// any job that has fallen out of the retention window (deleting its log
// files), and returns the new job's id.
func (m *Manager) NextJobID(databaseName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().Unix()
	m.lastID++
	id := m.lastID
	job := newJob(id, databaseName, m.joblogsPath, now)
	m.removeLogFiles(job)
	m.jobs[id] = job

	lastKeepID := id - m.windowSize
	for existingID, job := range m.jobs {
		if existingID <= lastKeepID {
			m.removeLogFiles(job)
			delete(m.jobs, existingID)
		}
	}

	return id
}

func (m *Manager) removeLogFiles(job *Job) {
	for _, path := range []string{job.stdoutPath, job.stderrPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.Warn("failed to remove job log", "path", path, "error", err)
		}
	}
}

// SetStage records the given stage label on jobid and marks it
// in-progress unless it is already terminal (a terminal status is left
// as it is). A no-op if jobid is unknown.
func (m *Manager) SetStage(jobid int, stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobid]
	if !ok {
		return
	}
	job.stage = stage
	if !job.status.Terminal() {
		job.status = types.JobStatus{State: types.JobInProgress}
	}
	job.modified = time.Now().Unix()
}

// SetAborted marks jobid aborted. A no-op if jobid is unknown or already
// terminal.
func (m *Manager) SetAborted(jobid int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobid]
	if !ok || job.status.Terminal() {
		return
	}
	job.status = types.JobStatus{State: types.JobAborted}
	job.modified = time.Now().Unix()
}

// IsAborted reports whether jobid is currently marked aborted. Used by
// the restore worker's poll loop to decide whether to kill the running
// child process.
func (m *Manager) IsAborted(jobid int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobid]
	return ok && job.status.State == types.JobAborted
}

// SetComplete marks jobid complete with the given outcome. A no-op if
// jobid is unknown or was already aborted (abort wins over a late
// completion signal from a killed child process).
func (m *Manager) SetComplete(jobid int, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobid]
	if !ok || job.status.State == types.JobAborted {
		return
	}
	job.status = types.JobStatus{State: types.JobComplete, Success: success}
	job.modified = time.Now().Unix()
}

// MapJob invokes fn with the current state of jobid and returns its
// result. The second return value is false if jobid is unknown.
func (m *Manager) MapJob(jobid int, fn func(*Job) any) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobid]
	if !ok {
		return nil, false
	}
	return fn(job), true
}

// ForEach invokes fn once for every currently tracked job, in no
// particular order.
func (m *Manager) ForEach(fn func(*Job)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, job := range m.jobs {
		fn(job)
	}
}
