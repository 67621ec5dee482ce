package jobmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

func newTestManager(t *testing.T, windowSize int) *Manager {
	t.Helper()
	dir := t.TempDir()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return New(dir, windowSize, log)
}

func TestNextJobIDMonotonic(t *testing.T) {
	m := newTestManager(t, 10)

	first := m.NextJobID("db_a")
	second := m.NextJobID("db_b")

	if second != first+1 {
		t.Fatalf("expected monotonically increasing ids, got %d then %d", first, second)
	}
}

func TestNextJobIDEvictsOutsideWindowAndRemovesLogs(t *testing.T) {
	m := newTestManager(t, 2)

	id1 := m.NextJobID("db1")

	// Create stand-in log files for job 1 so we can assert they get removed.
	_, ok := m.MapJob(id1, func(j *Job) any { return j })
	if !ok {
		t.Fatalf("job %d not found", id1)
	}
	stdout, stderr := jobPaths(m, id1)
	if err := os.WriteFile(stdout, []byte("out"), 0o644); err != nil {
		t.Fatalf("write stdout: %v", err)
	}
	if err := os.WriteFile(stderr, []byte("err"), 0o644); err != nil {
		t.Fatalf("write stderr: %v", err)
	}

	m.NextJobID("db2")
	id3 := m.NextJobID("db3") // window size 2: job1 should now be evicted

	if _, ok := m.MapJob(id1, func(j *Job) any { return j }); ok {
		t.Fatalf("expected job %d to be evicted", id1)
	}
	if _, err := os.Stat(stdout); !os.IsNotExist(err) {
		t.Fatalf("expected stdout log removed, stat err = %v", err)
	}
	if _, err := os.Stat(stderr); !os.IsNotExist(err) {
		t.Fatalf("expected stderr log removed, stat err = %v", err)
	}
	if _, ok := m.MapJob(id3, func(j *Job) any { return j }); !ok {
		t.Fatalf("expected most recent job %d to survive", id3)
	}
}

func jobPaths(m *Manager, id int) (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job := m.jobs[id]
	return job.stdoutPath, job.stderrPath
}

func TestStatusLatticeAbortWinsOverLateComplete(t *testing.T) {
	m := newTestManager(t, 10)
	id := m.NextJobID("db")

	m.SetStage(id, "dumping schema")
	m.SetAborted(id)
	m.SetComplete(id, true) // should be ignored: abort already terminal

	status, _ := m.MapJob(id, func(j *Job) any { return j.Status() })
	got := status.(types.JobStatus)
	if got.State != types.JobAborted {
		t.Fatalf("expected status to remain Aborted, got %v", got)
	}
}

func TestSetCompleteAfterStage(t *testing.T) {
	m := newTestManager(t, 10)
	id := m.NextJobID("db")

	m.SetStage(id, "running pg_restore")
	m.SetComplete(id, false)

	status, _ := m.MapJob(id, func(j *Job) any { return j.Status() })
	got := status.(types.JobStatus)
	if got.State != types.JobComplete || got.Success {
		t.Fatalf("expected Complete(false), got %v", got)
	}
}

func TestNextJobIDPreDeletesStaleLogFilesAtDerivedPaths(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	m := New(dir, 10, log)

	// Simulate a stale log left behind by a prior process lifetime at the
	// path the next allocated job id will derive.
	stalePath := filepath.Join(dir, "job-1-stdout.log")
	if err := os.WriteFile(stalePath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale log: %v", err)
	}

	id := m.NextJobID("db")
	stdout, _ := jobPaths(m, id)
	if stdout != stalePath {
		t.Fatalf("test setup assumption broken: expected first job id to derive %q, got %q", stalePath, stdout)
	}
	if _, err := os.Stat(stalePath); !os.IsNotExist(err) {
		t.Fatalf("expected stale log pre-deleted at job allocation, stat err = %v", err)
	}
}

func TestJobLogPathsAreDistinct(t *testing.T) {
	m := newTestManager(t, 10)
	id := m.NextJobID("db")

	stdout, stderr := jobPaths(m, id)
	if stdout == stderr {
		t.Fatalf("expected distinct stdout/stderr log paths")
	}
	if filepath.Dir(stdout) != filepath.Dir(stderr) {
		t.Fatalf("expected both logs under the same joblogs directory")
	}
}
