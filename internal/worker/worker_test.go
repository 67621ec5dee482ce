package worker

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/SnakeSolid/pgrestore-web/internal/jobmanager"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

func newTestWorker(t *testing.T, ignoreErrors bool) (*Worker, *jobmanager.Manager, int) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	jobs := jobmanager.New(t.TempDir(), 10, log)
	jobid := jobs.NextJobID("target_db")

	dest := types.Destination{Host: "localhost", Port: 5432, Role: "postgres", Password: "secret"}
	w := New(jobid, jobs, dest, "target_db", "/usr/bin/createdb", "/usr/bin/dropdb", "/usr/bin/pg_restore", 4, "", ignoreErrors, "", log)

	return w, jobs, jobid
}

func TestStepFailsJobOnError(t *testing.T) {
	w, jobs, jobid := newTestWorker(t, false)

	err := w.step(func() (Status, error) { return StatusFailed, errors.New("boom") })
	if err == nil {
		t.Fatalf("expected error")
	}

	status, _ := jobs.MapJob(jobid, func(j *jobmanager.Job) any { return j.Status() })
	got := status.(types.JobStatus)
	if got.State != types.JobComplete || got.Success {
		t.Fatalf("expected job marked failed, got %v", got)
	}
}

func TestStepSoftIgnoresErrorsWhenConfigured(t *testing.T) {
	w, jobs, jobid := newTestWorker(t, true)

	err := w.stepSoft(func() (Status, error) { return StatusFailed, nil })
	if err != nil {
		t.Fatalf("expected soft step to swallow failure, got %v", err)
	}

	status, _ := jobs.MapJob(jobid, func(j *jobmanager.Job) any { return j.Status() })
	got := status.(types.JobStatus)
	if got.State == types.JobComplete {
		t.Fatalf("expected job not yet completed by a soft step, got %v", got)
	}
}

func TestStepSoftFailsJobWhenNotIgnoring(t *testing.T) {
	w, jobs, jobid := newTestWorker(t, false)

	err := w.stepSoft(func() (Status, error) { return StatusFailed, nil })
	if err == nil {
		t.Fatalf("expected error")
	}

	status, _ := jobs.MapJob(jobid, func(j *jobmanager.Job) any { return j.Status() })
	got := status.(types.JobStatus)
	if got.State != types.JobComplete || got.Success {
		t.Fatalf("expected job marked failed, got %v", got)
	}
}

func TestStepOnAbortedMarksJobAbortedAndWritesMarker(t *testing.T) {
	w, jobs, jobid := newTestWorker(t, false)

	err := w.step(func() (Status, error) { return StatusAborted, nil })
	if err == nil {
		t.Fatalf("expected error")
	}

	status, _ := jobs.MapJob(jobid, func(j *jobmanager.Job) any { return j.Status() })
	got := status.(types.JobStatus)
	if got.State != types.JobAborted {
		t.Fatalf("expected job marked aborted, got %v", got)
	}

	stderrPath, _ := jobs.MapJob(jobid, func(j *jobmanager.Job) any { return j.StderrPath() })
	assertStderrEndsWithAbortedMarker(t, stderrPath.(string))
}

func TestStepSoftOnAbortedStopsEvenWhenIgnoringErrors(t *testing.T) {
	w, jobs, jobid := newTestWorker(t, true)

	err := w.stepSoft(func() (Status, error) { return StatusAborted, nil })
	if err == nil {
		t.Fatalf("expected abort to stop the pipeline despite ignoreErrors")
	}

	status, _ := jobs.MapJob(jobid, func(j *jobmanager.Job) any { return j.Status() })
	got := status.(types.JobStatus)
	if got.State != types.JobAborted {
		t.Fatalf("expected job marked aborted, got %v", got)
	}

	stderrPath, _ := jobs.MapJob(jobid, func(j *jobmanager.Job) any { return j.StderrPath() })
	assertStderrEndsWithAbortedMarker(t, stderrPath.(string))
}

func assertStderrEndsWithAbortedMarker(t *testing.T, path string) {
	t.Helper()
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read stderr log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(contents), "\n"), "\n")
	if lines[len(lines)-1] != "Job aborted" {
		t.Fatalf("expected stderr log to end with %q, got %q", "Job aborted", contents)
	}
}

func TestBaseRestoreArgsIncludesConnectionFlags(t *testing.T) {
	w, jobs, jobid := newTestWorker(t, false)
	cmd := NewCommand(jobid, w.settings)

	args := cmd.baseRestoreArgs()

	want := []string{"--verbose", "--host", "localhost", "--port", "5432", "--username", "postgres", "--dbname", "target_db"}
	if len(args) != len(want) {
		t.Fatalf("got %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("got %v, want %v", args, want)
		}
	}
	_ = jobs
}
