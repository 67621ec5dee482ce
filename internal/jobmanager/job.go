package jobmanager

import (
	"path/filepath"
	"strconv"

	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// Job is a single tracked restore job. All fields are mutated only under
// the owning Manager's lock; Job itself has no locking of its own.
type Job struct {
	id           int
	created      int64
	modified     int64
	databaseName string
	stage        string
	status       types.JobStatus
	stdoutPath   string
	stderrPath   string
}

func newJob(id int, databaseName, joblogsPath string, now int64) *Job {
	return &Job{
		id:           id,
		created:      now,
		modified:     now,
		databaseName: databaseName,
		status:       types.JobStatus{State: types.JobPending},
		stdoutPath:   filepath.Join(joblogsPath, jobLogName(id, "stdout")),
		stderrPath:   filepath.Join(joblogsPath, jobLogName(id, "stderr")),
	}
}

func jobLogName(id int, stream string) string {
	return "job-" + strconv.Itoa(id) + "-" + stream + ".log"
}

// ID returns the job's identifier.
func (j *Job) ID() int { return j.id }

// Created returns the unix timestamp the job was created at.
func (j *Job) Created() int64 { return j.created }

// Modified returns the unix timestamp of the job's last status change.
func (j *Job) Modified() int64 { return j.modified }

// DatabaseName returns the destination database name this job restores into.
func (j *Job) DatabaseName() string { return j.databaseName }

// Stage returns the current human-readable pipeline stage, if any.
func (j *Job) Stage() string { return j.stage }

// Status returns the job's current status.
func (j *Job) Status() types.JobStatus { return j.status }

// StdoutPath returns the path of this job's captured stdout log.
func (j *Job) StdoutPath() string { return j.stdoutPath }

// StderrPath returns the path of this job's captured stderr log.
func (j *Job) StderrPath() string { return j.stderrPath }
