// Package worker implements C8 and C9: building and running the
// createdb/dropdb/pg_restore child processes that carry out a restore,
// and the pipelines that sequence them.
package worker

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/SnakeSolid/pgrestore-web/internal/jobmanager"
	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// Status is the outcome of a single external command run.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusAborted
)

// Settings is everything a Command needs to build and run child
// processes for one job, without depending on the rest of the app.
type Settings struct {
	CreatedbPath  string
	DropdbPath    string
	PgrestorePath string
	RestoreJobs   int
	Jobs          *jobmanager.Manager
	Destination   types.Destination
	DatabaseName  string
	IgnoreErrors  bool
}

// Command runs the child processes for a single job, polling the job
// manager for an abort request once a second while a child is running.
type Command struct {
	jobid    int
	settings Settings
}

// NewCommand returns a Command bound to jobid.
func NewCommand(jobid int, settings Settings) *Command {
	return &Command{jobid: jobid, settings: settings}
}

// CreateDatabase runs createdb, optionally from a template.
func (c *Command) CreateDatabase(template string) (Status, error) {
	c.settings.Jobs.SetStage(c.jobid, "Create database")

	args := []string{
		"--host", c.settings.Destination.Host,
		"--port", strconv.Itoa(int(c.settings.Destination.Port)),
		"--username", c.settings.Destination.Role,
	}
	if template != "" {
		args = append(args, "--template", template)
	}
	args = append(args, c.settings.DatabaseName)

	cmd := exec.Command(c.settings.CreatedbPath, args...)
	c.withPassword(cmd)

	return c.waitCommand(cmd)
}

// DropDatabase runs dropdb --if-exists.
func (c *Command) DropDatabase() (Status, error) {
	c.settings.Jobs.SetStage(c.jobid, "Drop database")

	args := []string{
		"--host", c.settings.Destination.Host,
		"--port", strconv.Itoa(int(c.settings.Destination.Port)),
		"--username", c.settings.Destination.Role,
		"--if-exists",
		c.settings.DatabaseName,
	}

	cmd := exec.Command(c.settings.DropdbPath, args...)
	c.withPassword(cmd)

	return c.waitCommand(cmd)
}

// RestoreBackup runs a full pg_restore of backupPath, passing --clean
// unless the database was just freshly created.
func (c *Command) RestoreBackup(backupPath string, clean bool) (Status, error) {
	c.settings.Jobs.SetStage(c.jobid, "Restore database")

	args := c.baseRestoreArgs()
	if clean {
		args = append(args, "--clean")
	}
	args = append(args,
		"--no-owner", "--no-privileges",
		"--jobs", strconv.Itoa(c.settings.RestoreJobs),
		backupPath,
	)

	cmd := exec.Command(c.settings.PgrestorePath, args...)
	c.withPassword(cmd)

	return c.waitCommand(cmd)
}

// RestoreSchemaOnly runs pg_restore --schema name --schema-only.
func (c *Command) RestoreSchemaOnly(name, backupPath string) (Status, error) {
	c.settings.Jobs.SetStage(c.jobid, fmt.Sprintf("Restore schema %s", name))

	args := c.baseRestoreArgs()
	args = append(args,
		"--schema", name,
		"--schema-only",
		"--no-owner", "--no-privileges",
		"--jobs", strconv.Itoa(c.settings.RestoreJobs),
		backupPath,
	)

	cmd := exec.Command(c.settings.PgrestorePath, args...)
	c.withPassword(cmd)

	return c.waitCommand(cmd)
}

// RestoreSchema runs pg_restore --schema name (schema and data).
func (c *Command) RestoreSchema(name, backupPath string) (Status, error) {
	c.settings.Jobs.SetStage(c.jobid, fmt.Sprintf("Restore schema %s", name))

	args := c.baseRestoreArgs()
	args = append(args,
		"--schema", name,
		"--no-owner", "--no-privileges",
		"--jobs", strconv.Itoa(c.settings.RestoreJobs),
		backupPath,
	)

	cmd := exec.Command(c.settings.PgrestorePath, args...)
	c.withPassword(cmd)

	return c.waitCommand(cmd)
}

// RestoreTable runs pg_restore --schema schema --table table.
func (c *Command) RestoreTable(schema, table, backupPath string) (Status, error) {
	c.settings.Jobs.SetStage(c.jobid, fmt.Sprintf("Restore table %s.%s", schema, table))

	args := c.baseRestoreArgs()
	args = append(args,
		"--schema", schema,
		"--table", table,
		"--no-owner", "--no-privileges",
		backupPath,
	)

	cmd := exec.Command(c.settings.PgrestorePath, args...)
	c.withPassword(cmd)

	return c.waitCommand(cmd)
}

// RestoreIndex runs pg_restore --schema schema --index index.
func (c *Command) RestoreIndex(schema, index, backupPath string) (Status, error) {
	c.settings.Jobs.SetStage(c.jobid, fmt.Sprintf("Restore index %s.%s", schema, index))

	args := c.baseRestoreArgs()
	args = append(args,
		"--schema", schema,
		"--index", index,
		"--no-owner", "--no-privileges",
		backupPath,
	)

	cmd := exec.Command(c.settings.PgrestorePath, args...)
	c.withPassword(cmd)

	return c.waitCommand(cmd)
}

func (c *Command) baseRestoreArgs() []string {
	return []string{
		"--verbose",
		"--host", c.settings.Destination.Host,
		"--port", strconv.Itoa(int(c.settings.Destination.Port)),
		"--username", c.settings.Destination.Role,
		"--dbname", c.settings.DatabaseName,
	}
}

// withPassword resets the child's environment to exactly PGPASSWORD: no
// other ambient environment variable (including stray libpq ones) leaks
// in.
func (c *Command) withPassword(cmd *exec.Cmd) {
	cmd.Env = []string{"PGPASSWORD=" + c.settings.Destination.Password}
}

// waitCommand runs cmd to completion, polling the job manager for an
// abort request once a second. Stdout and stderr are appended to the
// job's log files.
func (c *Command) waitCommand(cmd *exec.Cmd) (Status, error) {
	if c.settings.Jobs.IsAborted(c.jobid) {
		return StatusAborted, nil
	}

	stdoutPath, stderrPath, ok := c.jobLogPaths()
	if !ok {
		return StatusFailed, fmt.Errorf("job %d not found", c.jobid)
	}

	stdout, err := openAppend(stdoutPath)
	if err != nil {
		return StatusFailed, err
	}
	defer stdout.Close()

	stderr, err := openAppend(stderrPath)
	if err != nil {
		return StatusFailed, err
	}
	defer stderr.Close()

	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return StatusFailed, fmt.Errorf("spawn command: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err == nil {
				return StatusSuccess, nil
			}
			if c.settings.Jobs.IsAborted(c.jobid) {
				return StatusAborted, nil
			}
			return StatusFailed, nil
		case <-ticker.C:
			if c.settings.Jobs.IsAborted(c.jobid) {
				if cmd.Process != nil {
					_ = cmd.Process.Kill()
				}
				<-done
				return StatusAborted, nil
			}
		}
	}
}

func (c *Command) jobLogPaths() (string, string, bool) {
	v, ok := c.settings.Jobs.MapJob(c.jobid, func(j *jobmanager.Job) any {
		return [2]string{j.StdoutPath(), j.StderrPath()}
	})
	if !ok {
		return "", "", false
	}
	paths := v.([2]string)
	return paths[0], paths[1], true
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job log %q: %w", path, err)
	}
	return f, nil
}
