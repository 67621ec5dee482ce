package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/SnakeSolid/pgrestore-web/internal/dbfacade"
	"github.com/SnakeSolid/pgrestore-web/internal/downloader"
	"github.com/SnakeSolid/pgrestore-web/internal/entity"
	"github.com/SnakeSolid/pgrestore-web/internal/jobmanager"
	"github.com/SnakeSolid/pgrestore-web/internal/logger"
	"github.com/SnakeSolid/pgrestore-web/internal/manifest"
	"github.com/SnakeSolid/pgrestore-web/internal/types"
)

// Worker carries out exactly one restore job. A Worker is consumed by
// its run method: every entry point spawns its own goroutine and must
// not be reused afterward.
type Worker struct {
	jobid        int
	jobs         *jobmanager.Manager
	settings     Settings
	template     string
	ignoreErrors bool
	indexesPath  string
	log          *logger.Logger
}

// New returns a Worker for jobid that restores into destination/database
// using the given external tool paths and restore job count.
func New(
	jobid int,
	jobs *jobmanager.Manager,
	destination types.Destination,
	databaseName string,
	createdbPath, dropdbPath, pgrestorePath string,
	restoreJobs int,
	template string,
	ignoreErrors bool,
	indexesPath string,
	log *logger.Logger,
) *Worker {
	return &Worker{
		jobid: jobid,
		jobs:  jobs,
		settings: Settings{
			CreatedbPath:  createdbPath,
			DropdbPath:    dropdbPath,
			PgrestorePath: pgrestorePath,
			RestoreJobs:   restoreJobs,
			Jobs:          jobs,
			Destination:   destination,
			DatabaseName:  databaseName,
			IgnoreErrors:  ignoreErrors,
		},
		template:     template,
		ignoreErrors: ignoreErrors,
		indexesPath:  indexesPath,
		log:          log.With("component", "worker", "jobid", jobid),
	}
}

// RestoreFileFull starts a background restore of the full contents of
// backupPath, with no schema/table filter.
func (w *Worker) RestoreFileFull(backupPath string, dropDatabase, createDatabase bool) {
	go w.run(func() error {
		return w.executeBackupFull(backupPath, dropDatabase, createDatabase)
	})
}

// PartialOptions selects what a partial restore restores.
type PartialOptions struct {
	Objects        []string // "schema" or "schema.table" entries, per entity.Parse
	RestoreSchema  bool     // table_schemas: restore_schema_only (soft) if true, else just create the bare schema
	RestoreIndexes bool     // also restore the index-manifest entries (manifest.ReadIndexes) for the targeted tables
}

// RestoreFilePartial starts a background restore of only the named
// schemas/tables (and, if RestoreIndexes, their indexes from the
// manifest) from backupPath.
func (w *Worker) RestoreFilePartial(backupPath string, opts PartialOptions, dropDatabase, createDatabase bool) {
	go w.run(func() error {
		return w.executeBackupPartial(backupPath, opts, dropDatabase, createDatabase)
	})
}

// RestoreURLFull downloads url then performs a full restore of it.
func (w *Worker) RestoreURLFull(url string, dl *downloader.Downloader, dropDatabase, createDatabase bool) {
	go w.run(func() error {
		handle, err := w.executeDownload(dl, url)
		if err != nil {
			return err
		}
		defer handle.Close()

		return w.executeBackupFull(handle.Path(), dropDatabase, createDatabase)
	})
}

// RestoreURLPartial downloads url then performs a partial restore of it.
func (w *Worker) RestoreURLPartial(url string, dl *downloader.Downloader, opts PartialOptions, dropDatabase, createDatabase bool) {
	go w.run(func() error {
		handle, err := w.executeDownload(dl, url)
		if err != nil {
			return err
		}
		defer handle.Close()

		return w.executeBackupPartial(handle.Path(), opts, dropDatabase, createDatabase)
	})
}

func (w *Worker) run(pipeline func() error) {
	if err := pipeline(); err != nil {
		w.log.Warn("restore job failed", "error", err)
	}
}

func (w *Worker) executeDownload(dl *downloader.Downloader, url string) (*downloader.PathHandle, error) {
	w.jobs.SetStage(w.jobid, "Download file")

	handle, err := dl.Download(url)
	if err != nil {
		w.writeError(fmt.Sprintf("%s", err))
		w.jobs.SetComplete(w.jobid, false)
		return nil, err
	}
	return handle, nil
}

// executeBackupFull checks the backup path exists, optionally drops then
// creates the database, runs pg_restore over the whole file (soft-failing
// if ignoreErrors), then marks the job complete.
func (w *Worker) executeBackupFull(backupPath string, dropDatabase, createDatabase bool) error {
	cmd := NewCommand(w.jobid, w.settings)

	if err := w.checkBackupPath(backupPath); err != nil {
		return err
	}

	if dropDatabase {
		if err := w.step(func() (Status, error) { return cmd.DropDatabase() }); err != nil {
			return err
		}
	}
	if createDatabase {
		if err := w.step(func() (Status, error) { return cmd.CreateDatabase(w.template) }); err != nil {
			return err
		}
	}

	// --clean is passed only when the database was not freshly created:
	// a new database has nothing to clean.
	if err := w.stepSoft(func() (Status, error) {
		return cmd.RestoreBackup(backupPath, !createDatabase)
	}); err != nil {
		return err
	}

	w.jobs.SetComplete(w.jobid, true)
	return nil
}

// executeBackupPartial generalizes over entity.Parse's disjoint
// schema/table partition. full_schemas are always dropped/recreated and
// restored with their data; table_schemas only get the schema itself
// (either its structure via a soft restore_schema_only, or a bare create,
// depending on opts.RestoreSchema), with the targeted tables' data
// restored individually afterward.
func (w *Worker) executeBackupPartial(backupPath string, opts PartialOptions, dropDatabase, createDatabase bool) error {
	cmd := NewCommand(w.jobid, w.settings)

	if err := w.checkBackupPath(backupPath); err != nil {
		return err
	}

	parsed := entity.Parse(opts.Objects)

	if dropDatabase {
		if err := w.step(func() (Status, error) { return cmd.DropDatabase() }); err != nil {
			return err
		}
	}

	if createDatabase {
		if err := w.step(func() (Status, error) { return cmd.CreateDatabase(w.template) }); err != nil {
			return err
		}
	} else {
		if err := w.stepErr(func() error { return w.cleanupSchemas(parsed.FullSchemas) }); err != nil {
			return err
		}
	}

	if opts.RestoreSchema {
		for schema := range parsed.TableSchemas {
			if err := w.stepSoft(func() (Status, error) {
				return cmd.RestoreSchemaOnly(schema, backupPath)
			}); err != nil {
				return err
			}
		}
	} else {
		if err := w.stepErr(func() error { return w.createSchemas(parsed.TableSchemas) }); err != nil {
			return err
		}
	}

	if err := w.stepErr(func() error { return w.createSchemas(parsed.FullSchemas) }); err != nil {
		return err
	}

	for schema := range parsed.FullSchemas {
		if err := w.step(func() (Status, error) {
			return cmd.RestoreSchema(schema, backupPath)
		}); err != nil {
			return err
		}
	}

	if err := w.stepErr(func() error { return w.cleanupTables(parsed.Tables) }); err != nil {
		return err
	}

	for table := range parsed.Tables {
		if err := w.step(func() (Status, error) {
			return cmd.RestoreTable(table.Schema, table.Name, backupPath)
		}); err != nil {
			return err
		}
	}

	if opts.RestoreIndexes {
		if w.indexesPath == "" {
			err := fmt.Errorf("indexes path not defined in configuration")
			w.writeError(err.Error())
			w.jobs.SetComplete(w.jobid, false)
			return err
		}

		indexes, err := manifest.ReadIndexes(w.indexesPath, parsed.Tables)
		if err != nil {
			w.writeError(err.Error())
			w.jobs.SetComplete(w.jobid, false)
			return err
		}
		for index := range indexes {
			if err := w.step(func() (Status, error) {
				return cmd.RestoreIndex(index.Schema, index.Name, backupPath)
			}); err != nil {
				return err
			}
		}
	}

	w.jobs.SetComplete(w.jobid, true)
	return nil
}

func (w *Worker) createSchemas(schemas map[string]struct{}) error {
	w.jobs.SetStage(w.jobid, "Creating schemas")

	facade := dbfacade.New(w.settings.Destination, w.settings.DatabaseName)
	if err := facade.CreateSchemas(context.Background(), schemas); err != nil {
		return fmt.Errorf("create schemas: %w", err)
	}
	return nil
}

func (w *Worker) cleanupSchemas(schemas map[string]struct{}) error {
	w.jobs.SetStage(w.jobid, "Cleaning up destination schemas")

	if len(schemas) == 0 {
		return nil
	}
	facade := dbfacade.New(w.settings.Destination, w.settings.DatabaseName)
	if err := facade.DropSchemas(context.Background(), schemas); err != nil {
		return fmt.Errorf("drop schemas: %w", err)
	}
	return nil
}

func (w *Worker) cleanupTables(tables map[types.TableDescription]struct{}) error {
	w.jobs.SetStage(w.jobid, "Cleaning up destination tables")

	if len(tables) == 0 {
		return nil
	}
	facade := dbfacade.New(w.settings.Destination, w.settings.DatabaseName)
	if err := facade.DropTables(context.Background(), tables); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return nil
}

func (w *Worker) checkBackupPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		w.writeError(fmt.Sprintf("path %s does not exist", path))
		w.jobs.SetComplete(w.jobid, false)
		return fmt.Errorf("path %q does not exist", path)
	}
	if !info.Mode().IsRegular() {
		w.writeError(fmt.Sprintf("path %s is not a file", path))
		w.jobs.SetComplete(w.jobid, false)
		return fmt.Errorf("path %q is not a file", path)
	}
	return nil
}

// step runs callback and, on any non-success outcome, fails the job
// and stops the pipeline. Aborted marks the job Aborted (rather than
// Complete(false)) and appends the abort marker to the job's stderr log.
func (w *Worker) step(callback func() (Status, error)) error {
	status, err := callback()
	if err != nil {
		w.jobs.SetComplete(w.jobid, false)
		return err
	}
	if status == StatusAborted {
		w.writeAborted()
		return fmt.Errorf("job aborted")
	}
	if status != StatusSuccess {
		w.jobs.SetComplete(w.jobid, false)
		return fmt.Errorf("command did not complete successfully (status=%v)", status)
	}
	return nil
}

// stepErr runs a non-command step (e.g. DDL cleanup) and fails the job
// on error, same as step but for callbacks that don't return a Status.
func (w *Worker) stepErr(callback func() error) error {
	if err := callback(); err != nil {
		w.jobs.SetComplete(w.jobid, false)
		return err
	}
	return nil
}

// stepSoft runs callback and, if ignoreErrors is set, treats any failure
// as non-fatal to the pipeline: a single object failing to restore should
// not necessarily fail the whole job when the caller asked to ignore
// errors. Aborted always stops the pipeline, even with ignoreErrors set.
func (w *Worker) stepSoft(callback func() (Status, error)) error {
	status, err := callback()
	if err == nil && status == StatusSuccess {
		return nil
	}
	if status == StatusAborted {
		w.writeAborted()
		return fmt.Errorf("job aborted")
	}
	if w.ignoreErrors {
		return nil
	}
	w.jobs.SetComplete(w.jobid, false)
	if err != nil {
		return err
	}
	return fmt.Errorf("command did not complete successfully (status=%v)", status)
}

// writeAborted appends the literal marker line a status poll uses to
// confirm an abort reached the job's stderr log, then marks the job
// Aborted.
func (w *Worker) writeAborted() {
	w.writeError("Job aborted")
	w.jobs.SetAborted(w.jobid)
}

func (w *Worker) writeError(message string) {
	v, ok := w.jobs.MapJob(w.jobid, func(j *jobmanager.Job) any { return j.StderrPath() })
	if !ok {
		return
	}
	path := v.(string)

	f, err := openAppend(path)
	if err != nil {
		w.log.Warn("failed to write job error", "error", err)
		return
	}
	defer f.Close()

	fmt.Fprintln(f, message)
}
