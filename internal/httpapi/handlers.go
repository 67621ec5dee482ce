package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/SnakeSolid/pgrestore-web/internal/jobmanager"
	"github.com/SnakeSolid/pgrestore-web/internal/types"
	"github.com/SnakeSolid/pgrestore-web/internal/worker"
)

type destinationView struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type settingsResult struct {
	IndexesAvailable bool               `json:"indexes_available"`
	Destinations     []destinationView  `json:"destinations"`
}

func (s *Server) handleSettings(c *gin.Context) {
	destinations := make([]destinationView, 0, len(s.cfg.Destinations))
	for i, dest := range s.cfg.Destinations {
		destinations = append(destinations, destinationView{Index: i, Name: dest.DisplayName()})
	}

	respondOK(c, settingsResult{
		IndexesAvailable: s.cfg.IndexesPath != "",
		Destinations:     destinations,
	})
}

type backupSource struct {
	Type string `json:"type" binding:"required"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

type restoreSpec struct {
	Type           string   `json:"type" binding:"required"`
	Objects        []string `json:"objects"`
	RestoreSchema  bool     `json:"restore_schema"`
	RestoreIndexes bool     `json:"restore_indexes"`
}

type restoreRequest struct {
	Destination  int          `json:"destination"`
	Backup       backupSource `json:"backup" binding:"required"`
	DatabaseName string       `json:"database_name" binding:"required"`
	Database     string       `json:"database" binding:"required"`
	Restore      restoreSpec  `json:"restore" binding:"required"`
	IgnoreErrors bool         `json:"ignore_errors"`
}

type restoreResult struct {
	JobID int `json:"jobid"`
}

func (s *Server) handleRestore(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if req.DatabaseName == "" {
		respondError(c, "database_name must not be empty")
		return
	}
	if req.Destination < 0 || req.Destination >= len(s.cfg.Destinations) {
		respondError(c, "invalid destination id")
		return
	}

	dropDatabase := req.Database == "DropAndCreate"
	createDatabase := req.Database == "DropAndCreate"

	jobid := s.jobs.NextJobID(req.DatabaseName)

	w, err := s.newWorker(jobid, req.Destination, req.DatabaseName, req.IgnoreErrors)
	if err != nil {
		respondError(c, err.Error())
		return
	}

	switch req.Backup.Type {
	case "Path":
		s.startRestoreFile(w, req, req.Backup.Path, dropDatabase, createDatabase)
	case "Url":
		s.startRestoreURL(w, req, req.Backup.URL, dropDatabase, createDatabase)
	default:
		respondError(c, "unknown backup type")
		return
	}

	respondOK(c, restoreResult{JobID: jobid})
}

func (s *Server) startRestoreFile(w *worker.Worker, req restoreRequest, path string, drop, create bool) {
	switch req.Restore.Type {
	case "Full":
		w.RestoreFileFull(path, drop, create)
	case "Partial":
		w.RestoreFilePartial(path, worker.PartialOptions{
			Objects:        req.Restore.Objects,
			RestoreSchema:  req.Restore.RestoreSchema,
			RestoreIndexes: req.Restore.RestoreIndexes,
		}, drop, create)
	}
}

func (s *Server) startRestoreURL(w *worker.Worker, req restoreRequest, url string, drop, create bool) {
	switch req.Restore.Type {
	case "Full":
		w.RestoreURLFull(url, s.downloader, drop, create)
	case "Partial":
		w.RestoreURLPartial(url, s.downloader, worker.PartialOptions{
			Objects:        req.Restore.Objects,
			RestoreSchema:  req.Restore.RestoreSchema,
			RestoreIndexes: req.Restore.RestoreIndexes,
		}, drop, create)
	}
}

type abortRequest struct {
	JobID int `json:"jobid" binding:"required"`
}

func (s *Server) handleAbort(c *gin.Context) {
	var req abortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s.jobs.SetAborted(req.JobID)
	respondOK(c, gin.H{})
}

type statusRequest struct {
	JobID          int     `json:"jobid" binding:"required"`
	StdoutPosition *int64  `json:"stdout_position"`
	StderrPosition *int64  `json:"stderr_position"`
}

type statusResult struct {
	DatabaseName   string `json:"database_name"`
	Stage          string `json:"stage"`
	Stdout         string `json:"stdout"`
	StdoutPosition int64  `json:"stdout_position"`
	Stderr         string `json:"stderr"`
	StderrPosition int64  `json:"stderr_position"`
	Status         string `json:"status"`
}

func (s *Server) handleStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	type jobSnapshot struct {
		databaseName string
		stage        string
		stdoutPath   string
		stderrPath   string
		status       types.JobStatus
	}

	v, ok := s.jobs.MapJob(req.JobID, func(j *jobmanager.Job) any {
		return jobSnapshot{
			databaseName: j.DatabaseName(),
			stage:        j.Stage(),
			stdoutPath:   j.StdoutPath(),
			stderrPath:   j.StderrPath(),
			status:       j.Status(),
		}
	})
	if !ok {
		respondError(c, "Job not found")
		return
	}
	snap := v.(jobSnapshot)

	var stdoutPos, stderrPos int64
	if req.StdoutPosition != nil {
		stdoutPos = *req.StdoutPosition
	}
	if req.StderrPosition != nil {
		stderrPos = *req.StderrPosition
	}

	stdout, stdoutPos, err := readLogTail(snap.stdoutPath, stdoutPos)
	if err != nil {
		respondError(c, err.Error())
		return
	}
	stderr, stderrPos, err := readLogTail(snap.stderrPath, stderrPos)
	if err != nil {
		respondError(c, err.Error())
		return
	}

	respondOK(c, statusResult{
		DatabaseName:   snap.databaseName,
		Stage:          snap.stage,
		Stdout:         stdout,
		StdoutPosition: stdoutPos,
		Stderr:         stderr,
		StderrPosition: stderrPos,
		Status:         snap.status.String(),
	})
}

type jobSummary struct {
	JobID        int    `json:"jobid"`
	Created      int64  `json:"created"`
	Modified     int64  `json:"modified"`
	DatabaseName string `json:"database_name"`
	Status       string `json:"status"`
	Stage        string `json:"stage"`
}

func (s *Server) handleJobs(c *gin.Context) {
	result := make([]jobSummary, 0)

	s.jobs.ForEach(func(j *jobmanager.Job) {
		result = append(result, jobSummary{
			JobID:        j.ID(),
			Created:      j.Created(),
			Modified:     j.Modified(),
			DatabaseName: j.DatabaseName(),
			Status:       j.Status().String(),
			Stage:        j.Stage(),
		})
	})

	respondOK(c, result)
}

type searchRequest struct {
	Query string `json:"query"`
}

const searchResultLimit = 20

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result := make([]string, 0, searchResultLimit)
	s.index.Query(req.Query, searchResultLimit, func(path string) {
		result = append(result, path)
	})

	respondOK(c, result)
}
