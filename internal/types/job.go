package types

// JobState is the externally observable lattice position of a job:
// Pending ≺ InProgress ≺ {Aborted, Complete(_)}.
type JobState int

const (
	JobPending JobState = iota
	JobInProgress
	JobAborted
	JobComplete
)

// JobStatus is the full status value stored on a Job: the lattice
// position plus, for JobComplete, whether the restore succeeded.
type JobStatus struct {
	State   JobState
	Success bool // only meaningful when State == JobComplete
}

func (s JobStatus) String() string {
	switch s.State {
	case JobPending:
		return "Pending"
	case JobInProgress:
		return "InProgress"
	case JobAborted:
		return "Aborted"
	case JobComplete:
		if s.Success {
			return "Success"
		}
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether this status can never change again.
func (s JobStatus) Terminal() bool {
	return s.State == JobAborted || s.State == JobComplete
}
