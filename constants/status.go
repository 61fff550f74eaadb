package constants

// JobStatus is the status of a parse job as reported by the server.
type JobStatus string

// Known values. The server may introduce new intermediate statuses at any
// time; treat the set as open and use Normalize before branching on it.
const (
	JobStatusQueued     JobStatus = "queued"     // accepted, not yet started
	JobStatusProcessing JobStatus = "processing" // in progress
	JobStatusCompleted  JobStatus = "completed"  // terminal success, result downloadable
	JobStatusFailed     JobStatus = "failed"     // terminal failure
	JobStatusPending    JobStatus = "pending"    // normalization target for unknown statuses
)

// IsTerminal reports whether no further transitions can occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Normalize maps a raw server status string to a JobStatus. Unrecognized or
// empty strings map to pending so that callers keep polling instead of
// erroring on statuses this client predates.
func Normalize(raw string) JobStatus {
	switch JobStatus(raw) {
	case JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusPending:
		return JobStatus(raw)
	default:
		return JobStatusPending
	}
}
