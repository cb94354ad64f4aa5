package types

import "time"

// SessionStatus describes a dialog's working session relative to its last
// approved state.
type SessionStatus struct {
	ActiveSession  string        `json:"active_session"`
	SessionRef     string        `json:"session_ref"`
	HasUnapproved  bool          `json:"has_unapproved"`
	LastApprovedAt *time.Time    `json:"last_approved_at,omitempty"`
	ChangedFiles   []ChangedFile `json:"changed_files"`
}

type ChangedFile struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Diff      string `json:"diff,omitempty"`
}

type ApproveResult struct {
	ApprovedCommit  string `json:"approved_commit"`
	NewSession      string `json:"new_session"`
	CommitsApproved int    `json:"commits_approved"`
}

type ResetResult struct {
	ResetTo    string `json:"reset_to"`
	NewSession string `json:"new_session"`
}

type RestoreResult struct {
	RestoredTo    string `json:"restored_to"`
	NewCheckpoint string `json:"new_checkpoint"`
}

type Checkpoint struct {
	CommitID string `json:"commit_id"`
	Message  string `json:"message"`
}
