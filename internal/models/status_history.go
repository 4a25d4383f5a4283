package models

import "time"

// Ledger notes recorded when the caller supplies none
const (
	NoteComplaintCreated = "Complaint created"
	noteStatusChangedBy  = "Status changed by "
)

// StatusHistoryEntry is one immutable row of the complaint status ledger.
// OldStatus is nil only for the creation entry.
type StatusHistoryEntry struct {
	ID          int64     `json:"id"`
	ComplaintID int64     `json:"complaint_id"`
	OldStatus   *Status   `json:"old_status"`
	NewStatus   Status    `json:"new_status"`
	ActorID     string    `json:"changed_by"`
	ActorName   string    `json:"changed_by_name,omitempty"`
	Note        string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

// DefaultTransitionNote is the ledger note used when a status change carries no note
func DefaultTransitionNote(actorName string) string {
	if actorName == "" {
		return noteStatusChangedBy + "staff"
	}
	return noteStatusChangedBy + actorName
}

// Transition describes one status change together with its optional response
type Transition struct {
	ComplaintID int64
	OldStatus   Status
	NewStatus   Status
	ActorID     string
	Note        string
	Response    string
}
