package models

import (
	"time"
)

// Complaint is a customer complaint tracked by its human-readable reference
type Complaint struct {
	ID          int64     `json:"id"`
	Reference   string    `json:"reference_id"`
	OwnerID     string    `json:"user_id"`
	Category    Category  `json:"type"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Contact     string    `json:"contact_info"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ApplyLegacyDefaults fills status and priority for rows written before those columns existed
func (c *Complaint) ApplyLegacyDefaults() {
	if c.Status == "" {
		c.Status = StatusNew
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
}

// Response is a staff reply attached to a complaint
type Response struct {
	ID          int64     `json:"id"`
	ComplaintID int64     `json:"complaint_id"`
	AuthorID    string    `json:"admin_id"`
	AuthorName  string    `json:"admin_name,omitempty"`
	Message     string    `json:"response"`
	CreatedAt   time.Time `json:"created_at"`
}

// ComplaintView is a complaint with its ledger and responses attached
type ComplaintView struct {
	*Complaint
	History   []*StatusHistoryEntry `json:"status_history"`
	Responses []*Response           `json:"responses"`
}

// ComplaintFilter narrows a complaint listing
type ComplaintFilter struct {
	OwnerID       string
	Status        Status
	Category      Category
	CreatedAfter  *time.Time // inclusive
	CreatedBefore *time.Time // exclusive
	Limit         int
	Offset        int
}

// ComplaintStats counts complaints per status
type ComplaintStats struct {
	Total      int64 `json:"total"`
	New        int64 `json:"new"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}
