package models

import "time"

const FlagTable = "lager_flags"

// Flag statuses. Status is the authoritative field; Resolved and ResolvedAt
// are derived from it by every writer. Unrecognized statuses are stored
// as-is and treated as non-terminal.
const (
	FlagOpen        = "open"
	FlagUnderReview = "under_review"
	FlagResolved    = "resolved"
	FlagRejected    = "rejected"
)

// Flag types written by the core. Externally-raised flags may carry any tag.
const (
	FlagTypeManualLoan    = "manual_loan"
	FlagTypeOverdue       = "overdue"
	FlagTypeReturnMessage = "return_message"
	FlagTypeGeneral       = "general"
)

// Flag is a weak annotation: its subjects may be deleted or anonymized
// without touching the flag, hence every reference is nullable.
type Flag struct {
	ID     string  `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID *string `gorm:"type:uuid;index" json:"itemId,omitempty"`
	UserID *string `gorm:"type:uuid;index" json:"userId,omitempty"`
	LoanID *string `gorm:"type:uuid;index" json:"loanId,omitempty"`

	FlagType string `gorm:"size:40;not null;default:'general'" json:"flagType"`
	Message  string `gorm:"type:text" json:"message,omitempty"`

	Status          string `gorm:"size:40;not null;default:'open'" json:"status"`
	Resolved        bool   `gorm:"not null;default:false" json:"resolved"`
	ResolutionNotes string `gorm:"type:text" json:"resolutionNotes,omitempty"`

	CreatedBy  *string    `gorm:"type:uuid" json:"createdBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

func (Flag) TableName() string { return FlagTable }

// Terminal reports whether the flag has left the triage queue.
func (f *Flag) Terminal() bool {
	return f.Status == FlagResolved || f.Status == FlagRejected
}
