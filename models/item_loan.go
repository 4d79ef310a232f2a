// models/item_loan.go
package models

import "time"

const LoanTable = "lager_loans"
const ItemTable = "lager_items"

type Item struct {
	ID          string  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string  `gorm:"size:200;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description,omitempty"`
	Barcode     *string `gorm:"size:120;uniqueIndex" json:"barcode,omitempty"` // items without a barcode exist for catalog purposes only
	Category    string  `gorm:"size:100" json:"category,omitempty"`
	Location    string  `gorm:"size:100" json:"location,omitempty"`

	// Quantity is the number of units currently available, not the number
	// owned. Every open loan holds exactly one unit. Never negative; the
	// decrement is guarded by a conditional UPDATE in db.Repo.
	Quantity int `gorm:"not null;default:1" json:"quantity"`

	Status    string    `gorm:"size:20;not null;default:'available'" json:"status"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LoanState is derived from ReturnDate, never stored.
type LoanState string

const (
	LoanOpen     LoanState = "open"
	LoanReturned LoanState = "returned"
)

type Loan struct {
	ID     string  `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID string  `gorm:"type:uuid;index;not null" json:"itemId"`
	UserID *string `gorm:"type:uuid;index" json:"userId,omitempty"` // nil after anonymization

	LoanDate   time.Time  `gorm:"index;not null" json:"loanDate"`
	DueDate    time.Time  `gorm:"not null" json:"dueDate"`
	ReturnDate *time.Time `gorm:"index" json:"returnDate,omitempty"`

	// Administrative annotation fields. Mutable even after return; they do
	// not participate in the open/returned state.
	Notes          string `gorm:"type:text" json:"notes,omitempty"`
	DeliveryStatus string `gorm:"size:40" json:"deliveryStatus,omitempty"`
	DeliveryNotes  string `gorm:"type:text" json:"deliveryNotes,omitempty"`
	Report         string `gorm:"type:text" json:"report,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Item) TableName() string { return ItemTable }
func (Loan) TableName() string { return LoanTable }

func (l *Loan) State() LoanState {
	if l.ReturnDate == nil {
		return LoanOpen
	}
	return LoanReturned
}

func (l *Loan) Overdue(now time.Time) bool {
	return l.ReturnDate == nil && l.DueDate.Before(now)
}
