package db

import (
	"context"
	"errors"

	"lager_system/models"

	"gorm.io/gorm"
)

// Scan result kinds.
const (
	ScanItem    = "item"
	ScanUser    = "user"
	ScanUnknown = "unknown"
)

// ScanResult is one of item / user / unknown. An item hit carries its open
// loan and the borrower's public identity when a unit is out; a user hit
// carries the user's open loans annotated with item names.
type ScanResult struct {
	Type string `json:"type"`

	Item     *models.Item       `json:"item,omitempty"`
	Loaned   bool               `json:"loaned"`
	Loan     *models.Loan       `json:"loan,omitempty"`
	LoanedTo *models.PublicUser `json:"loanedTo,omitempty"`

	User        *models.PublicUser `json:"user,omitempty"`
	ActiveLoans []LoanRow          `json:"activeLoans,omitempty"`

	Barcode string `json:"barcode,omitempty"`
}

// ResolveBarcode maps a barcode to an item, a user, or unknown. Items are
// tried first; the write-time uniqueness of the shared barcode namespace
// guarantees at most one hit. Read-only.
func (r *Repo) ResolveBarcode(ctx context.Context, barcode string) (*ScanResult, error) {
	var it models.Item
	err := r.DB.WithContext(ctx).Where("barcode = ?", barcode).First(&it).Error
	if err == nil {
		res := &ScanResult{Type: ScanItem, Item: &it}

		var loan models.Loan
		err := r.DB.WithContext(ctx).
			Where("item_id = ? AND return_date IS NULL", it.ID).
			Order("loan_date DESC").
			First(&loan).Error
		if err == nil {
			res.Loaned = true
			res.Loan = &loan
			if loan.UserID != nil {
				if u, err := r.FindUserByID(ctx, *loan.UserID); err == nil {
					pub := u.Public()
					res.LoanedTo = &pub
				}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return res, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var u models.User
	err = r.DB.WithContext(ctx).Where("barcode = ?", barcode).First(&u).Error
	if err == nil {
		loans, err := r.ListUserOpenLoans(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		pub := u.Public()
		return &ScanResult{Type: ScanUser, User: &pub, ActiveLoans: loans}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return &ScanResult{Type: ScanUnknown, Barcode: barcode}, nil
}
