package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lager_system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateFlagInput struct {
	ItemID    *string
	UserID    *string
	LoanID    *string
	FlagType  string
	Message   string
	Status    string // defaults to open
	CreatedBy *string
}

// CreateFlag records an out-of-band event. Subject references are not
// required to exist; a flag outlives its subjects.
func (r *Repo) CreateFlag(ctx context.Context, in CreateFlagInput) (*models.Flag, error) {
	if in.FlagType == "" {
		in.FlagType = models.FlagTypeGeneral
	}
	if in.Status == "" {
		in.Status = models.FlagOpen
	}
	f := &models.Flag{
		ID:        uuid.NewString(),
		ItemID:    in.ItemID,
		UserID:    in.UserID,
		LoanID:    in.LoanID,
		FlagType:  in.FlagType,
		Message:   in.Message,
		Status:    in.Status,
		Resolved:  in.Status == models.FlagResolved,
		CreatedBy: in.CreatedBy,
	}
	if err := r.DB.WithContext(ctx).Create(f).Error; err != nil {
		return nil, err
	}
	return f, nil
}

// FlagRow joins the flag with its subjects for the triage list.
type FlagRow struct {
	models.Flag
	ItemName    *string `json:"itemName,omitempty"`
	ItemBarcode *string `json:"itemBarcode,omitempty"`
	UserName    *string `json:"userName,omitempty"`
	ClassYear   *string `json:"classYear,omitempty"`
}

// ListFlags returns flags in triage order: everything non-terminal first,
// then terminal, newest first inside each group.
func (r *Repo) ListFlags(ctx context.Context) ([]FlagRow, error) {
	order := fmt.Sprintf(
		"CASE WHEN f.status IN ('%s','%s') THEN 1 ELSE 0 END, f.created_at DESC",
		models.FlagResolved, models.FlagRejected,
	)

	var rows []FlagRow
	err := r.DB.WithContext(ctx).
		Table(models.FlagTable+" f").
		Select(`f.*,
			i.name AS item_name, i.barcode AS item_barcode,
			u.name AS user_name, u.class_year`).
		Joins("LEFT JOIN "+models.ItemTable+" i ON i.id = f.item_id").
		Joins("LEFT JOIN "+models.UserTable+" u ON u.id = f.user_id").
		Order(order).
		Scan(&rows).Error
	return rows, err
}

func (r *Repo) FindFlagByID(ctx context.Context, id string) (*models.Flag, error) {
	var f models.Flag
	if err := r.DB.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ResolveFlag sets the status and derives resolved/resolved_at from it.
// resolved_at is stamped only on the transition into resolved and cleared
// whenever the flag moves to any other status.
func (r *Repo) ResolveFlag(ctx context.Context, id, status, resolutionNotes string) (*models.Flag, error) {
	var out models.Flag
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var f models.Flag
		if err := tx.First(&f, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		resolved := status == models.FlagResolved
		updates := map[string]any{
			"status":   status,
			"resolved": resolved,
		}
		if resolved {
			if f.ResolvedAt == nil {
				updates["resolved_at"] = time.Now().UTC()
			}
		} else {
			updates["resolved_at"] = nil
		}
		if resolutionNotes != "" {
			updates["resolution_notes"] = resolutionNotes
		}

		if err := tx.Model(&models.Flag{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
