// db/repo_items_admin.go
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

func (r *Repo) CreateItem(ctx context.Context, it *models.Item) error {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if err := r.DB.WithContext(ctx).Create(it).Error; err != nil {
		if IsConflict(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *Repo) FindItemByID(ctx context.Context, id string) (*models.Item, error) {
	var it models.Item
	if err := r.DB.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

// UpdateItem applies the non-nil fields. Quantity edits go through here too:
// they adjust available units and are an administrative correction, not a
// loan transition.
func (r *Repo) UpdateItem(ctx context.Context, id string, updates map[string]any) (*models.Item, error) {
	if len(updates) == 0 {
		return r.FindItemByID(ctx, id)
	}
	res := r.DB.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if IsConflict(res.Error) {
			return nil, ErrConflict
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindItemByID(ctx, id)
}

// DeleteItem refuses while any loan is still open for the item.
func (r *Repo) DeleteItem(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Loan{}).
			Where("item_id = ? AND return_date IS NULL", id).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrHasOpenLoans
		}
		res := tx.Delete(&models.Item{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repo) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.DB.WithContext(ctx).Order("name").Find(&items).Error
	return items, err
}

// ItemRow is the public catalog view: the item plus, when a unit is out,
// who currently holds the most recent open loan and when it is due.
type ItemRow struct {
	models.Item
	LoanedTo *string    `json:"loanedTo,omitempty"`
	DueDate  *time.Time `json:"dueDate,omitempty"`
}

// ListItemsWithCurrentLoan joins each item against its newest open loan.
// The correlated subquery keeps the join portable between Postgres and the
// sqlite test driver.
func (r *Repo) ListItemsWithCurrentLoan(ctx context.Context) ([]ItemRow, error) {
	join := fmt.Sprintf(`LEFT JOIN %[1]s ol ON ol.id = (
		SELECT id FROM %[1]s
		WHERE item_id = i.id AND return_date IS NULL
		ORDER BY loan_date DESC LIMIT 1
	)`, models.LoanTable)

	var rows []ItemRow
	err := r.DB.WithContext(ctx).
		Table(models.ItemTable+" i").
		Select("i.*, u.name AS loaned_to, ol.due_date AS due_date").
		Joins(join).
		Joins("LEFT JOIN " + models.UserTable + " u ON u.id = ol.user_id").
		Order("i.name").
		Scan(&rows).Error
	return rows, err
}
