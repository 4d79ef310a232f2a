package db

import (
	"context"
	"time"

	"lager_system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if IsConflict(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *Repo) UpdateUser(ctx context.Context, id string, updates map[string]any) (*models.User, error) {
	if len(updates) == 0 {
		return r.FindUserByID(ctx, id)
	}
	res := r.DB.WithContext(ctx).Model(&models.User{}).
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
	return r.FindUserByID(ctx, id)
}

func (r *Repo) ListUsersAdmin(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).Order("name").Find(&users).Error
	return users, err
}

// DeleteUser anonymizes the user's loan history and removes the record.
// Refused while any loan is still open: returning it afterwards would have
// no borrower to attribute the release to.
func (r *Repo) DeleteUser(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ? AND return_date IS NULL", id).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrHasOpenLoans
		}
		if err := tx.Model(&models.Loan{}).
			Where("user_id = ?", id).
			Update("user_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type SweepResult struct {
	RemovedUsers    int64 `json:"removed_users"`
	AnonymizedLoans int64 `json:"anonymized_loans"`
}

// RetentionSweep removes non-privileged users created before the cutoff
// that have no open loans, anonymizing their loan rows first. A user with
// any open loan is skipped entirely. One transaction for the whole sweep.
func (r *Repo) RetentionSweep(ctx context.Context, cutoff time.Time) (SweepResult, error) {
	var out SweepResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.User
		if err := tx.
			Where("created_at < ? AND role = ?", cutoff, models.RoleUser).
			Find(&candidates).Error; err != nil {
			return err
		}

		for i := range candidates {
			uid := candidates[i].ID

			var open int64
			if err := tx.Model(&models.Loan{}).
				Where("user_id = ? AND return_date IS NULL", uid).
				Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				continue
			}

			res := tx.Model(&models.Loan{}).
				Where("user_id = ?", uid).
				Update("user_id", nil)
			if res.Error != nil {
				return res.Error
			}
			out.AnonymizedLoans += res.RowsAffected

			del := tx.Delete(&models.User{}, "id = ?", uid)
			if del.Error != nil {
				return del.Error
			}
			out.RemovedUsers += del.RowsAffected
		}
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}
	return out, nil
}

// Classes

func (r *Repo) ListClasses(ctx context.Context) ([]string, error) {
	var classes []string
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Distinct("class_year").
		Where("class_year IS NOT NULL").
		Order("class_year").
		Pluck("class_year", &classes).Error
	return classes, err
}

func (r *Repo) ListUsersInClass(ctx context.Context, classYear string) ([]models.User, error) {
	var users []models.User
	err := r.DB.WithContext(ctx).
		Where("class_year = ?", classYear).
		Order("name").
		Find(&users).Error
	return users, err
}

// ClearClass detaches every user from the class; the users stay.
func (r *Repo) ClearClass(ctx context.Context, classYear string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("class_year = ?", classYear).
		Update("class_year", nil).Error
}
