package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lager_system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateLoanInput struct {
	ItemID      string // one of ItemID / ItemBarcode
	ItemBarcode string
	UserID      string // borrower, already resolved by the caller
	DueDate     time.Time
	Note        string
	Manual      bool // manually overridden loan, flagged for triage
}

// CreateLoan reserves one unit of the item and opens the loan in a single
// transaction. The reserve is a conditional UPDATE so the quantity check and
// the decrement cannot be split by a concurrent request; zero rows affected
// means the item is out of stock and nothing is written.
func (r *Repo) CreateLoan(ctx context.Context, in CreateLoanInput) (*models.Loan, error) {
	var loan *models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var it models.Item
		q := tx
		if in.ItemID != "" {
			q = q.Where("id = ?", in.ItemID)
		} else {
			q = q.Where("barcode = ?", in.ItemBarcode)
		}
		if err := q.First(&it).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		res := tx.Model(&models.Item{}).
			Where("id = ? AND quantity > 0", it.ID).
			Update("quantity", gorm.Expr("quantity - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOutOfStock
		}

		now := time.Now().UTC()
		userID := in.UserID
		l := &models.Loan{
			ID:       uuid.NewString(),
			ItemID:   it.ID,
			UserID:   &userID,
			LoanDate: now,
			DueDate:  in.DueDate,
			Notes:    in.Note,
		}
		if err := tx.Create(l).Error; err != nil {
			return err
		}

		if in.Manual {
			f := &models.Flag{
				ID:       uuid.NewString(),
				ItemID:   &it.ID,
				UserID:   &userID,
				LoanID:   &l.ID,
				FlagType: models.FlagTypeManualLoan,
				Message:  fmt.Sprintf("Loan of '%s' was created manually.", it.Name),
				Status:   models.FlagOpen,
			}
			// Annotation only: the loan stands even if the flag write fails.
			if err := tx.Create(f).Error; err != nil {
				log.Printf("manual loan flag for loan %s not recorded: %v", l.ID, err)
			}
		}

		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

type ReturnLoanInput struct {
	LoanID  string
	Actor   Actor
	Message string // optional borrower remark, escalated to a flag
}

// ReturnLoan closes the loan, releases the unit back to the item, and, when
// the borrower left a remark, files an under-review flag. All three writes
// commit or roll back together. The terminal-state guard sits in the WHERE
// clause of the loan update, so two concurrent returns cannot both release.
func (r *Repo) ReturnLoan(ctx context.Context, in ReturnLoanInput) (*models.Loan, error) {
	var out models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l models.Loan
		if err := tx.First(&l, "id = ?", in.LoanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if l.ReturnDate != nil {
			return ErrAlreadyReturned
		}
		// Anonymized loans (UserID nil) can only be returned by an admin.
		if !in.Actor.Admin {
			if l.UserID == nil || *l.UserID != in.Actor.UserID {
				return ErrForbidden
			}
		}

		now := time.Now().UTC()
		res := tx.Model(&models.Loan{}).
			Where("id = ? AND return_date IS NULL", l.ID).
			Update("return_date", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReturned
		}

		if err := tx.Model(&models.Item{}).
			Where("id = ?", l.ItemID).
			Update("quantity", gorm.Expr("quantity + 1")).Error; err != nil {
			return err
		}

		if msg := strings.TrimSpace(in.Message); msg != "" {
			itemName := "item " + l.ItemID
			var it models.Item
			if err := tx.First(&it, "id = ?", l.ItemID).Error; err == nil {
				itemName = it.Name
			}
			userName := "unknown user"
			if l.UserID != nil {
				var u models.User
				if err := tx.First(&u, "id = ?", *l.UserID).Error; err == nil {
					userName = u.Name
				}
			}
			f := &models.Flag{
				ID:       uuid.NewString(),
				ItemID:   &l.ItemID,
				UserID:   l.UserID,
				LoanID:   &l.ID,
				FlagType: models.FlagTypeReturnMessage,
				Message:  fmt.Sprintf("%s returned '%s' with message:\n\n%s", userName, itemName, msg),
				Status:   models.FlagUnderReview,
			}
			if err := tx.Create(f).Error; err != nil {
				return err
			}
		}

		if err := tx.First(&out, "id = ?", l.ID).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtendLoan moves the due date of an open loan. Same-state transition:
// only the loan's own borrower may extend, and never after return.
func (r *Repo) ExtendLoan(ctx context.Context, loanID string, actor Actor, newDue time.Time) (*models.Loan, error) {
	var out models.Loan
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var l models.Loan
		if err := tx.First(&l, "id = ?", loanID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if l.ReturnDate != nil {
			return ErrAlreadyReturned
		}
		if l.UserID == nil || *l.UserID != actor.UserID {
			return ErrForbidden
		}

		res := tx.Model(&models.Loan{}).
			Where("id = ? AND return_date IS NULL", l.ID).
			Update("due_date", newDue)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReturned
		}

		return tx.First(&out, "id = ?", l.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) FindLoanByID(ctx context.Context, id string) (*models.Loan, error) {
	var l models.Loan
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// LoanRow is a loan joined with its item and borrower for list views.
type LoanRow struct {
	models.Loan
	ItemName    string  `json:"itemName"`
	ItemBarcode *string `json:"itemBarcode,omitempty"`
	Category    string  `json:"category,omitempty"`
	Location    string  `json:"location,omitempty"`
	UserName    *string `json:"userName,omitempty"`
	ClassYear   *string `json:"classYear,omitempty"`
}

func (r *Repo) loanRows(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Table(models.LoanTable+" l").
		Select(`l.*,
			i.name AS item_name, i.barcode AS item_barcode, i.category, i.location,
			u.name AS user_name, u.class_year`).
		Joins("LEFT JOIN " + models.ItemTable + " i ON i.id = l.item_id").
		Joins("LEFT JOIN " + models.UserTable + " u ON u.id = l.user_id")
}

// ListOpenLoans returns every open loan, soonest due first (admin view).
func (r *Repo) ListOpenLoans(ctx context.Context) ([]LoanRow, error) {
	var rows []LoanRow
	err := r.loanRows(ctx).
		Where("l.return_date IS NULL").
		Order("l.due_date ASC").
		Scan(&rows).Error
	return rows, err
}

// ListUserOpenLoans returns the user's open loans annotated with item names.
func (r *Repo) ListUserOpenLoans(ctx context.Context, userID string) ([]LoanRow, error) {
	var rows []LoanRow
	err := r.loanRows(ctx).
		Where("l.user_id = ? AND l.return_date IS NULL", userID).
		Order("l.due_date ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repo) LoanHistoryForItem(ctx context.Context, itemID string) ([]LoanRow, error) {
	var rows []LoanRow
	err := r.loanRows(ctx).
		Where("l.item_id = ?", itemID).
		Order("l.loan_date DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repo) LoanHistoryForUser(ctx context.Context, userID string) ([]LoanRow, error) {
	var rows []LoanRow
	err := r.loanRows(ctx).
		Where("l.user_id = ?", userID).
		Order("l.loan_date DESC").
		Scan(&rows).Error
	return rows, err
}

// ListOverdueOpenLoans is the read-only query behind the overdue report.
func (r *Repo) ListOverdueOpenLoans(ctx context.Context, now time.Time) ([]LoanRow, error) {
	var rows []LoanRow
	err := r.loanRows(ctx).
		Where("l.return_date IS NULL AND l.due_date < ?", now).
		Order("l.due_date ASC").
		Scan(&rows).Error
	return rows, err
}

// FlagOverdueLoans writes one overdue flag per overdue open loan, all in one
// transaction, and returns the loans for the notification body.
func (r *Repo) FlagOverdueLoans(ctx context.Context, now time.Time) ([]LoanRow, error) {
	rows, err := r.ListOverdueOpenLoans(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			l := rows[i]
			itemID := l.ItemID
			loanID := l.Loan.ID
			f := &models.Flag{
				ID:       uuid.NewString(),
				ItemID:   &itemID,
				UserID:   l.UserID,
				LoanID:   &loanID,
				FlagType: models.FlagTypeOverdue,
				Message:  fmt.Sprintf("Loan of '%s' was due %s and is still open.", l.ItemName, l.DueDate.Format("2006-01-02")),
				Status:   models.FlagOpen,
			}
			if err := tx.Create(f).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateLoanDelivery sets the delivery annotation fields. Allowed on
// returned loans; annotations never reopen a loan.
func (r *Repo) UpdateLoanDelivery(ctx context.Context, loanID, status, notes string) (*models.Loan, error) {
	updates := map[string]any{}
	if strings.TrimSpace(status) != "" {
		updates["delivery_status"] = status
	}
	if notes != "" {
		updates["delivery_notes"] = notes
	}
	return r.annotateLoan(ctx, loanID, updates)
}

func (r *Repo) UpdateLoanReport(ctx context.Context, loanID, report string) (*models.Loan, error) {
	return r.annotateLoan(ctx, loanID, map[string]any{"report": report})
}

func (r *Repo) annotateLoan(ctx context.Context, loanID string, updates map[string]any) (*models.Loan, error) {
	if len(updates) == 0 {
		return r.FindLoanByID(ctx, loanID)
	}
	res := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ?", loanID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindLoanByID(ctx, loanID)
}

func (r *Repo) CountOpenLoansForItem(ctx context.Context, itemID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("item_id = ? AND return_date IS NULL", itemID).
		Count(&n).Error
	return n, err
}

func (r *Repo) CountOpenLoansForUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("user_id = ? AND return_date IS NULL", userID).
		Count(&n).Error
	return n, err
}
