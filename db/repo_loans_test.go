package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"lager_system/models"
)

func TestCreateLoanDecrementsUntilOutOfStock(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Multimeter", "I-100", 2)
	u := seedUser(t, r, "Alice", "U-100")

	due := dueOn("2025-01-10")
	for i := 0; i < 2; i++ {
		if _, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: due}); err != nil {
			t.Fatalf("loan %d: %v", i, err)
		}
	}

	_, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: due})
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("want ErrOutOfStock, got %v", err)
	}

	if q := itemQuantity(t, r, it.ID); q != 0 {
		t.Fatalf("quantity = %d, want 0", q)
	}
	open, err := r.CountOpenLoansForItem(ctx, it.ID)
	if err != nil {
		t.Fatal(err)
	}
	// initial - current == open loans
	if int(open) != 2 {
		t.Fatalf("open loans = %d, want 2", open)
	}
}

func TestCreateLoanByBarcodeAndNotFound(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Projector", "I-200", 1)
	u := seedUser(t, r, "Bob", "U-200")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemBarcode: "I-200", UserID: u.ID, DueDate: dueOn("2025-02-01")})
	if err != nil {
		t.Fatalf("create by barcode: %v", err)
	}
	if loan.ItemID != it.ID {
		t.Fatalf("loan item = %s, want %s", loan.ItemID, it.ID)
	}
	if loan.State() != models.LoanOpen {
		t.Fatalf("state = %s, want open", loan.State())
	}

	if _, err := r.CreateLoan(ctx, CreateLoanInput{ItemBarcode: "no-such", UserID: u.ID, DueDate: dueOn("2025-02-01")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestCreateLoanManualWritesFlag(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Oscilloscope", "I-300", 1)
	u := seedUser(t, r, "Carol", "U-300")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2025-03-01"), Manual: true})
	if err != nil {
		t.Fatal(err)
	}

	var flags []models.Flag
	if err := r.DB.Where("loan_id = ?", loan.ID).Find(&flags).Error; err != nil {
		t.Fatal(err)
	}
	if len(flags) != 1 {
		t.Fatalf("flags = %d, want 1", len(flags))
	}
	f := flags[0]
	if f.FlagType != models.FlagTypeManualLoan {
		t.Fatalf("flag type = %s", f.FlagType)
	}
	if f.Status != models.FlagOpen || f.Resolved {
		t.Fatalf("flag not open: status=%s resolved=%v", f.Status, f.Resolved)
	}
	if f.ItemID == nil || *f.ItemID != it.ID || f.UserID == nil || *f.UserID != u.ID {
		t.Fatal("flag subject refs wrong")
	}
}

func TestReturnLoanTwice(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Drill", "I-400", 1)
	u := seedUser(t, r, "Dave", "U-400")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2025-01-10")})
	if err != nil {
		t.Fatal(err)
	}

	actor := Actor{UserID: u.ID}
	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: actor}); err != nil {
		t.Fatalf("first return: %v", err)
	}
	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: actor}); !errors.Is(err, ErrAlreadyReturned) {
		t.Fatalf("want ErrAlreadyReturned, got %v", err)
	}

	// second attempt must not double-increment
	if q := itemQuantity(t, r, it.ID); q != 1 {
		t.Fatalf("quantity = %d, want 1", q)
	}
}

func TestReturnLoanAuthorization(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Camera", "I-500", 2)
	owner := seedUser(t, r, "Erin", "U-500")
	other := seedUser(t, r, "Frank", "U-501")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: owner.ID, DueDate: dueOn("2025-01-10")})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: other.ID}}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	// an admin may return on the borrower's behalf
	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: other.ID, Admin: true}}); err != nil {
		t.Fatalf("admin return: %v", err)
	}
}

func TestReturnAnonymizedLoanAdminOnly(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Tripod", "I-600", 1)
	u := seedUser(t, r, "Grace", "U-600")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2025-01-10")})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.DB.Model(&models.Loan{}).Where("id = ?", loan.ID).Update("user_id", nil).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: u.ID}}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("borrower must not match an anonymized loan, got %v", err)
	}
	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: u.ID, Admin: true}}); err != nil {
		t.Fatalf("admin return: %v", err)
	}
	if q := itemQuantity(t, r, it.ID); q != 1 {
		t.Fatalf("quantity = %d, want 1", q)
	}
}

func TestReturnWithMessageFilesFlag(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Speaker", "I-700", 1)
	u := seedUser(t, r, "Heidi", "U-700")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2025-01-10")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: u.ID}, Message: "left speaker crackles"}); err != nil {
		t.Fatal(err)
	}

	var f models.Flag
	if err := r.DB.Where("loan_id = ?", loan.ID).First(&f).Error; err != nil {
		t.Fatalf("flag not written: %v", err)
	}
	if f.FlagType != models.FlagTypeReturnMessage || f.Status != models.FlagUnderReview {
		t.Fatalf("flag = %s/%s", f.FlagType, f.Status)
	}
	if f.ItemID == nil || f.UserID == nil || f.LoanID == nil {
		t.Fatal("flag must reference loan, item and user")
	}
}

func TestExtendThenReturnRoundTrip(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Laptop", "I-800", 3)
	u := seedUser(t, r, "Ivan", "U-800")

	d1 := dueOn("2025-01-10")
	d2 := dueOn("2025-01-24")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: d1})
	if err != nil {
		t.Fatal(err)
	}
	loanDate := loan.LoanDate

	extended, err := r.ExtendLoan(ctx, loan.ID, Actor{UserID: u.ID}, d2)
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !extended.DueDate.Equal(d2) {
		t.Fatalf("due = %v, want %v", extended.DueDate, d2)
	}
	if extended.State() != models.LoanOpen {
		t.Fatal("extend must not change state")
	}

	returned, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: u.ID}})
	if err != nil {
		t.Fatal(err)
	}
	if !returned.LoanDate.Equal(loanDate) {
		t.Fatal("loan_date must be unchanged")
	}
	if !returned.DueDate.Equal(d2) {
		t.Fatal("due_date must keep the extension")
	}
	if returned.ReturnDate == nil {
		t.Fatal("return_date must be set")
	}
	if q := itemQuantity(t, r, it.ID); q != 3 {
		t.Fatalf("quantity = %d, want 3", q)
	}
}

func TestExtendGuards(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Router", "I-900", 1)
	owner := seedUser(t, r, "Judy", "U-900")
	other := seedUser(t, r, "Ken", "U-901")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: owner.ID, DueDate: dueOn("2025-01-10")})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.ExtendLoan(ctx, "missing", Actor{UserID: owner.ID}, dueOn("2025-02-01")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := r.ExtendLoan(ctx, loan.ID, Actor{UserID: other.ID}, dueOn("2025-02-01")); !errors.Is(err, ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}

	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: owner.ID}}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ExtendLoan(ctx, loan.ID, Actor{UserID: owner.ID}, dueOn("2025-02-01")); !errors.Is(err, ErrAlreadyReturned) {
		t.Fatalf("want ErrAlreadyReturned, got %v", err)
	}
}

// The scenario from the ops runbook: one projector, two borrowers.
func TestSingleUnitContention(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	projector := seedItem(t, r, "Projector", "I-950", 1)
	a := seedUser(t, r, "A", "U-950")
	b := seedUser(t, r, "B", "U-951")
	due := dueOn("2025-01-10")

	loanA, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: projector.ID, UserID: a.ID, DueDate: due})
	if err != nil {
		t.Fatal(err)
	}
	if q := itemQuantity(t, r, projector.ID); q != 0 {
		t.Fatalf("quantity = %d, want 0", q)
	}

	if _, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: projector.ID, UserID: b.ID, DueDate: due}); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("want ErrOutOfStock, got %v", err)
	}

	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loanA.ID, Actor: Actor{UserID: a.ID}}); err != nil {
		t.Fatal(err)
	}
	if q := itemQuantity(t, r, projector.ID); q != 1 {
		t.Fatalf("quantity = %d, want 1", q)
	}

	if _, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: projector.ID, UserID: b.ID, DueDate: due}); err != nil {
		t.Fatalf("B after return: %v", err)
	}
}

func TestOverdueFlagging(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Welder", "I-960", 2)
	u := seedUser(t, r, "Lena", "U-960")

	late, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2025-01-01")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2099-01-01")}); err != nil {
		t.Fatal(err)
	}

	rows, err := r.FlagOverdueLoans(ctx, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Loan.ID != late.ID {
		t.Fatalf("overdue rows = %v", rows)
	}

	var flags []models.Flag
	if err := r.DB.Where("flag_type = ?", models.FlagTypeOverdue).Find(&flags).Error; err != nil {
		t.Fatal(err)
	}
	if len(flags) != 1 || flags[0].LoanID == nil || *flags[0].LoanID != late.ID {
		t.Fatalf("overdue flags = %+v", flags)
	}
}

func TestLoanAnnotationsAfterReturn(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Sander", "I-970", 1)
	u := seedUser(t, r, "Mia", "U-970")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2025-01-10")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: u.ID}}); err != nil {
		t.Fatal(err)
	}

	// annotations stay writable on a terminal loan and never reopen it
	got, err := r.UpdateLoanDelivery(ctx, loan.ID, "delivered", "left at front desk")
	if err != nil {
		t.Fatal(err)
	}
	if got.DeliveryStatus != "delivered" || got.State() != models.LoanReturned {
		t.Fatalf("got %+v", got)
	}
	got, err = r.UpdateLoanReport(ctx, loan.ID, "minor scratches")
	if err != nil {
		t.Fatal(err)
	}
	if got.Report != "minor scratches" {
		t.Fatalf("report = %q", got.Report)
	}
	if q := itemQuantity(t, r, it.ID); q != 1 {
		t.Fatalf("quantity = %d, want 1", q)
	}
}
