package db

import (
	"context"
	"errors"
	"testing"

	"lager_system/models"
)

func TestCreateItemBarcodeConflict(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	seedItem(t, r, "Soldering iron", "C-1", 1)

	dupe := "C-1"
	err := r.CreateItem(ctx, &models.Item{Name: "Other iron", Barcode: &dupe, Quantity: 1})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestUpdateItemPartial(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Stapler", "C-2", 2)

	got, err := r.UpdateItem(ctx, it.ID, map[string]any{"location": "shelf 3", "quantity": 5})
	if err != nil {
		t.Fatal(err)
	}
	if got.Location != "shelf 3" || got.Quantity != 5 {
		t.Fatalf("got %+v", got)
	}
	if got.Name != "Stapler" {
		t.Fatal("untouched fields must survive")
	}

	if _, err := r.UpdateItem(ctx, "missing", map[string]any{"location": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteItemRefusedWhileLoaned(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	it := seedItem(t, r, "Ladder", "C-3", 1)
	u := seedUser(t, r, "Zoe", "C-U3")

	loan, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: it.ID, UserID: u.ID, DueDate: dueOn("2025-01-10")})
	if err != nil {
		t.Fatal(err)
	}

	if err := r.DeleteItem(ctx, it.ID); !errors.Is(err, ErrHasOpenLoans) {
		t.Fatalf("want ErrHasOpenLoans, got %v", err)
	}

	if _, err := r.ReturnLoan(ctx, ReturnLoanInput{LoanID: loan.ID, Actor: Actor{UserID: u.ID}}); err != nil {
		t.Fatal(err)
	}
	if err := r.DeleteItem(ctx, it.ID); err != nil {
		t.Fatalf("delete after return: %v", err)
	}
	if _, err := r.FindItemByID(ctx, it.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("item must be gone")
	}
	// loan history outlives the item
	if _, err := r.FindLoanByID(ctx, loan.ID); err != nil {
		t.Fatalf("loan history must survive: %v", err)
	}
}

func TestListItemsWithCurrentLoan(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	free := seedItem(t, r, "Amp", "C-4", 1)
	out := seedItem(t, r, "Mixer", "C-5", 1)
	u := seedUser(t, r, "Ada", "C-U5")
	if _, err := r.CreateLoan(ctx, CreateLoanInput{ItemID: out.ID, UserID: u.ID, DueDate: dueOn("2025-01-10")}); err != nil {
		t.Fatal(err)
	}

	rows, err := r.ListItemsWithCurrentLoan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byID := map[string]ItemRow{}
	for _, row := range rows {
		byID[row.Item.ID] = row
	}

	if got := byID[free.ID]; got.LoanedTo != nil || got.DueDate != nil {
		t.Fatalf("free item must not carry a loan: %+v", got)
	}
	got := byID[out.ID]
	if got.LoanedTo == nil || *got.LoanedTo != "Ada" {
		t.Fatalf("loaned item row = %+v", got)
	}
	if got.DueDate == nil {
		t.Fatal("due date missing on loaned row")
	}
}
