package db

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"lager_system/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestRepo runs the real migrations against an in-memory sqlite DB.
// One shared-cache DB per test, single connection so the memory DB lives
// for the whole test.
func openTestRepo(t *testing.T) *Repo {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(gdb)
}

func seedItem(t *testing.T, r *Repo, name, barcode string, quantity int) *models.Item {
	t.Helper()
	it := &models.Item{Name: name, Quantity: quantity}
	if barcode != "" {
		it.Barcode = &barcode
	}
	if err := r.CreateItem(context.Background(), it); err != nil {
		t.Fatalf("seed item %s: %v", name, err)
	}
	return it
}

func seedUser(t *testing.T, r *Repo, name, barcode string) *models.User {
	t.Helper()
	u := &models.User{Name: name}
	if barcode != "" {
		u.Barcode = &barcode
	}
	if err := r.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func itemQuantity(t *testing.T, r *Repo, itemID string) int {
	t.Helper()
	it, err := r.FindItemByID(context.Background(), itemID)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return it.Quantity
}

func dueOn(day string) time.Time {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return d
}
