package db

import (
	"context"
	"errors"
	"strings"

	"lager_system/models"

	"gorm.io/gorm"
)

type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

// Actor is the resolved identity behind a request, threaded explicitly into
// every state-changing operation. Admin actors may act on loans they do not
// own.
type Actor struct {
	UserID string
	Admin  bool
}

// Users

func (r *Repo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindUserByBarcode(ctx context.Context, barcode string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("barcode = ?", barcode).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) FindUserByName(ctx context.Context, name string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// SearchUsersByName matches a name substring, used by the login picker.
func (r *Repo) SearchUsersByName(ctx context.Context, q string) ([]models.User, error) {
	var users []models.User
	like := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	err := r.DB.WithContext(ctx).
		Where("LOWER(name) LIKE ?", like).
		Order("name").
		Find(&users).Error
	return users, err
}

func (r *Repo) ListUsersPublic(ctx context.Context) ([]models.PublicUser, error) {
	var users []models.User
	if err := r.DB.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// ClaimCredentials sets a password hash (and class) on a user that has none
// yet. The guard is in the WHERE clause so a concurrent claim cannot
// overwrite an existing credential.
func (r *Repo) ClaimCredentials(ctx context.Context, userID, passwordHash, classYear string) error {
	updates := map[string]any{"password_hash": passwordHash}
	if classYear != "" {
		updates["class_year"] = classYear
	}
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND password_hash IS NULL", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
