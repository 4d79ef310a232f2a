// app/bootstrap.go
package app

import (
	"context"
	"log"

	"lager_system/db"
	"lager_system/models"

	"golang.org/x/crypto/bcrypt"
)

// BootstrapDefaultAdmin makes sure an admin account exists so a fresh
// install can be logged into. The default password comes from
// DEFAULT_ADMIN_PASSWORD and should be changed immediately.
func BootstrapDefaultAdmin(ctx context.Context, cfg Config, repo *db.Repo) {
	if _, err := repo.FindUserByUsername(ctx, "admin"); err == nil {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("bootstrap admin: %v", err)
		return
	}
	username := "admin"
	hashStr := string(hash)
	u := &models.User{
		Name:         "System Admin",
		Role:         models.RoleAdmin,
		Username:     &username,
		PasswordHash: &hashStr,
	}
	if err := repo.CreateUser(ctx, u); err != nil {
		log.Printf("bootstrap admin: %v", err)
		return
	}
	log.Println("[BOOTSTRAP] default admin created (username=admin), change its password")
}
