package controllers

import (
	"errors"
	"net/http"
	"strings"

	"lager_system/app"
	"lager_system/db"
	"lager_system/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct{ *Srv }

func GetAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// POST /auth/login — admin login with username + password.
func (ac *AuthController) AdminLogin(c *gin.Context) {
	var in struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "username and password required"})
		return
	}

	u, err := ac.Repo.FindUserByUsername(c.Request.Context(), strings.TrimSpace(in.Username))
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid credentials"})
		return
	}
	if u.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": "invalid credentials"})
		return
	}
	if !u.IsAdmin() {
		c.JSON(http.StatusUnauthorized, app.H{"error": "user does not have admin privileges"})
		return
	}

	if err := ac.issueSession(c.Request.Context(), c.Writer, u.ID, true); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "ok", "user": u})
}

// POST /auth/user/login — borrower login by name (or picked id) + password.
// A known user without credentials claims a password and class on first
// login; an unknown name registers a new borrower.
func (ac *AuthController) UserLogin(c *gin.Context) {
	var in struct {
		Name      string `json:"name"`
		Password  string `json:"password"`
		UserID    string `json:"user_id"`
		ClassYear string `json:"class_year"`
	}
	_ = c.ShouldBindJSON(&in)
	in.Name = strings.TrimSpace(in.Name)
	in.ClassYear = strings.TrimSpace(in.ClassYear)

	if in.Name == "" && in.UserID == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "name or user_id required"})
		return
	}

	var u *models.User
	var err error
	if in.UserID != "" {
		u, err = ac.Repo.FindUserByID(c.Request.Context(), in.UserID)
		if err != nil {
			httpError(c, err)
			return
		}
	} else {
		u, err = ac.Repo.FindUserByName(c.Request.Context(), in.Name)
		if errors.Is(err, db.ErrNotFound) {
			u, err = ac.registerUser(c, in.Name, in.Password, in.ClassYear)
			if err != nil {
				return // response already written
			}
		} else if err != nil {
			httpError(c, err)
			return
		}
	}

	switch {
	case u.PasswordHash != nil:
		if in.Password == "" ||
			bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(in.Password)) != nil {
			c.JSON(http.StatusUnauthorized, app.H{"error": "wrong password"})
			return
		}
	default:
		// First login of a pre-created user: claim the credential pair.
		if in.Password == "" {
			c.JSON(http.StatusBadRequest, app.H{"error": "password required"})
			return
		}
		if in.ClassYear == "" {
			c.JSON(http.StatusBadRequest, app.H{"error": "class required"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			httpError(c, err)
			return
		}
		if err := ac.Repo.ClaimCredentials(c.Request.Context(), u.ID, string(hash), in.ClassYear); err != nil {
			httpError(c, err)
			return
		}
		if u, err = ac.Repo.FindUserByID(c.Request.Context(), u.ID); err != nil {
			httpError(c, err)
			return
		}
	}

	if err := ac.issueSession(c.Request.Context(), c.Writer, u.ID, false); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "ok", "user": u.Public()})
}

// registerUser creates a brand-new borrower during first login. Writes the
// error response itself and returns nil on failure.
func (ac *AuthController) registerUser(c *gin.Context, name, password, classYear string) (*models.User, error) {
	if password == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "password required for new user"})
		return nil, db.ErrMissingActor
	}
	if classYear == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "class required for new user"})
		return nil, db.ErrMissingActor
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		httpError(c, err)
		return nil, err
	}
	hashStr := string(hash)
	u := &models.User{
		Name:         name,
		Role:         models.RoleUser,
		ClassYear:    &classYear,
		PasswordHash: &hashStr,
	}
	if err := ac.Repo.CreateUser(c.Request.Context(), u); err != nil {
		httpError(c, err)
		return nil, err
	}
	return u, nil
}

// POST /auth/logout and /auth/user/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = ac.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	ac.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"message": "logged out"})
}

// GET /auth/me — reports the current session, never errors.
func (ac *AuthController) Me(c *gin.Context) {
	actor, ok := app.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusOK, app.H{"is_admin": false, "is_user": false, "user": nil})
		return
	}
	u, err := ac.Repo.FindUserByID(c.Request.Context(), actor.UserID)
	if err != nil {
		c.JSON(http.StatusOK, app.H{"is_admin": false, "is_user": false, "user": nil})
		return
	}
	if actor.Admin {
		c.JSON(http.StatusOK, app.H{"is_admin": true, "is_user": false, "user": u})
		return
	}
	c.JSON(http.StatusOK, app.H{"is_admin": false, "is_user": true, "user": u.Public()})
}
