// controllers/srv.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lager_system/app"
	"lager_system/db"
	"lager_system/notify"
	"lager_system/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Srv struct {
	Repo     *db.Repo
	AppSess  *session.AppSessionStore
	Notifier notify.Notifier
	Cfg      app.Config
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Repo:     db.NewRepo(a.DB),
		AppSess:  a.AppSessions(),
		Notifier: a.Notifier,
		Cfg:      a.Config,
	}
}

// --- helpers ---

func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.Cfg.SecureCookies(),
	})
}

// issueSession creates the redis session and hands the cookie out.
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string, admin bool) error {
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID, admin); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.Cfg.SessionTTL)
	return nil
}

// resolveBorrower picks the borrower for a public loan operation. Fixed
// precedence, first applicable rung wins:
//  1. authenticated borrower session
//  2. admin session plus an explicit user id
//  3. caller-supplied user barcode
func (s *Srv) resolveBorrower(c *gin.Context, bodyUserID, userBarcode string) (string, error) {
	actor, ok := app.ActorFrom(c)
	if ok && !actor.Admin {
		return actor.UserID, nil
	}
	if ok && actor.Admin && bodyUserID != "" {
		u, err := s.Repo.FindUserByID(c.Request.Context(), bodyUserID)
		if err != nil {
			return "", err
		}
		return u.ID, nil
	}
	if bc := strings.TrimSpace(userBarcode); bc != "" {
		u, err := s.Repo.FindUserByBarcode(c.Request.Context(), bc)
		if err != nil {
			return "", err
		}
		return u.ID, nil
	}
	return "", db.ErrMissingActor
}

// loanActor resolves who is performing a return/extend. A sessionless
// caller identifies as the borrower via barcode and is never an admin.
func (s *Srv) loanActor(c *gin.Context, userBarcode string) (db.Actor, error) {
	if actor, ok := app.ActorFrom(c); ok {
		return actor, nil
	}
	if bc := strings.TrimSpace(userBarcode); bc != "" {
		u, err := s.Repo.FindUserByBarcode(c.Request.Context(), bc)
		if err != nil {
			return db.Actor{}, err
		}
		return db.Actor{UserID: u.ID}, nil
	}
	return db.Actor{}, db.ErrMissingActor
}

// parseDate accepts a plain date (scanner UIs send these) or RFC 3339.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// httpError maps repo outcomes onto transport responses. Borrowers get
// actionable messages; raw detail is reserved for admins.
func httpError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrOutOfStock),
		errors.Is(err, db.ErrAlreadyReturned),
		errors.Is(err, db.ErrMissingActor),
		errors.Is(err, db.ErrHasOpenLoans):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrForbidden):
		c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
	case db.IsConflict(err):
		c.JSON(http.StatusBadRequest, app.H{"error": db.ErrConflict.Error()})
	default:
		body := app.H{"error": "internal error"}
		if v, ok := c.Get("isAdmin"); ok {
			if admin, _ := v.(bool); admin {
				body["detail"] = err.Error()
			}
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
