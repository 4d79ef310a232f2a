package app

import (
	"net/http"

	"lager_system/db"
	"lager_system/session"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "lager_session"

// AuthOptional attaches the actor from a valid session cookie, if any.
// It never aborts: loan routes are public and fall back to barcode
// resolution when no session is present.
func AuthOptional(appSess *session.AppSessionStore, repo *db.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			c.Next()
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.Next()
			return
		}
		// Confirm the user still exists; a stale session for a swept user
		// is dropped here.
		u, err := repo.FindUserByID(c.Request.Context(), as.UserID)
		if err != nil {
			_ = appSess.Delete(c.Request.Context(), ck.Value)
			c.Next()
			return
		}
		c.Set("userID", u.ID)
		c.Set("userName", u.Name)
		c.Set("isAdmin", as.Admin && u.IsAdmin())
		c.Next()
	}
}

// AuthRequired aborts unless AuthOptional resolved an actor.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("userID"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// AdminRequired aborts unless the actor is an administrator.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get("isAdmin")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "admin authentication required"})
			return
		}
		if admin, _ := v.(bool); !admin {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ActorFrom pulls the resolved actor out of the request context.
func ActorFrom(c *gin.Context) (db.Actor, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return db.Actor{}, false
	}
	uid, _ := v.(string)
	admin := false
	if av, ok := c.Get("isAdmin"); ok {
		admin, _ = av.(bool)
	}
	return db.Actor{UserID: uid, Admin: admin}, true
}
