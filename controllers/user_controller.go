package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"lager_system/app"
	"lager_system/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type UserController struct{ *Srv }

func GetUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /users — public view, no contact info.
func (uc *UserController) ListUsers(c *gin.Context) {
	users, err := uc.Repo.ListUsersPublic(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// POST /users/search — name substring, used by the login picker.
func (uc *UserController) SearchUsers(c *gin.Context) {
	var in struct {
		Name string `json:"name"`
	}
	_ = c.ShouldBindJSON(&in)
	if strings.TrimSpace(in.Name) == "" {
		c.JSON(http.StatusOK, []models.PublicUser{})
		return
	}
	users, err := uc.Repo.SearchUsersByName(c.Request.Context(), in.Name)
	if err != nil {
		httpError(c, err)
		return
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	c.JSON(http.StatusOK, out)
}

// GET /users/:id — public identity plus loan history.
func (uc *UserController) GetUser(c *gin.Context) {
	id := c.Param("id")
	u, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	loans, err := uc.Repo.LoanHistoryForUser(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u.Public(), "loans": loans})
}

// --- admin ---

// GET /admin/users — with contact info.
func (uc *UserController) AdminListUsers(c *gin.Context) {
	users, err := uc.Repo.ListUsersAdmin(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GET /admin/users/:id
func (uc *UserController) AdminGetUser(c *gin.Context) {
	id := c.Param("id")
	u, err := uc.Repo.FindUserByID(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	loans, err := uc.Repo.LoanHistoryForUser(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u, "loans": loans})
}

// POST /admin/users
func (uc *UserController) CreateUser(c *gin.Context) {
	var in struct {
		Name      string `json:"name" binding:"required"`
		Barcode   string `json:"barcode"`
		ClassYear string `json:"class_year"`
		Role      string `json:"role"`
		Username  string `json:"username"`
		Password  string `json:"password"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	u := &models.User{
		Name:  in.Name,
		Role:  in.Role,
		Email: in.Email,
		Phone: in.Phone,
	}
	if bc := strings.TrimSpace(in.Barcode); bc != "" {
		u.Barcode = &bc
	}
	if cy := strings.TrimSpace(in.ClassYear); cy != "" {
		u.ClassYear = &cy
	}
	if un := strings.TrimSpace(in.Username); un != "" {
		u.Username = &un
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			httpError(c, err)
			return
		}
		hashStr := string(hash)
		u.PasswordHash = &hashStr
	}

	if err := uc.Repo.CreateUser(c.Request.Context(), u); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// PUT /admin/users/:id
func (uc *UserController) UpdateUser(c *gin.Context) {
	var in struct {
		Name      *string `json:"name"`
		Barcode   *string `json:"barcode"`
		ClassYear *string `json:"class_year"`
		Role      *string `json:"role"`
		Username  *string `json:"username"`
		Email     *string `json:"email"`
		Phone     *string `json:"phone"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	set("name", in.Name)
	set("class_year", in.ClassYear)
	set("role", in.Role)
	set("email", in.Email)
	set("phone", in.Phone)
	set("notes", in.Notes)
	if in.Barcode != nil {
		if bc := strings.TrimSpace(*in.Barcode); bc != "" {
			updates["barcode"] = bc
		} else {
			updates["barcode"] = nil
		}
	}
	if in.Username != nil {
		if un := strings.TrimSpace(*in.Username); un != "" {
			updates["username"] = un
		} else {
			updates["username"] = nil
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "no fields to update"})
		return
	}

	u, err := uc.Repo.UpdateUser(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DELETE /admin/users/:id — anonymizes loan history, refuses with open
// loans, and revokes every live session of the deleted user.
func (uc *UserController) DeleteUser(c *gin.Context) {
	id := c.Param("id")

	if actor, ok := app.ActorFrom(c); ok && actor.UserID == id {
		c.JSON(http.StatusBadRequest, app.H{"error": "cannot delete yourself"})
		return
	}

	if err := uc.Repo.DeleteUser(c.Request.Context(), id); err != nil {
		httpError(c, err)
		return
	}
	_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
	c.JSON(http.StatusOK, app.H{"message": "user deleted (loans anonymized)"})
}

// POST /admin/users/batch_delete
func (uc *UserController) BatchDeleteUsers(c *gin.Context) {
	var in struct {
		UserIDs []string `json:"user_ids"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || len(in.UserIDs) == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "user_ids required"})
		return
	}

	actor, _ := app.ActorFrom(c)
	deleted := 0
	var errs []string
	for _, id := range in.UserIDs {
		if id == actor.UserID {
			errs = append(errs, fmt.Sprintf("cannot delete yourself (%s)", id))
			continue
		}
		if err := uc.Repo.DeleteUser(c.Request.Context(), id); err != nil {
			errs = append(errs, fmt.Sprintf("user %s: %v", id, err))
			continue
		}
		_ = uc.AppSess.RevokeAllForUser(c.Request.Context(), id)
		deleted++
	}

	if len(errs) > 0 {
		c.JSON(http.StatusMultiStatus, app.H{
			"message": fmt.Sprintf("%d users deleted, some failed", deleted),
			"errors":  errs,
		})
		return
	}
	c.JSON(http.StatusOK, app.H{"message": fmt.Sprintf("%d users deleted", deleted)})
}

// --- classes ---

// GET /admin/classes
func (uc *UserController) ListClasses(c *gin.Context) {
	classes, err := uc.Repo.ListClasses(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

// GET /admin/classes/:class/users
func (uc *UserController) ListUsersInClass(c *gin.Context) {
	users, err := uc.Repo.ListUsersInClass(c.Request.Context(), c.Param("class"))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// DELETE /admin/classes/:class — detaches users from the class.
func (uc *UserController) DeleteClass(c *gin.Context) {
	class := c.Param("class")
	if err := uc.Repo.ClearClass(c.Request.Context(), class); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": fmt.Sprintf("class %q cleared", class)})
}

// POST /admin/gdpr_cleanup — retention sweep, admin triggered.
func (uc *UserController) GDPRCleanup(c *gin.Context) {
	cutoff := time.Now().UTC().Add(-uc.Cfg.RetentionPeriod)
	res, err := uc.Repo.RetentionSweep(c.Request.Context(), cutoff)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{
		"message":          "retention sweep completed",
		"removed_users":    res.RemovedUsers,
		"anonymized_loans": res.AnonymizedLoans,
	})
}
