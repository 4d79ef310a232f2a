package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"lager_system/app"
	"lager_system/db"

	"github.com/gin-gonic/gin"
)

type FlagController struct{ *Srv }

func GetFlagController(s *Srv) *FlagController { return &FlagController{Srv: s} }

// POST /flags — public. Externally-raised flags must name an item; the
// flagged item need not survive for the flag to stay meaningful.
func (fc *FlagController) CreateFlag(c *gin.Context) {
	var in struct {
		ItemID   string `json:"item_id"`
		FlagType string `json:"flag_type"`
		Message  string `json:"message"`
	}
	_ = c.ShouldBindJSON(&in)

	if strings.TrimSpace(in.ItemID) == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "item_id required"})
		return
	}

	itemID := strings.TrimSpace(in.ItemID)
	var createdBy *string
	if actor, ok := app.ActorFrom(c); ok {
		uid := actor.UserID
		createdBy = &uid
	}

	flag, err := fc.Repo.CreateFlag(c.Request.Context(), db.CreateFlagInput{
		ItemID:    &itemID,
		FlagType:  in.FlagType,
		Message:   in.Message,
		CreatedBy: createdBy,
	})
	if err != nil {
		httpError(c, err)
		return
	}

	fc.notifyAsync("New flag created: "+flag.FlagType,
		fmt.Sprintf("A new flag has been created:\n\nFlag: %s\nItem: %s\nType: %s\nMessage: %s\n",
			flag.ID, itemID, flag.FlagType, flag.Message))

	c.JSON(http.StatusCreated, flag)
}

// GET /admin/flags — triage order: unresolved first, newest first.
func (fc *FlagController) AdminListFlags(c *gin.Context) {
	rows, err := fc.Repo.ListFlags(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// PUT /admin/flags/:id/resolve
func (fc *FlagController) ResolveFlag(c *gin.Context) {
	var in struct {
		Status          string `json:"status"`
		ResolutionNotes string `json:"resolution_notes"`
	}
	_ = c.ShouldBindJSON(&in)

	status := strings.TrimSpace(in.Status)
	if status == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "status required"})
		return
	}

	flag, err := fc.Repo.ResolveFlag(c.Request.Context(), c.Param("id"), status, strings.TrimSpace(in.ResolutionNotes))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, flag)
}
