package controllers

import (
	"net/http"
	"strings"

	"lager_system/app"
	"lager_system/models"

	"github.com/gin-gonic/gin"
)

type ItemController struct{ *Srv }

func GetItemController(s *Srv) *ItemController { return &ItemController{Srv: s} }

// GET /items — public catalog with current borrower per item.
func (ic *ItemController) ListItems(c *gin.Context) {
	rows, err := ic.Repo.ListItemsWithCurrentLoan(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /items/:id — item with active loan and full loan history.
func (ic *ItemController) GetItem(c *gin.Context) {
	id := c.Param("id")
	it, err := ic.Repo.FindItemByID(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	history, err := ic.Repo.LoanHistoryForItem(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	out := app.H{"item": it, "history": history, "active_loans": []any{}}
	var active []any
	for i := range history {
		if history[i].ReturnDate == nil {
			active = append(active, history[i])
		}
	}
	if active != nil {
		out["active_loans"] = active
	}
	c.JSON(http.StatusOK, out)
}

// POST /admin/items
func (ic *ItemController) CreateItem(c *gin.Context) {
	var in struct {
		Name        string `json:"name" binding:"required"`
		Barcode     string `json:"barcode"`
		Category    string `json:"category"`
		Location    string `json:"location"`
		Description string `json:"description"`
		Quantity    *int   `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	qty := 1
	if in.Quantity != nil && *in.Quantity >= 0 {
		qty = *in.Quantity
	}
	it := &models.Item{
		Name:        in.Name,
		Category:    in.Category,
		Location:    in.Location,
		Description: in.Description,
		Quantity:    qty,
	}
	if bc := strings.TrimSpace(in.Barcode); bc != "" {
		it.Barcode = &bc
	}
	if err := ic.Repo.CreateItem(c.Request.Context(), it); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// PUT /admin/items/:id
func (ic *ItemController) UpdateItem(c *gin.Context) {
	var in struct {
		Name        *string `json:"name"`
		Barcode     *string `json:"barcode"`
		Category    *string `json:"category"`
		Location    *string `json:"location"`
		Description *string `json:"description"`
		Quantity    *int    `json:"quantity"`
		Status      *string `json:"status"`
		Notes       *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Barcode != nil {
		if bc := strings.TrimSpace(*in.Barcode); bc != "" {
			updates["barcode"] = bc
		} else {
			updates["barcode"] = nil
		}
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Location != nil {
		updates["location"] = *in.Location
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Quantity != nil && *in.Quantity >= 0 {
		updates["quantity"] = *in.Quantity
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, app.H{"error": "no fields to update"})
		return
	}

	it, err := ic.Repo.UpdateItem(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// GET /admin/items
func (ic *ItemController) AdminListItems(c *gin.Context) {
	items, err := ic.Repo.ListItems(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GET /admin/items/:id
func (ic *ItemController) AdminGetItem(c *gin.Context) {
	id := c.Param("id")
	it, err := ic.Repo.FindItemByID(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	loans, err := ic.Repo.LoanHistoryForItem(c.Request.Context(), id)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"item": it, "loans": loans})
}

// DELETE /admin/items/:id — refused while a unit is still out.
func (ic *ItemController) DeleteItem(c *gin.Context) {
	if err := ic.Repo.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"message": "item deleted"})
}
