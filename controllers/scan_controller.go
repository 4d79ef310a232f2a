package controllers

import (
	"net/http"
	"strings"

	"lager_system/app"

	"github.com/gin-gonic/gin"
)

type ScanController struct{ *Srv }

func GetScanController(s *Srv) *ScanController { return &ScanController{Srv: s} }

// POST /scan — barcode to item, user, or unknown. Read-only.
func (sc *ScanController) Scan(c *gin.Context) {
	var in struct {
		Barcode string `json:"barcode"`
	}
	_ = c.ShouldBindJSON(&in)

	barcode := strings.TrimSpace(in.Barcode)
	if barcode == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "barcode required"})
		return
	}

	res, err := sc.Repo.ResolveBarcode(c.Request.Context(), barcode)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
