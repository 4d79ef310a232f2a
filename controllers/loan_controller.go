package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lager_system/app"
	"lager_system/db"

	"github.com/gin-gonic/gin"
)

type LoanController struct{ *Srv }

func GetLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

// POST /loans
// Public: a borrower session, an admin-picked user id, or a user barcode
// identifies the borrower; the item comes by id or barcode.
func (lc *LoanController) CreateLoan(c *gin.Context) {
	var in struct {
		UserID      string `json:"user_id"`
		UserBarcode string `json:"user_barcode"`
		ItemID      string `json:"item_id"`
		ItemBarcode string `json:"item_barcode"`
		DueDate     string `json:"due_date"`
		Note        string `json:"note"`
		IsManual    bool   `json:"is_manual"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	due, ok := parseDate(in.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, app.H{"error": "due_date required"})
		return
	}
	if in.ItemID == "" && strings.TrimSpace(in.ItemBarcode) == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "item_barcode or item_id required"})
		return
	}

	borrowerID, err := lc.resolveBorrower(c, in.UserID, in.UserBarcode)
	if err != nil {
		httpError(c, err)
		return
	}

	loan, err := lc.Repo.CreateLoan(c.Request.Context(), db.CreateLoanInput{
		ItemID:      in.ItemID,
		ItemBarcode: strings.TrimSpace(in.ItemBarcode),
		UserID:      borrowerID,
		DueDate:     due,
		Note:        in.Note,
		Manual:      in.IsManual,
	})
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// POST /loans/:id/return
func (lc *LoanController) ReturnLoan(c *gin.Context) {
	loanID := c.Param("id")

	var in struct {
		UserBarcode   string `json:"user_barcode"`
		ReturnMessage string `json:"return_message"`
	}
	_ = c.ShouldBindJSON(&in)

	actor, err := lc.loanActor(c, in.UserBarcode)
	if err != nil {
		httpError(c, err)
		return
	}

	loan, err := lc.Repo.ReturnLoan(c.Request.Context(), db.ReturnLoanInput{
		LoanID:  loanID,
		Actor:   actor,
		Message: in.ReturnMessage,
	})
	if err != nil {
		httpError(c, err)
		return
	}

	if msg := strings.TrimSpace(in.ReturnMessage); msg != "" {
		lc.notifyAsync("Return remark on loan "+loan.ID,
			fmt.Sprintf("A borrower left a remark while returning loan %s:\n\n%s", loan.ID, msg))
	}

	c.JSON(http.StatusOK, loan)
}

// POST /loans/:id/extend
func (lc *LoanController) ExtendLoan(c *gin.Context) {
	loanID := c.Param("id")

	var in struct {
		UserBarcode string `json:"user_barcode"`
		NewDueDate  string `json:"new_due_date"`
	}
	_ = c.ShouldBindJSON(&in)

	newDue, ok := parseDate(in.NewDueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, app.H{"error": "new_due_date required"})
		return
	}

	actor, err := lc.loanActor(c, in.UserBarcode)
	if err != nil {
		httpError(c, err)
		return
	}

	loan, err := lc.Repo.ExtendLoan(c.Request.Context(), loanID, actor, newDue)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// GET /users/me/loans — the logged-in borrower's open loans.
func (lc *LoanController) MyOpenLoans(c *gin.Context) {
	actor, ok := app.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "user session required"})
		return
	}
	rows, err := lc.Repo.ListUserOpenLoans(c.Request.Context(), actor.UserID)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GET /admin/loans — all open loans, soonest due first.
func (lc *LoanController) AdminListLoans(c *gin.Context) {
	rows, err := lc.Repo.ListOpenLoans(c.Request.Context())
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// PUT /admin/loans/:id/delivery
func (lc *LoanController) UpdateDelivery(c *gin.Context) {
	var in struct {
		DeliveryStatus string `json:"delivery_status"`
		DeliveryNotes  string `json:"delivery_notes"`
	}
	_ = c.ShouldBindJSON(&in)
	if strings.TrimSpace(in.DeliveryStatus) == "" && in.DeliveryNotes == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "no updates given"})
		return
	}

	loan, err := lc.Repo.UpdateLoanDelivery(c.Request.Context(), c.Param("id"), in.DeliveryStatus, in.DeliveryNotes)
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// PUT /admin/loans/:id/report
func (lc *LoanController) UpdateReport(c *gin.Context) {
	var in struct {
		Report string `json:"report"`
	}
	_ = c.ShouldBindJSON(&in)

	loan, err := lc.Repo.UpdateLoanReport(c.Request.Context(), c.Param("id"), strings.TrimSpace(in.Report))
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// POST /admin/check_overdue — flag every overdue open loan, then send one
// report.
func (lc *LoanController) CheckOverdue(c *gin.Context) {
	rows, err := lc.Repo.FlagOverdueLoans(c.Request.Context(), time.Now().UTC())
	if err != nil {
		httpError(c, err)
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusOK, app.H{"message": "no overdue loans"})
		return
	}

	var b strings.Builder
	b.WriteString("The following loans are overdue:\n\n")
	for i := range rows {
		who := "(anonymized)"
		if rows[i].UserName != nil {
			who = *rows[i].UserName
		}
		fmt.Fprintf(&b, "%s borrowed by %s, due %s\n",
			rows[i].ItemName, who, rows[i].DueDate.Format("2006-01-02"))
	}
	lc.notifyAsync("Overdue loans report", b.String())

	c.JSON(http.StatusOK, app.H{
		"message": fmt.Sprintf("%d overdue loans found and flagged", len(rows)),
	})
}

// notifyAsync fires the notification after the response; delivery failures
// are logged inside the notifier and never reach the caller.
func (s *Srv) notifyAsync(subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.Notifier.Send(ctx, subject, body, nil)
	}()
}
