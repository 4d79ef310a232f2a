package routes

import (
	"time"

	"lager_system/app"
	"lager_system/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	s := controllers.GetSrv(a)
	authCtl := controllers.GetAuthController(s)
	scanCtl := controllers.GetScanController(s)
	loanCtl := controllers.GetLoanController(s)
	itemCtl := controllers.GetItemController(s)
	userCtl := controllers.GetUserController(s)
	flagCtl := controllers.GetFlagController(s)

	// Reused middleware. Every route runs AuthOptional: public loan routes
	// accept sessionless barcode callers, but a session still counts when
	// present.
	authMW := app.AuthOptional(s.AppSess, s.Repo)
	seenMW := app.TouchLastSeen(s.Repo, a.RDB, 5*time.Minute)
	r.Use(authMW, seenMW)

	// ------------------------------
	// Public: scan, catalog, loans, flags
	// ------------------------------
	r.POST("/scan", scanCtl.Scan)

	r.GET("/items", itemCtl.ListItems)
	r.GET("/items/:id", itemCtl.GetItem)

	r.GET("/users", userCtl.ListUsers)
	r.POST("/users/search", userCtl.SearchUsers)
	r.GET("/users/:id", userCtl.GetUser)
	r.GET("/users/me/loans", app.AuthRequired(), loanCtl.MyOpenLoans)

	loans := r.Group("/loans")
	{
		loans.POST("", loanCtl.CreateLoan)
		loans.POST("/:id/return", loanCtl.ReturnLoan)
		loans.POST("/:id/extend", loanCtl.ExtendLoan)
	}

	r.POST("/flags", flagCtl.CreateFlag)

	// ------------------------------
	// Auth
	// ------------------------------
	auth := r.Group("/auth")
	{
		auth.POST("/login", authCtl.AdminLogin)
		auth.POST("/logout", authCtl.Logout)
		auth.GET("/me", authCtl.Me)
		auth.POST("/user/login", authCtl.UserLogin)
		auth.POST("/user/logout", authCtl.Logout)
	}

	// ------------------------------
	// Admin
	// ------------------------------
	admin := r.Group("/admin", app.AdminRequired())
	{
		admin.GET("/users", userCtl.AdminListUsers)
		admin.GET("/users/:id", userCtl.AdminGetUser)
		admin.POST("/users", userCtl.CreateUser)
		admin.PUT("/users/:id", userCtl.UpdateUser)
		admin.DELETE("/users/:id", userCtl.DeleteUser)
		admin.POST("/users/batch_delete", userCtl.BatchDeleteUsers)

		admin.GET("/items", itemCtl.AdminListItems)
		admin.GET("/items/:id", itemCtl.AdminGetItem)
		admin.POST("/items", itemCtl.CreateItem)
		admin.PUT("/items/:id", itemCtl.UpdateItem)
		admin.DELETE("/items/:id", itemCtl.DeleteItem)

		admin.GET("/classes", userCtl.ListClasses)
		admin.GET("/classes/:class/users", userCtl.ListUsersInClass)
		admin.DELETE("/classes/:class", userCtl.DeleteClass)

		admin.GET("/loans", loanCtl.AdminListLoans)
		admin.PUT("/loans/:id/delivery", loanCtl.UpdateDelivery)
		admin.PUT("/loans/:id/report", loanCtl.UpdateReport)
		admin.POST("/check_overdue", loanCtl.CheckOverdue)

		admin.GET("/flags", flagCtl.AdminListFlags)
		admin.PUT("/flags/:id/resolve", flagCtl.ResolveFlag)

		admin.POST("/gdpr_cleanup", userCtl.GDPRCleanup)
	}
}
