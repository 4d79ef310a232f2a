package main

import (
	"context"
	"log"
	"os"

	"lager_system/app"
	"lager_system/config"
	"lager_system/db"
	"lager_system/routes"
)

func main() {
	config.LoadEnv()

	application := app.MustNew()
	defer application.Close()

	app.BootstrapDefaultAdmin(context.Background(), application.Config, db.NewRepo(application.DB))

	r := application.Router

	// Health
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(200, app.H{"ok": true}) })

	routes.RegisterRoutes(r, application)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	log.Printf("listening on :%s", port)
	_ = r.Run(":" + port)
}
