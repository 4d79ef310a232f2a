package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv loads a local .env if one exists. Deployments set real environment
// variables instead; a missing file is not an error.
func LoadEnv() {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}
}
