package app

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"lager_system/db"
	"lager_system/notify"
	"lager_system/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Aliases so handlers stay short
type Ctx = gin.Context
type H = gin.H

// App aggregates the shared dependencies.
type App struct {
	Router   *gin.Engine
	DB       *gorm.DB
	RDB      *redis.Client
	Notifier notify.Notifier
	Config   Config

	appSess *session.AppSessionStore
}

// Config is read from environment variables.
type Config struct {
	RedisAddr            string
	RedisPwd             string
	WebOrigin            string
	SessionTTL           time.Duration
	RetentionPeriod      time.Duration
	DefaultAdminPassword string
}

func (a *App) AppSessions() *session.AppSessionStore { return a.appSess }

// New wires an App from already-built dependencies; tests use it with an
// in-memory store and miniredis.
func New(dbConn *gorm.DB, rdb *redis.Client, notifier notify.Notifier, cfg Config) *App {
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	return &App{
		Router:   r,
		DB:       dbConn,
		RDB:      rdb,
		Notifier: notifier,
		Config:   cfg,
		appSess:  session.NewAppSessionStore(rdb, cfg.SessionTTL),
	}
}

func MustNew() *App {
	cfg := loadConfig()

	dbConn := db.ConnectDB()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	return New(dbConn, rdb, notify.FromEnv(), cfg)
}

func (a *App) Close() { _ = a.RDB.Close() }

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}

	ttl := 24 * time.Hour
	if d, err := time.ParseDuration(get("SESSION_TTL_SECONDS", "86400") + "s"); err == nil {
		ttl = d
	}

	// Retention sweep cutoff, 3 years unless overridden.
	retentionDays := 3 * 365
	if n, err := strconv.Atoi(get("GDPR_RETENTION_DAYS", "")); err == nil && n > 0 {
		retentionDays = n
	}

	return Config{
		RedisAddr:            get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:             os.Getenv("REDIS_PASSWORD"),
		WebOrigin:            get("WEB_ORIGIN", "http://localhost:5173"),
		SessionTTL:           ttl,
		RetentionPeriod:      time.Duration(retentionDays) * 24 * time.Hour,
		DefaultAdminPassword: get("DEFAULT_ADMIN_PASSWORD", "1234"),
	}
}

// SecureCookies reports whether session cookies should carry the Secure flag.
func (c Config) SecureCookies() bool { return strings.HasPrefix(c.WebOrigin, "https://") }
