package cli

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/shelfd/shelf/internal/service"
	"github.com/shelfd/shelf/internal/store"
	"github.com/shelfd/shelf/internal/upload"
)

// resolveDataDir returns the data directory from the --data-dir flag,
// the SHELF_DATA_DIR env var, or ~/.shelf as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("SHELF_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".shelf")
}

// openStore opens the catalog store from the configured driver and DSN.
// With no configuration it uses a SQLite file inside the data directory.
func openStore() (*store.Store, error) {
	driver := viper.GetString("db.driver")
	if driver == "" {
		driver = "sqlite"
	}
	dsn := viper.GetString("db.dsn")
	if dsn == "" && driver == "sqlite" {
		dir := resolveDataDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dsn = filepath.Join(dir, "shelf.db")
	}
	return store.Open(store.Config{Driver: driver, DSN: dsn})
}

// openUploads opens the image upload store inside the data directory.
func openUploads() (*upload.Store, error) {
	dir := viper.GetString("storage.data_dir")
	if dir == "" {
		dir = filepath.Join(resolveDataDir(), "uploads")
	}
	return upload.NewStore(dir)
}

// newAuthService builds the auth service from the configured JWT settings.
func newAuthService(st *store.Store, logger *slog.Logger) *service.AuthService {
	secret := viper.GetString("auth.jwt_secret")
	if secret == "" {
		secret = "shelf-dev-secret-change-me"
		logger.Warn("auth.jwt_secret not set, using insecure development secret")
	}
	ttl := viper.GetDuration("auth.jwt_expiry")
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return service.NewAuthService(st, service.BcryptHasher{}, service.NewJWTSigner(secret), ttl, logger)
}

// newLogger builds the process logger from the configured level.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch viper.GetString("logging.level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
