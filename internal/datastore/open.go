package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/precivox/precivox-images/internal/conf"
	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/logger"
)

const memoryDSN = ":memory:"

// Open connects to the configured backend, migrates the product_images
// table and returns a store that owns the connection pool.
func Open(settings conf.DatabaseSettings, log logger.Logger) (*GormStore, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}

	dialector, target, err := dialectorFor(settings)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log, settings.SlowQueryThreshold),
		TranslateError: true,
	})
	if err != nil {
		return nil, dbError(errors.Join(ErrStoreUnavailable, err), "open", "driver", settings.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, dbError(errors.Join(ErrStoreUnavailable, err), "open", "driver", settings.Driver)
	}

	switch {
	case settings.Driver == "sqlite" && target == memoryDSN:
		// every pooled connection to :memory: would get its own empty database
		sqlDB.SetMaxOpenConns(1)
	case settings.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(settings.MaxOpenConns)
	}

	if err := Migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	log.Info("image record store opened",
		logger.String("driver", settings.Driver),
		logger.String("target", logger.RedactSensitiveData(target)))

	store := NewGormStore(db)
	store.closer = sqlDB.Close
	return store, nil
}

// Migrate creates or updates the product_images schema.
func Migrate(db *gorm.DB) error {
	// keys are compared byte-wise; MySQL's default collations would fold
	// case and accents and merge distinct titles on the unique index
	if db.Dialector.Name() == "mysql" {
		db = db.Set("gorm:table_options", "CHARSET=utf8mb4 COLLATE=utf8mb4_bin")
	}
	if err := db.AutoMigrate(&ImageRecord{}); err != nil {
		return dbError(err, "migrate")
	}
	return nil
}

func dialectorFor(settings conf.DatabaseSettings) (gorm.Dialector, string, error) {
	switch strings.ToLower(settings.Driver) {
	case "", "sqlite":
		path := settings.SQLite.Path
		if path == "" {
			path = settings.DSN
		}
		if path == "" {
			path = memoryDSN
		}
		if path != memoryDSN {
			if err := ensureDir(path); err != nil {
				return nil, path, err
			}
		}
		return sqlite.Open(sqliteDSN(path)), path, nil

	case "mysql":
		return mysql.Open(settings.DSN), settings.DSN, nil

	case "postgres":
		return postgres.Open(settings.DSN), settings.DSN, nil

	default:
		return nil, "", errors.Newf("unsupported database driver %q", settings.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("driver", settings.Driver).
			Build()
	}
}

// sqliteDSN adds the pragmas file-backed databases need for concurrent
// batch writers, unless the path already carries query parameters.
func sqliteDSN(path string) string {
	if path == memoryDSN || strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(fmt.Errorf("create database directory: %w", err)).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", dir).
			Build()
	}
	return nil
}
