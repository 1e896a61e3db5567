package gormstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	// Can be provided to SQLite to create a temporary, in-memory DB.
	temporaryDbPath = "file:%s?mode=memory&cache=shared"
)

// Open connects to SQLite or MySQL through gorm and migrates the schema.
// An empty SQLite dsn opens a named in-memory database.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = fmt.Sprintf(temporaryDbPath, "parley")
			jww.WARN.Printf("[STORE] No database file path specified! " +
				"Using temporary in-memory database")
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, errors.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(jww.TRACE, logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize database backend")
	}

	sqlDb, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "unable to configure database connection pool")
	}

	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection also keeps a shared
		// in-memory database alive for the life of the pool.
		sqlDb.SetMaxOpenConns(1)
		if !strings.Contains(dsn, "mode=memory") {
			if err = db.Exec("PRAGMA journal_mode = WAL;").Error; err != nil {
				return nil, err
			}
		}
	} else {
		sqlDb.SetMaxIdleConns(5)
		sqlDb.SetMaxOpenConns(20)
		sqlDb.SetConnMaxIdleTime(5 * time.Minute)
		sqlDb.SetConnMaxLifetime(10 * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	jww.INFO.Printf("[STORE] %s backend initialized", driver)
	return db, nil
}

// OpenMemory opens a private in-memory SQLite database named after name.
func OpenMemory(name string) (*gorm.DB, error) {
	return Open(DriverSQLite, fmt.Sprintf(temporaryDbPath, name))
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	// Order matters: users before the tables that reference them.
	if err := db.AutoMigrate(models()...); err != nil {
		return errors.Wrap(err, "migrating schema")
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func withTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}
