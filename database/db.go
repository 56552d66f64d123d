package database

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"yamdb/internal/http-api/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// SQLitePrefix selects the sqlite driver, e.g. "sqlite:yamdb.db".
const SQLitePrefix = "sqlite:"

// Open connects to postgres (through pgx) or sqlite depending on the DSN
// and verifies the connection.
func Open(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	if path, ok := strings.CutPrefix(dsn, SQLitePrefix); ok {
		db, err = openSQLite(path, gormCfg)
	} else {
		db, err = openPostgres(dsn, gormCfg)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to the database", "dialect", db.Dialector.Name())
	return db, nil
}

func openPostgres(dsn string, gormCfg *gorm.Config) (*gorm.DB, error) {
	pgCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pgCfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		d := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
		return d.DialContext(ctx, network, addr)
	}

	sqlDB := stdlib.OpenDB(*pgCfg)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func openSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if !strings.Contains(path, "_foreign_keys") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "_foreign_keys=on"
	}
	db, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// OpenMemory opens a private in-memory sqlite database with the schema
// applied. Each name gets its own database.
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := SQLitePrefix + "file:" + name + "?mode=memory&cache=shared"
	db, err := Open(dsn, slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
