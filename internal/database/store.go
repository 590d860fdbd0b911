package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"property-pipeline/internal/config"
	"property-pipeline/internal/models"
)

// Options are shared by every Open function.
type Options struct {
	// LogLevel is one of silent, error, warn, info.
	LogLevel string
	// AutoMigrate creates or extends the tables on open. Leave it off when
	// pointing at a database owned by the pipeline scripts.
	AutoMigrate bool
}

// Store is the listing store. All reads of listings go through it so that
// blacklisted addresses never leak into a view.
type Store struct {
	db *gorm.DB
}

// OpenSQLite opens the SQLite file written by the pipeline scripts. The path
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string, opts Options) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is its own database
	if path == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
	}

	return finishOpen(db, opts)
}

// OpenMySQL connects to a MySQL listings database.
func OpenMySQL(host, port, user, password, dbname string, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	return finishOpen(db, opts)
}

// OpenPostgres connects through lib/pq and hands the connection to gorm.
func OpenPostgres(host, port, user, password, dbname, sslmode string, opts Options) (*Store, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), gormConfig(opts))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return finishOpen(db, opts)
}

// NewStore wraps an existing gorm.DB instance
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func gormConfig(opts Options) *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(opts.LogLevel)),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

func finishOpen(db *gorm.DB, opts Options) (*Store, error) {
	s := &Store{db: db}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, err
	}

	if opts.AutoMigrate {
		if err := s.InitSchema(); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	return s, nil
}

// DB returns the underlying gorm.DB instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storeErr("ping", err)
	}
	return storeErr("ping", sqlDB.PingContext(ctx))
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (s *Store) InitSchema() error {
	return s.db.AutoMigrate(
		&models.Listing{},
		&models.BlacklistEntry{},
		&models.RentalHistoryPoint{},
		&models.ListingChange{},
	)
}

// HasColumn reports whether the listings table has the given column. Stores
// created by older pipeline versions lack estimated_monthly_cashflow.
func (s *Store) HasColumn(ctx context.Context, column string) (bool, error) {
	m := s.db.WithContext(ctx).Migrator()
	if !m.HasTable(&models.Listing{}) {
		return false, storeErr("has_column", fmt.Errorf("table listings does not exist"))
	}
	return m.HasColumn(&models.Listing{}, column), nil
}

// OpenConfigured opens the backend selected by cfg.Type.
func OpenConfigured(cfg config.DatabaseConfig) (*Store, error) {
	opts := Options{LogLevel: cfg.LogLevel, AutoMigrate: cfg.AutoMigrate}

	switch cfg.Type {
	case "mysql":
		log.Println("[Store] using MySQL with GORM")
		c := cfg.MySQL
		return OpenMySQL(c.Host, strconv.Itoa(c.Port), c.User, c.Password, c.Database, opts)
	case "postgres":
		log.Println("[Store] using PostgreSQL with GORM")
		c := cfg.Postgres
		return OpenPostgres(c.Host, strconv.Itoa(c.Port), c.User, c.Password, c.Database, c.SSLMode, opts)
	case "sqlite", "":
		log.Printf("[Store] using SQLite at %s", cfg.SQLite.Path)
		return OpenSQLite(cfg.SQLite.Path, opts)
	}
	return nil, fmt.Errorf("unknown database type %q", cfg.Type)
}
