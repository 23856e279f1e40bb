package database

import (
	"errors"
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/JeffBrines/RealEstateInsightsPub/internal/models"
)

var (
	ErrNotFound      = errors.New("dataset not found")
	ErrNotReady      = errors.New("dataset is not ready")
	ErrUnknownDriver = errors.New("unknown database driver")
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"

	defaultBatchSize = 500
	defaultCacheSize = 8
)

// Open connects to the configured database. The sqlite driver is limited
// to a single connection so an in-memory database is shared by every caller.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver != DriverMySQL {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Options tunes a Store.
type Options struct {
	// Rows per INSERT statement
	BatchSize int
	// Number of decoded record sets kept in memory
	CacheSize int
}

// Store keeps uploaded datasets and their records for the session.
type Store struct {
	db        *gorm.DB
	cache     *lru.Cache[string, []models.Property]
	batchSize int
	logger    *logrus.Logger
}

// NewStore migrates the schema and wraps db.
func NewStore(db *gorm.DB, opts Options, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	if err := db.AutoMigrate(&Dataset{}, &PropertyRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	cache, err := lru.New[string, []models.Property](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:        db,
		cache:     cache,
		batchSize: opts.BatchSize,
		logger:    logger,
	}, nil
}

// DB returns the underlying gorm.DB instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	s.cache.Purge()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
