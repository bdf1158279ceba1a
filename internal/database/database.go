package database

import (
	"bptracker/config"
	logg "bptracker/internal/logger"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valkey-io/valkey-go"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type CacheClient valkey.Client

type Cache struct {
	General CacheClient
	User    CacheClient
	Events  CacheClient
}

type DB struct {
	SQL    *gorm.DB
	Cache  Cache
	Driver string
	log    logg.Logger
}

func New(config config.Config) (DB, error) {
	log := logg.New("database").Function("New")

	log.Info("Initializing database", "driver", config.DatabaseDriver)
	db := &DB{log: log, Driver: config.DatabaseDriver}

	err := db.initializeDB(config)
	if err != nil {
		return DB{}, log.Err("failed to initialize database", err)
	}

	applied, err := Migrate(db.SQL, db.Driver)
	if err != nil {
		_ = db.Close()
		return DB{}, log.Err("failed to run migrations", err)
	}
	log.Info("Migrations applied", "count", applied)

	if config.DatabaseCacheAddress == "" {
		log.Warn("No cache address configured, running without cache")
		return *db, nil
	}

	err = db.initializeCacheDB(config)
	if err != nil {
		_ = db.Close()
		return DB{}, log.Err("failed to initialize cache database", err)
	}

	return *db, nil
}

func TXDefer(tx *gorm.DB, log logg.Logger) {
	if tx.Error != nil {
		log.Er("failed to commit transaction", tx.Error)
		tx.Rollback()
	} else {
		err := tx.Commit().Error
		if err != nil {
			log.Er("failed to commit transaction", err)
		} else {
			log.Debug("committed transaction")
		}
	}
}

func (s *DB) initializeDB(config config.Config) error {
	level := logger.Warn
	if config.LogLevel == "debug" {
		level = logger.Info
	}

	gormLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo),
		logger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	gormConfig := &gorm.Config{
		Logger:                                   gormLogger,
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: false,
		CreateBatchSize:                          100,
		TranslateError:                           true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	switch config.DatabaseDriver {
	case "", "sqlite":
		s.Driver = "sqlite"
		return s.initializeSQLiteDB(gormConfig, config)
	case "postgres":
		return s.initializePostgresDB(gormConfig, config)
	default:
		return s.log.Function("initializeDB").
			Error("unsupported database driver", "driver", config.DatabaseDriver)
	}
}

func (s *DB) initializeSQLiteDB(gormConfig *gorm.Config, config config.Config) error {
	log := s.log.Function("initializeSQLiteDB")

	dbPath := config.DatabaseDbPath
	if dbPath == "" {
		return log.Error("database path is empty", "dbPath", dbPath)
	}

	inMemory := dbPath == ":memory:"
	dsn := dbPath
	if !inMemory {
		dir := filepath.Dir(dbPath)
		log.Info("Creating database directory", "dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return log.Err("failed to create database directory", err, "dir", dir)
		}
		dsn = dbPath + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	log.Info("Connecting with GORM", "dbPath", dbPath)
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return log.Err("failed to open database with GORM", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return log.Err("failed to ping database through GORM", err)
	}

	log.Info("Successfully connected with GORM")
	if inMemory {
		// every new connection would open a separate empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	s.SQL = db

	return nil
}

func (s *DB) initializePostgresDB(gormConfig *gorm.Config, config config.Config) error {
	log := s.log.Function("initializePostgresDB")

	if config.DatabaseHost == "" || config.DatabaseName == "" {
		return log.Error("database host or name is empty",
			"host", config.DatabaseHost, "name", config.DatabaseName)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		config.DatabaseHost,
		config.DatabasePort,
		config.DatabaseUser,
		config.DatabasePassword,
		config.DatabaseName,
	)

	log.Info("Connecting with GORM", "host", config.DatabaseHost, "name", config.DatabaseName)
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return log.Err("failed to open database with GORM", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return log.Err("failed to ping database through GORM", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s.SQL = db

	return nil
}

func (s *DB) Close() (err error) {
	if s.SQL != nil {
		sqlDB, dbErr := s.SQL.DB()
		if dbErr == nil {
			if closeErr := sqlDB.Close(); closeErr != nil {
				err = s.log.Err("failed to close database", closeErr)
			}
		}
	}

	if s.Cache.General != nil {
		s.Cache.General.Close()
	}

	if s.Cache.User != nil {
		s.Cache.User.Close()
	}

	if s.Cache.Events != nil {
		s.Cache.Events.Close()
	}

	return err
}

func (s *DB) SQLWithContext(ctx context.Context) *gorm.DB {
	return s.SQL.WithContext(ctx)
}

// Ping checks the SQL store and, when configured, the cache.
func (s *DB) Ping(ctx context.Context) error {
	sqlDB, err := s.SQL.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}

	if s.Cache.General != nil {
		return s.Cache.General.Do(ctx, s.Cache.General.B().Ping().Build()).Error()
	}

	return nil
}

func (s *DB) FlushAllCaches() error {
	log := s.log.Function("FlushAllCaches")
	log.Info("Flushing all cache databases")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cacheClients := []struct {
		client CacheClient
		name   string
	}{
		{s.Cache.General, "General"},
		{s.Cache.User, "User"},
	}

	for _, cache := range cacheClients {
		if cache.client != nil {
			if err := cache.client.Do(ctx, cache.client.B().Flushdb().Build()).Error(); err != nil {
				return log.Err("failed to flush cache database", err, "cache", cache.name)
			}
			log.Info("Successfully flushed cache database", "cache", cache.name)
		}
	}

	return nil
}
