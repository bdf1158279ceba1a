package repositories

import (
	"bptracker/internal/database"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"bptracker/internal/services"
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	POSTURE_CACHE_KEY    = "postures:all"
	POSTURE_CACHE_EXPIRY = 24 * time.Hour
)

type PostureRepository interface {
	GetAll(ctx context.Context) ([]Posture, error)
	Exists(ctx context.Context, id int) (bool, error)
	EnsureDefaults(ctx context.Context) error
}

type postureRepository struct {
	db  database.DB
	log logger.Logger
}

func NewPosture(db database.DB) PostureRepository {
	return &postureRepository{
		db:  db,
		log: logger.New("postureRepository"),
	}
}

func (r *postureRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

// GetAll returns every posture ordered by name, cached because the table
// only changes through migrations.
func (r *postureRepository) GetAll(ctx context.Context) ([]Posture, error) {
	log := r.log.Function("GetAll")

	var postures []Posture
	found, err := database.NewCacheBuilder(r.db.Cache.General, POSTURE_CACHE_KEY).
		WithContext(ctx).
		Get(&postures)
	if err != nil {
		log.Warn("failed to read postures from cache", "error", err)
	}
	if found {
		return postures, nil
	}

	if err := r.getDB(ctx).Order("name ASC").Find(&postures).Error; err != nil {
		return nil, log.Err("failed to get postures", err)
	}

	if err := database.NewCacheBuilder(r.db.Cache.General, POSTURE_CACHE_KEY).
		WithStruct(postures).
		WithTTL(POSTURE_CACHE_EXPIRY).
		WithContext(ctx).
		Set(); err != nil {
		log.Warn("failed to add postures to cache", "error", err)
	}

	return postures, nil
}

func (r *postureRepository) Exists(ctx context.Context, id int) (bool, error) {
	postures, err := r.GetAll(ctx)
	if err != nil {
		return false, err
	}

	for _, posture := range postures {
		if posture.ID == id {
			return true, nil
		}
	}

	return false, nil
}

// EnsureDefaults re-creates any missing default posture.
func (r *postureRepository) EnsureDefaults(ctx context.Context) error {
	log := r.log.Function("EnsureDefaults")

	if err := r.ensureDefaults(ctx, log); err != nil {
		return err
	}

	if err := database.NewCacheBuilder(r.db.Cache.General, POSTURE_CACHE_KEY).
		WithContext(ctx).
		Delete(); err != nil {
		log.Warn("failed to clear posture cache", "error", err)
	}

	return nil
}

func (r *postureRepository) ensureDefaults(ctx context.Context, log logger.Logger) error {
	tx := r.getDB(ctx)
	if _, inTransaction := services.GetTransaction(ctx); !inTransaction {
		tx = tx.Begin()
		defer database.TXDefer(tx, log)
	}

	for _, posture := range DefaultPostures {
		if err := tx.
			Where(Posture{ID: posture.ID}).
			Attrs(Posture{Name: posture.Name}).
			FirstOrCreate(&posture).Error; err != nil {
			_ = tx.AddError(err)
			return log.Err("failed to ensure posture", err, "posture", posture.Name)
		}
	}

	return nil
}
