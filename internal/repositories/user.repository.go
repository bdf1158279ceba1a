package repositories

import (
	"bptracker/internal/database"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"bptracker/internal/services"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	USER_CACHE_EXPIRY = 1 * time.Hour
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByLogin(ctx context.Context, login string) (*User, error)
	Create(ctx context.Context, user *User) error
}

type userRepository struct {
	db  database.DB
	log logger.Logger
}

func New(db database.DB) UserRepository {
	return &userRepository{
		db:  db,
		log: logger.New("userRepository"),
	}
}

func (r *userRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := services.GetTransaction(ctx); ok {
		return tx
	}
	return r.db.SQLWithContext(ctx)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*User, error) {
	log := r.log.Function("GetByID")

	var user User
	found, err := database.NewCacheBuilder(r.db.Cache.User, id).WithContext(ctx).Get(&user)
	if err != nil {
		log.Warn("failed to get user from cache", "userID", id, "error", err)
	}
	if found {
		return &user, nil
	}

	err = r.getDB(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, log.Err("failed to get user by id", err, "userID", id)
	}

	if err := database.NewCacheBuilder(r.db.Cache.User, id).
		WithStruct(user).
		WithTTL(USER_CACHE_EXPIRY).
		WithContext(ctx).
		Set(); err != nil {
		log.Warn("failed to add user to cache", "userID", id, "error", err)
	}

	return &user, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*User, error) {
	var user User
	err := r.getDB(ctx).First(&user, "login = ?", login).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.log.Function("GetByLogin").Err("failed to get user by login", err, "login", login)
	}

	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	if err := r.getDB(ctx).Create(user).Error; err != nil {
		return r.log.Function("Create").Err("failed to create user", err, "login", user.Login)
	}

	return nil
}
