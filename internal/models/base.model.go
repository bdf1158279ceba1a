package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type BaseUUIDModel struct {
	ID        string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime"              json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"              json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index"                       json:"-"`
}

func (b *BaseUUIDModel) BeforeSave(tx *gorm.DB) error {
	if b.ID == "" {
		uuidString, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = uuidString.String()
	}
	return nil
}

type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

func NewPagedResult[T any](items []T, page, pageSize int, total int64) PagedResult[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total / int64(pageSize))
		if total%int64(pageSize) != 0 {
			totalPages++
		}
	}

	return PagedResult[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}
}
