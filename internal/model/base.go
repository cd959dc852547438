package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UUIDBase 字符串主键，测验、题目与作答共用
type UUIDBase struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *UUIDBase) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return
}

func GenerateUUID() string {
	return uuid.New().String()
}

// NewUUIDBase 内存存储与不落库的对象没有 gorm 钩子，id 与时间戳在这里补齐
func NewUUIDBase(id string, now time.Time) UUIDBase {
	if id == "" {
		id = GenerateUUID()
	}
	return UUIDBase{ID: id, CreatedAt: now, UpdatedAt: now}
}
