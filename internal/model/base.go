package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// swagger:model
// ObjectBase 使用 24 位十六进制 ObjectID 作为主键，与前端沿用的 id 格式保持一致
type ObjectBase struct {
	ID        string    `gorm:"primaryKey;type:varchar(24)" json:"_id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *ObjectBase) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == "" {
		b.ID = NewID()
	}
	return
}

// NewID 生成新的 ObjectID 字符串
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID 校验是否为合法的 ObjectID 字符串
func IsValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
