package repository

import (
	"context"
	"errors"
	"fmt"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

// FindID 先按 (type, name, content) 精确匹配，再退回 (type, name)
func (r *AchievementRepository) FindID(ctx context.Context, track model.Track, name, content string) (string, error) {
	var achievement model.Achievement
	db := r.DB.WithContext(ctx)

	err := db.Where("type = ? AND name = ? AND content = ?", bool(track), name, content).
		Order("id asc").First(&achievement).Error
	if err == nil {
		return achievement.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	err = db.Where("type = ? AND name = ?", bool(track), name).
		Order("id asc").First(&achievement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("achievement %q: %w", name, util.ErrNotFound)
		}
		return "", err
	}
	return achievement.ID, nil
}

// Upsert 按 (type, name) 写入目录项，供种子脚本使用
func (r *AchievementRepository) Upsert(ctx context.Context, achievement *model.Achievement) (bool, error) {
	var existing model.Achievement
	err := r.DB.WithContext(ctx).
		Where("type = ? AND name = ?", achievement.Type, achievement.Name).
		First(&existing).Error
	if err == nil {
		achievement.ID = existing.ID
		return false, r.DB.WithContext(ctx).Model(&existing).Update("content", achievement.Content).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return true, r.DB.WithContext(ctx).Create(achievement).Error
}

func (r *AchievementRepository) FindByUserID(ctx context.Context, userID string) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.WithContext(ctx).
		Joins("JOIN user_achievements ON user_achievements.achievement_id = achievements.id").
		Where("user_achievements.user_id = ?", userID).
		Order("user_achievements.created_at asc").
		Find(&achievements).Error
	return achievements, err
}
