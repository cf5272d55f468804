package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, util.ErrUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByFirebaseUID(ctx context.Context, uid string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("firebase_uid = ?", uid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("firebase uid %s: %w", uid, util.ErrUserNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// UpdateTrackProgress 写入指定轨道的等级与技能点
func (r *UserRepository) UpdateTrackProgress(ctx context.Context, userID string, track model.Track, level, skills int) error {
	columns := map[string]interface{}{"lesco_level": level, "lesco_skills": skills}
	if track == model.TrackLibras {
		columns = map[string]interface{}{"libras_level": level, "libras_skills": skills}
	}
	result := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, util.ErrUserNotFound)
	}
	return nil
}

// UpdateStreak 更新连续登录信息
func (r *UserRepository) UpdateStreak(ctx context.Context, userID string, current int, lastConnection time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"streak_current":         current,
		"streak_last_connection": lastConnection,
	}).Error
}

// AddAchievement 已拥有时不重复写入，返回本次是否新授予
func (r *UserRepository) AddAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	link := model.UserAchievement{UserID: userID, AchievementID: achievementID}
	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *UserRepository) CountAchievements(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserAchievement{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *UserRepository) Follow(ctx context.Context, followerID, followeeID string) error {
	follow := model.UserFollow{FollowerID: followerID, FolloweeID: followeeID}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&follow).Error
}

// FolloweeIDs 用户关注的人
func (r *UserRepository) FolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.UserFollow{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	return ids, err
}

// FindByIDs 批量查询，用于新闻作者信息
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	users := make(map[string]*model.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	var list []model.User
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for i := range list {
		users[list[i].ID] = &list[i]
	}
	return users, nil
}
