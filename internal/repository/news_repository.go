package repository

import (
	"context"
	"errors"
	"fmt"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NewsRepository struct {
	DB *gorm.DB
}

func NewNewsRepository(db *gorm.DB) *NewsRepository {
	return &NewsRepository{DB: db}
}

func (r *NewsRepository) Create(ctx context.Context, news *model.News) error {
	return r.DB.WithContext(ctx).Create(news).Error
}

// CreateIfAbsent 同一作者、标题、描述的新闻只保留一条，返回是否新建
func (r *NewsRepository) CreateIfAbsent(ctx context.Context, news *model.News) (bool, error) {
	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.News{}).
			Where("user_id = ? AND title = ? AND description = ?", news.UserID, news.Title, news.Description).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(news).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *NewsRepository) FindByID(ctx context.Context, id string) (*model.News, error) {
	var news model.News
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&news).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("news %s: %w", id, util.ErrNewsNotFound)
		}
		return nil, err
	}
	return &news, nil
}

// Feed 指定作者的新闻，按时间倒序；beforeID 为翻页游标，ObjectID 按生成时间递增
func (r *NewsRepository) Feed(ctx context.Context, authorIDs []string, beforeID string, limit int) ([]model.News, error) {
	var list []model.News
	if len(authorIDs) == 0 {
		return list, nil
	}
	query := r.DB.WithContext(ctx).Where("user_id IN ?", authorIDs)
	if beforeID != "" {
		query = query.Where("id < ?", beforeID)
	}
	err := query.Order("date desc, id desc").Limit(limit).Find(&list).Error
	return list, err
}

// Like 记录点赞，重复点赞不计数
func (r *NewsRepository) Like(ctx context.Context, newsID, userID string) (bool, error) {
	changed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		like := model.NewsLike{NewsID: newsID, UserID: userID}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true
		return tx.Model(&model.News{}).Where("id = ?", newsID).
			UpdateColumn("likes", gorm.Expr("likes + ?", 1)).Error
	})
	return changed, err
}

// Unlike 取消点赞，likes 不会小于 0
func (r *NewsRepository) Unlike(ctx context.Context, newsID, userID string) (bool, error) {
	changed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("news_id = ? AND user_id = ?", newsID, userID).Delete(&model.NewsLike{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		changed = true
		return tx.Model(&model.News{}).Where("id = ? AND likes > 0", newsID).
			UpdateColumn("likes", gorm.Expr("likes - ?", 1)).Error
	})
	return changed, err
}

// LikedBy 返回 newsIDs 中被该用户点赞过的集合
func (r *NewsRepository) LikedBy(ctx context.Context, userID string, newsIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(newsIDs))
	if len(newsIDs) == 0 {
		return liked, nil
	}
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.NewsLike{}).
		Where("user_id = ? AND news_id IN ?", userID, newsIDs).
		Pluck("news_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func (r *NewsRepository) AddComment(ctx context.Context, comment *model.NewsComment) error {
	return r.DB.WithContext(ctx).Create(comment).Error
}

// Comments 按时间倒序分页，beforeID 为评论 ID 游标
func (r *NewsRepository) Comments(ctx context.Context, newsID, beforeID string, limit int) ([]model.NewsComment, error) {
	var list []model.NewsComment
	query := r.DB.WithContext(ctx).Where("news_id = ?", newsID)
	if beforeID != "" {
		query = query.Where("id < ?", beforeID)
	}
	err := query.Order("date desc, id desc").Limit(limit).Find(&list).Error
	return list, err
}

// LastComments 每条新闻的最新评论
func (r *NewsRepository) LastComments(ctx context.Context, newsIDs []string) (map[string]*model.NewsComment, error) {
	last := make(map[string]*model.NewsComment, len(newsIDs))
	if len(newsIDs) == 0 {
		return last, nil
	}
	var list []model.NewsComment
	err := r.DB.WithContext(ctx).
		Where("news_id IN ?", newsIDs).
		Order("date desc, id desc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	for i := range list {
		if _, ok := last[list[i].NewsID]; !ok {
			last[list[i].NewsID] = &list[i]
		}
	}
	return last, nil
}
