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

// EnrollmentRepository 选课记录与课时进度（尝试次数、最佳成绩、完成时间）
type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) findEnrollment(db *gorm.DB, userID, courseID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("enrollment %s/%s: %w", userID, courseID, util.ErrNotEnrolled)
		}
		return nil, err
	}
	return &enrollment, nil
}

// progressScope 通过子查询定位 (user, course, lesson) 对应的进度行
func (r *EnrollmentRepository) progressScope(ctx context.Context, userID, courseID, lessonID string) *gorm.DB {
	db := r.DB.WithContext(ctx)
	enrollmentIDs := db.Model(&model.Enrollment{}).
		Select("id").
		Where("user_id = ? AND course_id = ?", userID, courseID)
	return db.Model(&model.LessonProgress{}).
		Where("enrollment_id IN (?) AND lesson_id = ?", enrollmentIDs, lessonID)
}

// EnsureProgress 幂等地创建选课记录和课时进度
func (r *EnrollmentRepository) EnsureProgress(ctx context.Context, userID, courseID string, lesson *model.Lesson) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment := model.Enrollment{UserID: userID, CourseID: courseID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment).Error; err != nil {
			return err
		}
		existing, err := r.findEnrollment(tx, userID, courseID)
		if err != nil {
			return err
		}

		remaining := model.UnlimitedAttempts
		if limit, unlimited := lesson.AttemptLimit(); !unlimited {
			remaining = limit
		}
		progress := model.LessonProgress{
			EnrollmentID:      existing.ID,
			LessonID:          lesson.ID,
			CorrectCount:      0,
			RemainingAttempts: remaining,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error
	})
}

// FindProgress 不存在时返回 util.ErrNotFound
func (r *EnrollmentRepository) FindProgress(ctx context.Context, userID, courseID, lessonID string) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	err := r.progressScope(ctx, userID, courseID, lessonID).First(&progress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("progress for lesson %s: %w", lessonID, util.ErrNotFound)
		}
		return nil, err
	}
	return &progress, nil
}

// GetAttemptState 没有进度记录或剩余次数为负时视为不限次数
func (r *EnrollmentRepository) GetAttemptState(ctx context.Context, userID, courseID, lessonID string) (int, bool, error) {
	progress, err := r.FindProgress(ctx, userID, courseID, lessonID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return model.UnlimitedAttempts, true, nil
		}
		return 0, false, err
	}
	if progress.Unlimited() {
		return model.UnlimitedAttempts, true, nil
	}
	return progress.RemainingAttempts, false, nil
}

// ConsumeAttempt 仅当剩余次数大于 0 时原子减一，返回扣减后的状态
func (r *EnrollmentRepository) ConsumeAttempt(ctx context.Context, userID, courseID, lessonID string) (int, bool, error) {
	remaining, unlimited, err := r.GetAttemptState(ctx, userID, courseID, lessonID)
	if err != nil || unlimited {
		return remaining, unlimited, err
	}

	result := r.progressScope(ctx, userID, courseID, lessonID).
		Where("remaining_attempts > 0").
		UpdateColumn("remaining_attempts", gorm.Expr("remaining_attempts - ?", 1))
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, util.ErrNoAttemptsRemaining
	}

	return r.GetAttemptState(ctx, userID, courseID, lessonID)
}

// BumpBestCorrectCount 只有新成绩严格更高时才覆盖
func (r *EnrollmentRepository) BumpBestCorrectCount(ctx context.Context, userID, courseID, lessonID string, correct int) (bool, error) {
	result := r.progressScope(ctx, userID, courseID, lessonID).
		Where("correct_count < ?", correct).
		UpdateColumn("correct_count", correct)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// StampLessonCompletion 每次结束或取消都覆盖课时完成时间
func (r *EnrollmentRepository) StampLessonCompletion(ctx context.Context, userID, courseID, lessonID string, when time.Time) error {
	result := r.progressScope(ctx, userID, courseID, lessonID).
		UpdateColumn("completion_date", when)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("progress for lesson %s: %w", lessonID, util.ErrNotFound)
	}
	return nil
}

// FindEnrollment 加载选课记录及全部课时进度
func (r *EnrollmentRepository) FindEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("CompletedLessons").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("enrollment %s/%s: %w", userID, courseID, util.ErrNotEnrolled)
		}
		return nil, err
	}
	return &enrollment, nil
}

// MarkCourseCompleted 课程完成时间只写一次，返回本次调用是否写入
func (r *EnrollmentRepository) MarkCourseCompleted(ctx context.Context, userID, courseID string, when time.Time) (bool, error) {
	result := r.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND completion_date IS NULL", userID, courseID).
		UpdateColumn("completion_date", when)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountCompletedCourses 统计某个轨道下已完成的课程数
func (r *EnrollmentRepository) CountCompletedCourses(ctx context.Context, userID string, track model.Track) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Joins("JOIN courses ON courses.id = enrollments.course_id").
		Where("enrollments.user_id = ? AND enrollments.completion_date IS NOT NULL AND courses.language = ?", userID, bool(track)).
		Count(&count).Error
	return count, err
}

// Enroll 显式选课，重复选课返回 util.ErrAlreadyEnrolled
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	enrollment := &model.Enrollment{UserID: userID, CourseID: courseID}
	result := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(enrollment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, util.ErrAlreadyEnrolled
	}
	return enrollment, nil
}

// Unenroll 删除选课记录及其课时进度，返回被删除的记录
func (r *EnrollmentRepository) Unenroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	var removed *model.Enrollment
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment, err := r.findEnrollment(tx, userID, courseID)
		if err != nil {
			return err
		}
		if err := tx.Where("enrollment_id = ?", enrollment.ID).Delete(&model.LessonProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(enrollment).Error; err != nil {
			return err
		}
		removed = enrollment
		return nil
	})
	return removed, err
}

// ListByUser 用户的全部选课记录
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).
		Preload("CompletedLessons").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&enrollments).Error
	return enrollments, err
}
