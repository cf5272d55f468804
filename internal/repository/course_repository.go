package repository

import (
	"context"
	"errors"
	"fmt"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func orderedLessons(db *gorm.DB) *gorm.DB {
	return db.Order("position asc, id asc")
}

func orderedExercises(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order asc, id asc")
}

// Create 连同课时、题目一起写入
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

// FindCourse 加载课程及全部课时、题目
func (r *CourseRepository) FindCourse(ctx context.Context, courseID string) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Lessons", orderedLessons).
		Preload("Lessons.Exercises", orderedExercises).
		Where("id = ?", courseID).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("course %s: %w", courseID, util.ErrCourseNotFound)
		}
		return nil, err
	}
	return &course, nil
}

// FindCourseWithLesson 只加载目标课时及其题目
func (r *CourseRepository) FindCourseWithLesson(ctx context.Context, courseID, lessonID string) (*model.Course, *model.Lesson, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Where("id = ?", lessonID)
		}).
		Preload("Lessons.Exercises", orderedExercises).
		Where("id = ?", courseID).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("course %s: %w", courseID, util.ErrCourseNotFound)
		}
		return nil, nil, err
	}

	lesson := course.FindLesson(lessonID)
	if lesson == nil {
		return nil, nil, fmt.Errorf("lesson %s: %w", lessonID, util.ErrLessonNotFound)
	}
	return &course, lesson, nil
}

// FindExercise 按课程、课时定位单个题目，每次作答都重新读取
func (r *CourseRepository) FindExercise(ctx context.Context, courseID, lessonID, exerciseID string) (*model.Exercise, error) {
	var exercise model.Exercise
	err := r.DB.WithContext(ctx).
		Joins("JOIN lessons ON lessons.id = exercises.lesson_id").
		Where("lessons.course_id = ? AND exercises.lesson_id = ? AND exercises.id = ?", courseID, lessonID, exerciseID).
		First(&exercise).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("exercise %s: %w", exerciseID, util.ErrQuestionNotFound)
		}
		return nil, err
	}
	return &exercise, nil
}

func lessonIDsOnly(db *gorm.DB) *gorm.DB {
	return db.Select("id", "course_id", "position").Order("position asc, id asc")
}

// ListPublic 某个轨道下的公开课程，只加载课时 ID 用于计数
func (r *CourseRepository) ListPublic(ctx context.Context, track model.Track) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).
		Preload("Lessons", lessonIDsOnly).
		Where("status = ? AND language = ?", true, bool(track)).
		Order("created_at desc").
		Find(&courses).Error
	return courses, err
}

// FindByIDs 批量查询课程，只加载课时 ID
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.DB.WithContext(ctx).
		Preload("Lessons", lessonIDsOnly).
		Where("id IN ?", ids).
		Find(&courses).Error
	return courses, err
}

func exerciseIDsOnly(db *gorm.DB) *gorm.DB {
	return db.Select("id", "lesson_id")
}

// FindLesson 按课时 ID 定位所属课程；课程不加载课时，题目只加载 ID
func (r *CourseRepository) FindLesson(ctx context.Context, lessonID string) (*model.Course, *model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).
		Preload("Exercises", exerciseIDsOnly).
		Where("id = ?", lessonID).
		First(&lesson).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("lesson %s: %w", lessonID, util.ErrLessonNotFound)
		}
		return nil, nil, err
	}

	var course model.Course
	if err := r.DB.WithContext(ctx).Where("id = ?", lesson.CourseID).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("course %s: %w", lesson.CourseID, util.ErrCourseNotFound)
		}
		return nil, nil, err
	}
	return &course, &lesson, nil
}
