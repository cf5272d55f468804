package service

import (
	"context"
	"time"

	"sign_learn_backend/internal/model"
)

// CourseStore 课程只读访问
type CourseStore interface {
	FindCourse(ctx context.Context, courseID string) (*model.Course, error)
	FindCourseWithLesson(ctx context.Context, courseID, lessonID string) (*model.Course, *model.Lesson, error)
	FindExercise(ctx context.Context, courseID, lessonID, exerciseID string) (*model.Exercise, error)
}

// ProgressLedger 课时尝试次数与成绩记录
type ProgressLedger interface {
	EnsureProgress(ctx context.Context, userID, courseID string, lesson *model.Lesson) error
	GetAttemptState(ctx context.Context, userID, courseID, lessonID string) (remaining int, unlimited bool, err error)
	ConsumeAttempt(ctx context.Context, userID, courseID, lessonID string) (remaining int, unlimited bool, err error)
	FindProgress(ctx context.Context, userID, courseID, lessonID string) (*model.LessonProgress, error)
	BumpBestCorrectCount(ctx context.Context, userID, courseID, lessonID string, correct int) (bool, error)
	StampLessonCompletion(ctx context.Context, userID, courseID, lessonID string, when time.Time) error
	FindEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	MarkCourseCompleted(ctx context.Context, userID, courseID string, when time.Time) (bool, error)
	CountCompletedCourses(ctx context.Context, userID string, track model.Track) (int64, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateTrackProgress(ctx context.Context, userID string, track model.Track, level, skills int) error
	AddAchievement(ctx context.Context, userID, achievementID string) (bool, error)
	CountAchievements(ctx context.Context, userID string) (int64, error)
}

type AchievementCatalog interface {
	FindID(ctx context.Context, track model.Track, name, content string) (string, error)
}

type NewsWriter interface {
	CreateIfAbsent(ctx context.Context, news *model.News) (bool, error)
}

// SignResolver 将题目中的手语视频引用转换为可访问的 URL
type SignResolver interface {
	ResolveSign(ctx context.Context, ref string) string
}
