package service

import (
	"context"
	"encoding/json"
	"errors"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"
	"sign_learn_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	unnamedLesson = "Lección sin nombre"
	unnamedCourse = "Curso sin nombre"
)

type lessonCatalog interface {
	FindCourse(ctx context.Context, courseID string) (*model.Course, error)
	FindLesson(ctx context.Context, lessonID string) (*model.Course, *model.Lesson, error)
}

type progressReader interface {
	FindProgress(ctx context.Context, userID, courseID, lessonID string) (*model.LessonProgress, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type LessonSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LessonList 课程目录页
type LessonList struct {
	Streak     int             `json:"streak"`
	CourseName string          `json:"courseName"`
	Lessons    []LessonSummary `json:"lessons"`
}

type TheoryBlock struct {
	Text string `json:"text"`
	Sign string `json:"sign"`
}

// LessonInfo 课时详情：理论内容与学生剩余尝试次数
type LessonInfo struct {
	Streak     int           `json:"streak"`
	CourseName string        `json:"courseName"`
	LessonName string        `json:"lessonName"`
	Theory     []TheoryBlock `json:"theory"`
	// 课时配置的上限，<= 0 表示不限次数
	Attempts          int  `json:"attempts"`
	QuestionCount     int  `json:"questionCount"`
	RemainingAttempts int  `json:"remainingAttempts"`
	Unlimited         bool `json:"unlimited"`
}

type LessonService struct {
	Courses  lessonCatalog
	Progress progressReader
	Users    userFinder
	Signs    SignResolver
}

func NewLessonService(courses lessonCatalog, progress progressReader, users userFinder, signs SignResolver) *LessonService {
	return &LessonService{
		Courses:  courses,
		Progress: progress,
		Users:    users,
		Signs:    signs,
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func (s *LessonService) ListLessons(ctx context.Context, courseID, userID string) (*LessonList, error) {
	if err := requireID("courseId", courseID); err != nil {
		return nil, err
	}
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}

	course, err := s.Courses.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	lessons := make([]LessonSummary, 0, len(course.Lessons))
	for _, l := range course.Lessons {
		lessons = append(lessons, LessonSummary{ID: l.ID, Name: orDefault(l.Name, unnamedLesson)})
	}
	return &LessonList{
		Streak:     user.StreakCurrent,
		CourseName: course.Name,
		Lessons:    lessons,
	}, nil
}

// LessonInfo 没有进度记录时按课时上限推算剩余次数，不限次数为 -1
func (s *LessonService) LessonInfo(ctx context.Context, lessonID, userID string) (*LessonInfo, error) {
	if err := requireID("lessonId", lessonID); err != nil {
		return nil, err
	}
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	course, lesson, err := s.Courses.FindLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	attempts := 0
	if lesson.Attempts != nil {
		attempts = *lesson.Attempts
	}

	var remaining int
	progress, err := s.Progress.FindProgress(ctx, userID, course.ID, lesson.ID)
	switch {
	case err == nil:
		remaining = progress.RemainingAttempts
	case errors.Is(err, util.ErrNotFound):
		remaining = model.UnlimitedAttempts
		if limit, unlimited := lesson.AttemptLimit(); !unlimited {
			remaining = limit
		}
	default:
		return nil, err
	}

	return &LessonInfo{
		Streak:            user.StreakCurrent,
		CourseName:        orDefault(course.Name, unnamedCourse),
		LessonName:        orDefault(lesson.Name, unnamedLesson),
		Theory:            s.theory(ctx, lesson),
		Attempts:          attempts,
		QuestionCount:     len(lesson.Exercises),
		RemainingAttempts: remaining,
		Unlimited:         remaining < 0,
	}, nil
}

// theory 解析课时的理论块，sign 可能是字符串或其他 JSON 值
func (s *LessonService) theory(ctx context.Context, lesson *model.Lesson) []TheoryBlock {
	blocks := []TheoryBlock{}
	if len(lesson.Theory) == 0 {
		return blocks
	}

	var raw []struct {
		Text string          `json:"text"`
		Sign json.RawMessage `json:"sign"`
	}
	if err := json.Unmarshal(lesson.Theory, &raw); err != nil {
		logger.Log.Warn("Malformed lesson theory", zap.String("lesson_id", lesson.ID), zap.Error(err))
		return blocks
	}

	for _, item := range raw {
		sign := signRef(item.Sign)
		if s.Signs != nil {
			sign = s.Signs.ResolveSign(ctx, sign)
		}
		blocks = append(blocks, TheoryBlock{Text: item.Text, Sign: sign})
	}
	return blocks
}

func signRef(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
