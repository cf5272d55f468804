package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrLessonNotFound      = errors.New("lesson not found in course")
	ErrQuestionNotFound    = errors.New("question not found in course")
	ErrNewsNotFound        = errors.New("news not found")
	ErrRunNotFound         = errors.New("run not found")
	ErrNotFound            = errors.New("not found")
	ErrNoAttemptsRemaining = errors.New("no attempts remaining")
	ErrNoQuestions         = errors.New("no questions in lesson")
	ErrAlreadyAnswered     = errors.New("question already answered")
	ErrAlreadyEnrolled     = errors.New("already enrolled in course")
	ErrNotEnrolled         = errors.New("not enrolled in course")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrCourseNotAvailable  = errors.New("course not available for enrollment")
)

// ValidationError 请求参数不合法，不会产生任何写操作
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError 已存在进行中的练习，携带可用于恢复的信息
type ConflictError struct {
	RunID        string
	CurrentIndex int
}

func (e *ConflictError) Error() string {
	return "active run exists"
}

// IsNotFound 判断是否为各类不存在错误
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrUserNotFound, ErrCourseNotFound, ErrLessonNotFound,
		ErrQuestionNotFound, ErrNewsNotFound, ErrRunNotFound, ErrNotEnrolled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
