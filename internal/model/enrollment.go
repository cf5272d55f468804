package model

import "time"

// swagger:model Enrollment
type Enrollment struct {
	ObjectBase
	UserID   string `gorm:"uniqueIndex:idx_enrollment_user_course;type:varchar(24)" json:"userId"`
	CourseID string `gorm:"uniqueIndex:idx_enrollment_user_course;type:varchar(24)" json:"courseId"`
	// 只由课程完成检查写入一次
	CompletionDate   *time.Time       `json:"completionDate"`
	CompletedLessons []LessonProgress `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE" json:"completedLessons"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// FindProgress 在已加载的选课记录中查找课时进度
func (e *Enrollment) FindProgress(lessonID string) *LessonProgress {
	for i := range e.CompletedLessons {
		if e.CompletedLessons[i].LessonID == lessonID {
			return &e.CompletedLessons[i]
		}
	}
	return nil
}

// UnlimitedAttempts remainingAttempts 的哨兵值
const UnlimitedAttempts = -1

// swagger:model LessonProgress
type LessonProgress struct {
	ObjectBase
	EnrollmentID string `gorm:"uniqueIndex:idx_progress_enrollment_lesson;type:varchar(24)" json:"-"`
	LessonID     string `gorm:"uniqueIndex:idx_progress_enrollment_lesson;type:varchar(24)" json:"lessonId"`
	// 历史最佳，只增不减
	CorrectCount      int `gorm:"default:0" json:"correctCount"`
	RemainingAttempts int `json:"remainingAttempts"`
	// 每次 finish / cancel 都会覆盖
	CompletionDate *time.Time `json:"completionDate"`
}

func (LessonProgress) TableName() string {
	return "lesson_progresses"
}

func (p *LessonProgress) Unlimited() bool {
	return p.RemainingAttempts < 0
}

// IsComplete 课时完成判定：次数用尽，或者全部答对
func (p *LessonProgress) IsComplete(totalQuestions int) bool {
	if p.RemainingAttempts == 0 {
		return true
	}
	return totalQuestions > 0 && p.CorrectCount == totalQuestions
}
