package model

import (
	"gorm.io/datatypes"
)

const (
	ExerciseSingleChoice = 1
	ExerciseTrueFalse    = 2
	ExerciseOrdering     = 3
)

// swagger:model Course
type Course struct {
	ObjectBase
	TeacherID   string `gorm:"index;type:varchar(24)" json:"teacherId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	// false = LESCO, true = LIBRAS
	Language bool `gorm:"default:false" json:"language"`
	// true = 公开
	Status  bool     `gorm:"default:false" json:"status"`
	Lessons []Lesson `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) Track() Track {
	return Track(c.Language)
}

// FindLesson 在已加载的课程中查找课时
func (c *Course) FindLesson(lessonID string) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].ID == lessonID {
			return &c.Lessons[i]
		}
	}
	return nil
}

// swagger:model Lesson
type Lesson struct {
	ObjectBase
	CourseID string `gorm:"index;type:varchar(24)" json:"courseId"`
	Name     string `gorm:"size:255" json:"name"`
	Position int    `gorm:"default:0" json:"position"`
	// nil 或 <= 0 表示不限次数
	Attempts     *int           `json:"attempts"`
	Difficulty   int            `gorm:"default:1" json:"difficulty"`
	ForumEnabled bool           `gorm:"default:false" json:"forumEnabled"`
	Theory       datatypes.JSON `json:"theory,omitempty"`
	Exercises    []Exercise     `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"exercises"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// AttemptLimit 返回 (上限, 是否不限次数)
func (l *Lesson) AttemptLimit() (int, bool) {
	if l.Attempts == nil || *l.Attempts <= 0 {
		return 0, true
	}
	return *l.Attempts, false
}

// EffectiveDifficulty 未设置时按 1 计算
func (l *Lesson) EffectiveDifficulty() int {
	if l.Difficulty < 1 {
		return 1
	}
	return l.Difficulty
}

// FindExercise 在已加载的课时中查找题目
func (l *Lesson) FindExercise(exerciseID string) *Exercise {
	for i := range l.Exercises {
		if l.Exercises[i].ID == exerciseID {
			return &l.Exercises[i]
		}
	}
	return nil
}

// swagger:model Exercise
type Exercise struct {
	ObjectBase
	LessonID     string `gorm:"index;type:varchar(24)" json:"lessonId"`
	ExerciseType int    `gorm:"default:1" json:"exerciseType"`
	Order        int    `gorm:"column:sort_order;default:0" json:"order"`
	Question     string `gorm:"type:text" json:"question"`
	// JSON 数组
	PossibleAnswers datatypes.JSON `json:"possibleAnswers,omitempty"`
	// JSON 标量或数组
	CorrectAnswer datatypes.JSON `json:"correctAnswer,omitempty"`
	Pieces        datatypes.JSON `json:"pieces,omitempty"`
	Sign          string         `gorm:"size:255" json:"sign,omitempty"`
}

func (Exercise) TableName() string {
	return "exercises"
}
