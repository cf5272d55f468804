package service

import (
	"context"
	"fmt"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"
	"sign_learn_backend/pkg/logger"

	"go.uber.org/zap"
)

const unknownTeacherName = "Profesor desconocido"

type enrollmentStore interface {
	Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	Unenroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
}

type courseCatalog interface {
	FindCourse(ctx context.Context, courseID string) (*model.Course, error)
	ListPublic(ctx context.Context, track model.Track) ([]model.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Course, error)
}

type unsubscribePublisher interface {
	PublishUnsubscribe(ctx context.Context, userID string, course *model.Course) error
}

// CourseSummary 课程列表项
type CourseSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LessonsCount int    `json:"lessonsCount"`
	TeacherName  string `json:"teacherName"`
	Description  string `json:"description"`
}

type CourseList struct {
	Streak  int             `json:"streak"`
	Track   string          `json:"track"`
	Courses []CourseSummary `json:"courses"`
}

type EnrollResult struct {
	Message          string `json:"message"`
	EnrolledCourseID string `json:"enrolledCourseId"`
}

type UnenrollResult struct {
	Message string `json:"message"`
	// 未完成课程退课时会发布一条新闻
	NewsPublished bool `json:"newsPublished"`
}

type EnrollmentService struct {
	Enrollments enrollmentStore
	Courses     courseCatalog
	Users       userDirectory
	News        unsubscribePublisher
}

func NewEnrollmentService(enrollments enrollmentStore, courses courseCatalog, users userDirectory, news unsubscribePublisher) *EnrollmentService {
	return &EnrollmentService{
		Enrollments: enrollments,
		Courses:     courses,
		Users:       users,
		News:        news,
	}
}

// requireStudent 只有学生可以选课与退课
func (s *EnrollmentService) requireStudent(ctx context.Context, userID string) (*model.User, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Type {
		return nil, fmt.Errorf("only students can manage enrollments: %w", util.ErrPermissionDenied)
	}
	return user, nil
}

func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID string) (*EnrollResult, error) {
	if _, err := s.requireStudent(ctx, userID); err != nil {
		return nil, err
	}
	if err := requireID("courseId", courseID); err != nil {
		return nil, err
	}

	course, err := s.Courses.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Status {
		return nil, util.ErrCourseNotAvailable
	}

	enrollment, err := s.Enrollments.Enroll(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("User enrolled",
		zap.String("userId", userID),
		zap.String("courseId", courseID),
	)
	return &EnrollResult{Message: "Inscripción exitosa", EnrolledCourseID: enrollment.ID}, nil
}

// Unenroll 删除选课与课时进度；课程未完成时发布退课新闻，新闻失败不影响结果
func (s *EnrollmentService) Unenroll(ctx context.Context, userID, courseID string) (*UnenrollResult, error) {
	if _, err := s.requireStudent(ctx, userID); err != nil {
		return nil, err
	}
	if err := requireID("courseId", courseID); err != nil {
		return nil, err
	}

	course, err := s.Courses.FindCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	removed, err := s.Enrollments.Unenroll(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	result := &UnenrollResult{Message: "Desinscripción exitosa"}
	if removed.CompletionDate == nil {
		if err := s.News.PublishUnsubscribe(ctx, userID, course); err != nil {
			logger.Log.Error("Failed to publish unsubscribe news",
				zap.String("userId", userID),
				zap.String("courseId", courseID),
				zap.Error(err),
			)
		} else {
			result.NewsPublished = true
		}
	}
	return result, nil
}

// MyCourses 已选课程中属于指定轨道的部分
func (s *EnrollmentService) MyCourses(ctx context.Context, userID string, track model.Track) (*CourseList, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.Enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
	}
	courses, err := s.Courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}
	// 保持选课顺序
	ordered := make([]model.Course, 0, len(courses))
	for _, id := range ids {
		if c, ok := byID[id]; ok && c.Track() == track {
			ordered = append(ordered, c)
		}
	}
	return s.courseList(ctx, user, track, ordered)
}

// AvailableCourses 指定轨道下尚未选的公开课程
func (s *EnrollmentService) AvailableCourses(ctx context.Context, userID string, track model.Track) (*CourseList, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.Enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	enrolled := make(map[string]bool, len(enrollments))
	for _, e := range enrollments {
		enrolled[e.CourseID] = true
	}

	public, err := s.Courses.ListPublic(ctx, track)
	if err != nil {
		return nil, err
	}
	available := make([]model.Course, 0, len(public))
	for _, c := range public {
		if !enrolled[c.ID] {
			available = append(available, c)
		}
	}
	return s.courseList(ctx, user, track, available)
}

func (s *EnrollmentService) courseList(ctx context.Context, user *model.User, track model.Track, courses []model.Course) (*CourseList, error) {
	teacherIDs := make([]string, 0, len(courses))
	for _, c := range courses {
		teacherIDs = append(teacherIDs, c.TeacherID)
	}
	teachers, err := s.Users.FindByIDs(ctx, teacherIDs)
	if err != nil {
		return nil, err
	}

	list := &CourseList{
		Streak:  user.StreakCurrent,
		Track:   track.Label(),
		Courses: make([]CourseSummary, 0, len(courses)),
	}
	for _, c := range courses {
		teacherName := unknownTeacherName
		if t, ok := teachers[c.TeacherID]; ok {
			teacherName = t.DisplayName()
		}
		name := orDefault(c.Name, unnamedCourse)
		description := c.Description
		if description == "" {
			description = "Sin descripción"
		}
		list.Courses = append(list.Courses, CourseSummary{
			ID:           c.ID,
			Name:         name,
			LessonsCount: len(c.Lessons),
			TeacherName:  teacherName,
			Description:  description,
		})
	}
	return list, nil
}

