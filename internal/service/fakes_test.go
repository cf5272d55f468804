package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sign_learn_backend/internal/config"
	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"gorm.io/datatypes"
)

// 内存实现的课程、账本、用户、成就与新闻存储，仅用于服务层测试

type memCourses struct {
	mu      sync.Mutex
	courses map[string]*model.Course
}

func newMemCourses(courses ...*model.Course) *memCourses {
	m := &memCourses{courses: make(map[string]*model.Course)}
	for _, c := range courses {
		m.courses[c.ID] = c
	}
	return m
}

func (m *memCourses) FindCourse(ctx context.Context, courseID string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, util.ErrCourseNotFound)
	}
	return c, nil
}

func (m *memCourses) FindCourseWithLesson(ctx context.Context, courseID, lessonID string) (*model.Course, *model.Lesson, error) {
	c, err := m.FindCourse(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}
	lesson := c.FindLesson(lessonID)
	if lesson == nil {
		return nil, nil, fmt.Errorf("lesson %s: %w", lessonID, util.ErrLessonNotFound)
	}
	return c, lesson, nil
}

func (m *memCourses) FindExercise(ctx context.Context, courseID, lessonID, exerciseID string) (*model.Exercise, error) {
	_, lesson, err := m.FindCourseWithLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("exercise %s: %w", exerciseID, util.ErrQuestionNotFound)
	}
	ex := lesson.FindExercise(exerciseID)
	if ex == nil {
		return nil, fmt.Errorf("exercise %s: %w", exerciseID, util.ErrQuestionNotFound)
	}
	return ex, nil
}

func (m *memCourses) FindLesson(ctx context.Context, lessonID string) (*model.Course, *model.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if lesson := c.FindLesson(lessonID); lesson != nil {
			return c, lesson, nil
		}
	}
	return nil, nil, fmt.Errorf("lesson %s: %w", lessonID, util.ErrLessonNotFound)
}

func (m *memCourses) remove(courseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.courses, courseID)
}

type memLedger struct {
	mu          sync.Mutex
	courses     *memCourses
	enrollments map[string]*model.Enrollment
	stampErr    error
}

func newMemLedger(courses *memCourses) *memLedger {
	return &memLedger{courses: courses, enrollments: make(map[string]*model.Enrollment)}
}

func enrollmentKey(userID, courseID string) string {
	return userID + "|" + courseID
}

func (m *memLedger) progress(userID, courseID, lessonID string) *model.LessonProgress {
	e, ok := m.enrollments[enrollmentKey(userID, courseID)]
	if !ok {
		return nil
	}
	return e.FindProgress(lessonID)
}

func (m *memLedger) EnsureProgress(ctx context.Context, userID, courseID string, lesson *model.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := enrollmentKey(userID, courseID)
	e, ok := m.enrollments[key]
	if !ok {
		e = &model.Enrollment{UserID: userID, CourseID: courseID}
		e.ID = model.NewID()
		m.enrollments[key] = e
	}
	if e.FindProgress(lesson.ID) != nil {
		return nil
	}
	remaining := model.UnlimitedAttempts
	if limit, unlimited := lesson.AttemptLimit(); !unlimited {
		remaining = limit
	}
	e.CompletedLessons = append(e.CompletedLessons, model.LessonProgress{
		EnrollmentID:      e.ID,
		LessonID:          lesson.ID,
		RemainingAttempts: remaining,
	})
	return nil
}

func (m *memLedger) GetAttemptState(ctx context.Context, userID, courseID, lessonID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.progress(userID, courseID, lessonID)
	if p == nil || p.Unlimited() {
		return model.UnlimitedAttempts, true, nil
	}
	return p.RemainingAttempts, false, nil
}

func (m *memLedger) ConsumeAttempt(ctx context.Context, userID, courseID, lessonID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.progress(userID, courseID, lessonID)
	if p == nil || p.Unlimited() {
		return model.UnlimitedAttempts, true, nil
	}
	if p.RemainingAttempts <= 0 {
		return 0, false, util.ErrNoAttemptsRemaining
	}
	p.RemainingAttempts--
	return p.RemainingAttempts, false, nil
}

func (m *memLedger) FindProgress(ctx context.Context, userID, courseID, lessonID string) (*model.LessonProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.progress(userID, courseID, lessonID)
	if p == nil {
		return nil, util.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memLedger) BumpBestCorrectCount(ctx context.Context, userID, courseID, lessonID string, correct int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.progress(userID, courseID, lessonID)
	if p == nil || p.CorrectCount >= correct {
		return false, nil
	}
	p.CorrectCount = correct
	return true, nil
}

func (m *memLedger) StampLessonCompletion(ctx context.Context, userID, courseID, lessonID string, when time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stampErr != nil {
		return m.stampErr
	}
	p := m.progress(userID, courseID, lessonID)
	if p == nil {
		return util.ErrNotFound
	}
	p.CompletionDate = &when
	return nil
}

func (m *memLedger) FindEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[enrollmentKey(userID, courseID)]
	if !ok {
		return nil, util.ErrNotEnrolled
	}
	cp := *e
	cp.CompletedLessons = append([]model.LessonProgress(nil), e.CompletedLessons...)
	return &cp, nil
}

func (m *memLedger) MarkCourseCompleted(ctx context.Context, userID, courseID string, when time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[enrollmentKey(userID, courseID)]
	if !ok || e.CompletionDate != nil {
		return false, nil
	}
	e.CompletionDate = &when
	return true, nil
}

func (m *memLedger) CountCompletedCourses(ctx context.Context, userID string, track model.Track) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.enrollments {
		if e.UserID != userID || e.CompletionDate == nil {
			continue
		}
		c, err := m.courses.FindCourse(ctx, e.CourseID)
		if err == nil && c.Track() == track {
			n++
		}
	}
	return n, nil
}

func (m *memLedger) snapshot(userID, courseID, lessonID string) model.LessonProgress {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p := m.progress(userID, courseID, lessonID); p != nil {
		return *p
	}
	return model.LessonProgress{}
}

func (m *memLedger) courseCompletion(userID, courseID string) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.enrollments[enrollmentKey(userID, courseID)]; ok {
		return e.CompletionDate
	}
	return nil
}

type memUsers struct {
	mu           sync.Mutex
	users        map[string]*model.User
	achievements map[string]map[string]bool
	follows      map[string][]string
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{
		users:        make(map[string]*model.User),
		achievements: make(map[string]map[string]bool),
		follows:      make(map[string][]string),
	}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdateTrackProgress(ctx context.Context, userID string, track model.Track, level, skills int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return util.ErrUserNotFound
	}
	if track == model.TrackLibras {
		u.LibrasLevel, u.LibrasSkills = level, skills
	} else {
		u.LescoLevel, u.LescoSkills = level, skills
	}
	return nil
}

func (m *memUsers) AddAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.achievements[userID]
	if !ok {
		set = make(map[string]bool)
		m.achievements[userID] = set
	}
	if set[achievementID] {
		return false, nil
	}
	set[achievementID] = true
	return true, nil
}

func (m *memUsers) CountAchievements(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.achievements[userID])), nil
}

func (m *memUsers) FolloweeIDs(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.follows[userID]...), nil
}

func (m *memUsers) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*model.User, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *memUsers) user(id string) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type memCatalog struct {
	ids map[string]string
}

func newMemCatalog() *memCatalog {
	return &memCatalog{ids: make(map[string]string)}
}

func (m *memCatalog) add(track model.Track, name string) string {
	id := model.NewID()
	m.ids[fmt.Sprintf("%t|%s", bool(track), name)] = id
	return id
}

func (m *memCatalog) FindID(ctx context.Context, track model.Track, name, content string) (string, error) {
	if id, ok := m.ids[fmt.Sprintf("%t|%s", bool(track), name)]; ok {
		return id, nil
	}
	return "", util.ErrNotFound
}

type memNews struct {
	mu   sync.Mutex
	list []model.News
	err  error
}

func (m *memNews) CreateIfAbsent(ctx context.Context, news *model.News) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, n := range m.list {
		if n.UserID == news.UserID && n.Title == news.Title && n.Description == news.Description {
			return false, nil
		}
	}
	news.ID = model.NewID()
	m.list = append(m.list, *news)
	return true, nil
}

func (m *memNews) titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.list {
		out = append(out, n.Title)
	}
	return out
}

// 测试数据构造

func intPtr(n int) *int {
	return &n
}

// choiceExercise 单选题，正确答案为 "a"
func choiceExercise(order int) model.Exercise {
	ex := model.Exercise{
		ExerciseType:    model.ExerciseSingleChoice,
		Order:           order,
		Question:        fmt.Sprintf("q%d", order),
		PossibleAnswers: datatypes.JSON(`["a","b"]`),
		CorrectAnswer:   datatypes.JSON(`"a"`),
	}
	ex.ID = model.NewID()
	return ex
}

func buildLesson(questions int, attempts *int, difficulty int) model.Lesson {
	lesson := model.Lesson{Name: "Saludos", Attempts: attempts, Difficulty: difficulty}
	lesson.ID = model.NewID()
	for i := 0; i < questions; i++ {
		ex := choiceExercise(i)
		ex.LessonID = lesson.ID
		lesson.Exercises = append(lesson.Exercises, ex)
	}
	return lesson
}

func buildCourse(track model.Track, lessons ...model.Lesson) *model.Course {
	course := &model.Course{Name: "Básico", Language: bool(track), Status: true}
	course.ID = model.NewID()
	for i := range lessons {
		lessons[i].CourseID = course.ID
		lessons[i].Position = i
	}
	course.Lessons = lessons
	return course
}

func buildUser(name string) *model.User {
	u := &model.User{Name: name}
	u.ID = model.NewID()
	return u
}

type fixture struct {
	courses  *memCourses
	ledger   *memLedger
	users    *memUsers
	catalog  *memCatalog
	news     *memNews
	progress *ProgressionService
	runs     *ExerciseRunService

	clock time.Time
	mu    sync.Mutex
}

func newFixture(game config.GameConfig, courses []*model.Course, users ...*model.User) *fixture {
	f := &fixture{
		courses: newMemCourses(courses...),
		users:   newMemUsers(users...),
		catalog: newMemCatalog(),
		news:    &memNews{},
		clock:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	f.ledger = newMemLedger(f.courses)
	f.progress = NewProgressionService(f.users, f.ledger, f.catalog, f.news, game)
	f.runs = NewExerciseRunService(f.courses, f.ledger, f.progress, NewRunStore(), nil)
	f.runs.Now = f.now
	return f
}

func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(d)
}

func defaultGame() config.GameConfig {
	return config.GameConfig{
		DefaultTrack:          "lesco",
		CourseMilestones:      []int{10, 25, 50, 100},
		LevelMilestones:       []int{10, 25, 50, 100},
		AchievementMilestones: []int{5, 10, 15, 20, 25},
	}
}
