package service

import (
	"context"
	"errors"
	"time"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"
	"sign_learn_backend/pkg/logger"
	"sign_learn_backend/pkg/monitoring"
	"sign_learn_backend/pkg/tracing"

	"go.uber.org/zap"
)

const (
	feedbackCorrect   = "¡Correcto!"
	feedbackIncorrect = "Respuesta incorrecta."
)

type StartRequest struct {
	UserID   string `json:"userId"`
	CourseID string `json:"courseId"`
	LessonID string `json:"lessonId"`
}

type StartResult struct {
	RunID             string         `json:"runId"`
	Total             int            `json:"total"`
	RemainingAttempts int            `json:"remainingAttempts"`
	Unlimited         bool           `json:"unlimited"`
	Questions         []SafeQuestion `json:"questions"`
	CurrentIndex      int            `json:"currentIndex"`
}

type AnswerRequest struct {
	RunID      string      `json:"runId"`
	QuestionID string      `json:"questionId"`
	Answer     interface{} `json:"answer"`
}

// AnswerResult answer 与 skip 共用，skip 时 Skipped 为 true 且总是带 CorrectAnswer
type AnswerResult struct {
	Skipped       bool                   `json:"skipped,omitempty"`
	Correct       bool                   `json:"correct"`
	Feedback      string                 `json:"feedback,omitempty"`
	CurrentIndex  int                    `json:"currentIndex"`
	NextIndex     *int                   `json:"nextIndex"`
	Done          bool                   `json:"done"`
	CorrectCount  int                    `json:"correctCount"`
	Total         int                    `json:"total"`
	NextQuestion  *SafeQuestion          `json:"nextQuestion"`
	CorrectAnswer map[string]interface{} `json:"correctAnswer,omitempty"`
}

type ScoreSummary struct {
	CorrectCount int `json:"correctCount"`
	Total        int `json:"total"`
}

type FinishResult struct {
	Summary           ScoreSummary `json:"summary"`
	RemainingAttempts int          `json:"remainingAttempts"`
	Unlimited         bool         `json:"unlimited"`
	FinishedAt        string       `json:"finishedAt"`
	LevelUp           LevelUp      `json:"levelUp"`

	Outcomes []CascadeOutcome `json:"-"`
}

type CancelResult struct {
	OK         bool   `json:"ok"`
	CanceledAt string `json:"canceledAt"`
}

type StatusResult struct {
	RunID             string  `json:"runId"`
	UserID            string  `json:"userId"`
	CourseID          string  `json:"courseId"`
	LessonID          string  `json:"lessonId"`
	CurrentIndex      int     `json:"currentIndex"`
	CorrectCount      int     `json:"correctCount"`
	Total             int     `json:"total"`
	FinishedAt        *string `json:"finishedAt"`
	State             string  `json:"state"`
	RemainingAttempts int     `json:"remainingAttempts"`
	Unlimited         bool    `json:"unlimited"`
}

type ItemsResult struct {
	LessonID  string         `json:"lessonId"`
	Total     int            `json:"total"`
	Questions []SafeQuestion `json:"questions"`
}

// ExerciseRunService 练习会话状态机：start -> answer/skip -> finish | cancel
type ExerciseRunService struct {
	Courses     CourseStore
	Ledger      ProgressLedger
	Progression *ProgressionService
	Runs        *RunStore
	Signs       SignResolver

	Now func() time.Time
}

func NewExerciseRunService(courses CourseStore, ledger ProgressLedger, progression *ProgressionService, runs *RunStore, signs SignResolver) *ExerciseRunService {
	return &ExerciseRunService{
		Courses:     courses,
		Ledger:      ledger,
		Progression: progression,
		Runs:        runs,
		Signs:       signs,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *ExerciseRunService) resolveSigns(ctx context.Context, questions []SafeQuestion) {
	if s.Signs == nil {
		return
	}
	for i := range questions {
		if questions[i].Sign != "" {
			questions[i].Sign = s.Signs.ResolveSign(ctx, questions[i].Sign)
		}
	}
}

func (s *ExerciseRunService) safeQuestions(ctx context.Context, lesson *model.Lesson) []SafeQuestion {
	questions := SanitizeLesson(lesson)
	s.resolveSigns(ctx, questions)
	return questions
}

// Start 占用用户的练习名额、扣减次数并生成固定题序
func (s *ExerciseRunService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ExerciseRun.Start")
	defer span.End()

	for _, f := range []struct{ field, value string }{
		{"userId", req.UserID},
		{"courseId", req.CourseID},
		{"lessonId", req.LessonID},
	} {
		if err := requireID(f.field, f.value); err != nil {
			return nil, err
		}
	}

	session, err := s.Runs.Acquire(req.UserID, s.Now())
	if err != nil {
		monitoring.RunEvents.WithLabelValues("rejected").Inc()
		return nil, err
	}
	activated := false
	defer func() {
		if !activated {
			s.Runs.Discard(session)
		}
	}()

	_, lesson, err := s.Courses.FindCourseWithLesson(ctx, req.CourseID, req.LessonID)
	if err != nil {
		return nil, err
	}
	if len(lesson.Exercises) == 0 {
		return nil, util.ErrNoQuestions
	}

	if err := s.Ledger.EnsureProgress(ctx, req.UserID, req.CourseID, lesson); err != nil {
		return nil, err
	}
	remaining, unlimited, err := s.Ledger.ConsumeAttempt(ctx, req.UserID, req.CourseID, req.LessonID)
	if err != nil {
		if errors.Is(err, util.ErrNoAttemptsRemaining) {
			monitoring.RunEvents.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}
	if unlimited {
		remaining = model.UnlimitedAttempts
	}

	questions := s.safeQuestions(ctx, lesson)
	order := make([]string, 0, len(questions))
	for _, q := range questions {
		order = append(order, q.ID)
	}

	s.Runs.Activate(session, req.CourseID, req.LessonID, order, remaining)
	activated = true
	monitoring.RunEvents.WithLabelValues("started").Inc()
	monitoring.ActiveRuns.Inc()

	logger.Log.Info("Exercise run started",
		zap.String("run_id", session.ID),
		zap.String("user_id", req.UserID),
		zap.String("course_id", req.CourseID),
		zap.String("lesson_id", req.LessonID),
		zap.Int("remaining_attempts", remaining),
	)

	return &StartResult{
		RunID:             session.ID,
		Total:             len(order),
		RemainingAttempts: remaining,
		Unlimited:         remaining == model.UnlimitedAttempts,
		Questions:         questions,
		CurrentIndex:      0,
	}, nil
}

// lockActive 取出会话并持有其锁；调用方负责 Unlock
func (s *ExerciseRunService) lockActive(runID string) (*RunSession, error) {
	if runID == "" {
		return nil, util.ErrRunNotFound
	}
	session, err := s.Runs.Get(runID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	if session.State() != RunActive {
		session.mu.Unlock()
		return nil, util.ErrRunNotFound
	}
	return session, nil
}

// resolveIndex questionID 为空时作答当前题
func (s *RunSession) resolveIndex(questionID string) (int, error) {
	if questionID == "" {
		return s.CurrentIndex(), nil
	}
	if !model.IsValidID(questionID) {
		return 0, util.NewValidationError("questionId", "must be a 24-character hex id")
	}
	idx := s.indexOf(questionID)
	if idx < 0 {
		return 0, util.NewValidationError("", "questionId not in run")
	}
	return idx, nil
}

// record 写入作答结果；只有作答的是当前题时才前进，最后一题时停留在原位
func (s *ExerciseRunService) record(ctx context.Context, session *RunSession, idx int, rec AnswerRecord) *AnswerResult {
	questionID := session.Order[idx]
	session.Answers[questionID] = rec
	session.recount()

	current := session.CurrentIndex()
	next := idx + 1
	done := next >= session.Total
	if idx == current && !done {
		session.setCurrentIndex(next)
	}
	session.touch(s.Now())

	result := &AnswerResult{
		Correct:      rec.IsCorrect,
		CurrentIndex: idx,
		Done:         done,
		CorrectCount: session.CorrectCount,
		Total:        session.Total,
	}
	if done {
		return result
	}

	result.NextIndex = &next
	_, lesson, err := s.Courses.FindCourseWithLesson(ctx, session.CourseID, session.LessonID)
	if err != nil {
		// 作答已记录，下一题取不到时只返回索引
		logger.Log.Warn("Failed to load next question",
			zap.String("run_id", session.ID),
			zap.Error(err),
		)
		return result
	}
	if ex := lesson.FindExercise(session.Order[next]); ex != nil {
		q := SanitizeExercise(ex)
		if s.Signs != nil && q.Sign != "" {
			q.Sign = s.Signs.ResolveSign(ctx, q.Sign)
		}
		result.NextQuestion = &q
	}
	return result
}

// Answer 评判并记录答案，可以重复作答覆盖之前的结果
func (s *ExerciseRunService) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ExerciseRun.Answer")
	defer span.End()

	session, err := s.lockActive(req.RunID)
	if err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	idx, err := session.resolveIndex(req.QuestionID)
	if err != nil {
		return nil, err
	}
	exercise, err := s.Courses.FindExercise(ctx, session.CourseID, session.LessonID, session.Order[idx])
	if err != nil {
		return nil, err
	}

	isCorrect, _ := EvaluateAnswer(exercise, req.Answer)
	result := s.record(ctx, session, idx, AnswerRecord{IsCorrect: isCorrect})
	if isCorrect {
		result.Feedback = feedbackCorrect
	} else {
		result.Feedback = feedbackIncorrect
		result.CorrectAnswer = ExposeCorrectAnswer(exercise)
	}
	return result, nil
}

// Skip 记为错误并给出正确答案，已作答的题不能跳过
func (s *ExerciseRunService) Skip(ctx context.Context, runID, questionID string) (*AnswerResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ExerciseRun.Skip")
	defer span.End()

	session, err := s.lockActive(runID)
	if err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	idx, err := session.resolveIndex(questionID)
	if err != nil {
		return nil, err
	}
	if _, answered := session.Answers[session.Order[idx]]; answered {
		return nil, util.ErrAlreadyAnswered
	}
	exercise, err := s.Courses.FindExercise(ctx, session.CourseID, session.LessonID, session.Order[idx])
	if err != nil {
		return nil, err
	}

	result := s.record(ctx, session, idx, AnswerRecord{Skipped: true})
	result.Skipped = true
	result.CorrectAnswer = ExposeCorrectAnswer(exercise)
	return result, nil
}

// attemptState 账本读取失败时退回开始时的剩余次数
func (s *ExerciseRunService) attemptState(ctx context.Context, session *RunSession) (int, bool) {
	remaining, unlimited, err := s.Ledger.GetAttemptState(ctx, session.UserID, session.CourseID, session.LessonID)
	if err != nil {
		logger.Log.Warn("Failed to read attempt state",
			zap.String("run_id", session.ID),
			zap.Error(err),
		)
		remaining = session.RemainingAtStart
		unlimited = remaining < 0
	}
	if unlimited {
		remaining = model.UnlimitedAttempts
	}
	return remaining, unlimited
}

// end 转为终态并从内存删除
func (s *ExerciseRunService) end(session *RunSession, state RunState, event string) {
	session.setState(state)
	s.Runs.Release(session)
	monitoring.ActiveRuns.Dec()
	monitoring.RunEvents.WithLabelValues(event).Inc()
}

// Finish 结算练习。顺序不可调整：先读历史最佳再判断是否首次满分，
// 发放技能后才更新最佳成绩，最后盖完成时间并检查课程完成与里程碑。
// 会话一旦确认为 active，结算总是成功，各步骤的失败记录在 Outcomes 中
func (s *ExerciseRunService) Finish(ctx context.Context, runID string) (*FinishResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ExerciseRun.Finish")
	defer span.End()

	session, err := s.lockActive(runID)
	if err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	now := s.Now()
	correct, total := session.CorrectCount, session.Total
	userID, courseID, lessonID := session.UserID, session.CourseID, session.LessonID

	var outcomes []CascadeOutcome
	levelUp := LevelUp{Lang: model.TrackLesco.Label()}

	course, lesson, lookupErr := s.Courses.FindCourseWithLesson(ctx, courseID, lessonID)
	switch {
	case lookupErr != nil:
		outcomes = append(outcomes, failed(StepSkills, lookupErr))
	default:
		levelUp.Lang = course.Track().Label()
		outcome := s.awardFirstPerfect(ctx, session, course, lesson, &levelUp)
		outcomes = append(outcomes, outcome)
	}

	if _, err := s.Ledger.BumpBestCorrectCount(ctx, userID, courseID, lessonID, correct); err != nil {
		logger.Log.Error("Failed to update best correct count", zap.String("run_id", session.ID), zap.Error(err))
	}
	if err := s.Ledger.StampLessonCompletion(ctx, userID, courseID, lessonID, now); err != nil {
		logger.Log.Error("Failed to stamp lesson completion", zap.String("run_id", session.ID), zap.Error(err))
	}

	if lookupErr == nil {
		full, err := s.Courses.FindCourse(ctx, courseID)
		if err != nil {
			outcomes = append(outcomes, failed(StepCourseCompletion, err))
		} else {
			outcomes = append(outcomes, s.Progression.ApplyCompletion(ctx, userID, full, now)...)
		}
	}

	s.end(session, RunFinished, "finished")
	LogOutcomes(session.ID, userID, outcomes)

	remaining, unlimited := s.attemptState(ctx, session)
	logger.Log.Info("Exercise run finished",
		zap.String("run_id", session.ID),
		zap.String("user_id", userID),
		zap.Int("correct", correct),
		zap.Int("total", total),
		zap.Bool("level_up", levelUp.Happened),
	)

	return &FinishResult{
		Summary:           ScoreSummary{CorrectCount: correct, Total: total},
		RemainingAttempts: remaining,
		Unlimited:         unlimited,
		FinishedAt:        formatTime(now),
		LevelUp:           levelUp,
		Outcomes:          outcomes,
	}, nil
}

// awardFirstPerfect 只有第一次满分时发放 difficulty * total 技能点
func (s *ExerciseRunService) awardFirstPerfect(ctx context.Context, session *RunSession, course *model.Course, lesson *model.Lesson, levelUp *LevelUp) CascadeOutcome {
	correct, total := session.CorrectCount, session.Total

	prevBest := -1
	progress, err := s.Ledger.FindProgress(ctx, session.UserID, session.CourseID, session.LessonID)
	switch {
	case err == nil:
		prevBest = progress.CorrectCount
	case !util.IsNotFound(err):
		return failed(StepSkills, err)
	}

	if correct != total || prevBest == total {
		return notGranted(StepSkills, 0)
	}

	award := lesson.EffectiveDifficulty() * total
	result, outcome := s.Progression.AwardSkills(ctx, session.UserID, course.Track(), award)
	*levelUp = result
	return outcome
}

// Cancel 放弃练习：不退还次数、不更新最佳成绩，只盖课时完成时间
func (s *ExerciseRunService) Cancel(ctx context.Context, runID string) (*CancelResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ExerciseRun.Cancel")
	defer span.End()

	session, err := s.lockActive(runID)
	if err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	now := s.cancelLocked(ctx, session, "canceled")
	return &CancelResult{OK: true, CanceledAt: formatTime(now)}, nil
}

func (s *ExerciseRunService) cancelLocked(ctx context.Context, session *RunSession, event string) time.Time {
	now := s.Now()
	if err := s.Ledger.StampLessonCompletion(ctx, session.UserID, session.CourseID, session.LessonID, now); err != nil {
		logger.Log.Error("Failed to stamp lesson completion", zap.String("run_id", session.ID), zap.Error(err))
	}
	s.end(session, RunCanceled, event)
	logger.Log.Info("Exercise run canceled",
		zap.String("run_id", session.ID),
		zap.String("user_id", session.UserID),
		zap.String("reason", event),
	)
	return now
}

// Status 只读快照，用于前端恢复练习
func (s *ExerciseRunService) Status(ctx context.Context, runID string) (*StatusResult, error) {
	session, err := s.lockActive(runID)
	if err != nil {
		return nil, err
	}
	defer session.mu.Unlock()

	remaining, unlimited := s.attemptState(ctx, session)
	return &StatusResult{
		RunID:             session.ID,
		UserID:            session.UserID,
		CourseID:          session.CourseID,
		LessonID:          session.LessonID,
		CurrentIndex:      session.CurrentIndex(),
		CorrectCount:      session.CorrectCount,
		Total:             session.Total,
		FinishedAt:        nil,
		State:             session.State().String(),
		RemainingAttempts: remaining,
		Unlimited:         unlimited,
	}, nil
}

// Owner 练习所属用户，用于校验令牌主体
func (s *ExerciseRunService) Owner(runID string) (string, error) {
	session, err := s.Runs.Get(runID)
	if err != nil {
		return "", err
	}
	return session.UserID, nil
}

// Items 与练习无关的题目列表
func (s *ExerciseRunService) Items(ctx context.Context, courseID, lessonID string) (*ItemsResult, error) {
	if err := requireID("courseId", courseID); err != nil {
		return nil, err
	}
	if err := requireID("lessonId", lessonID); err != nil {
		return nil, err
	}
	_, lesson, err := s.Courses.FindCourseWithLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}
	questions := s.safeQuestions(ctx, lesson)
	return &ItemsResult{LessonID: lessonID, Total: len(questions), Questions: questions}, nil
}

// ReapIdle 通过正常的取消流程回收长时间无操作的练习
func (s *ExerciseRunService) ReapIdle(ctx context.Context, maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	reaped := 0
	for _, runID := range s.Runs.Idle(s.Now(), maxIdle) {
		session, err := s.lockActive(runID)
		if err != nil {
			continue
		}
		// 加锁期间可能刚有操作
		if s.Now().Sub(session.LastActivity()) < maxIdle {
			session.mu.Unlock()
			continue
		}
		s.cancelLocked(ctx, session, "reaped")
		session.mu.Unlock()
		reaped++
	}
	return reaped
}
