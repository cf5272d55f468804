package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"gorm.io/datatypes"
)

// playRun 开始一次练习，前 correct 题答对，其余答错，然后结算
func playRun(t *testing.T, f *fixture, userID string, course *model.Course, lesson *model.Lesson, correct int) *FinishResult {
	t.Helper()
	ctx := context.Background()
	start, err := f.runs.Start(ctx, StartRequest{UserID: userID, CourseID: course.ID, LessonID: lesson.ID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < start.Total; i++ {
		answer := "b"
		if i < correct {
			answer = "a"
		}
		if _, err := f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, Answer: answer}); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	result, err := f.runs.Finish(ctx, start.RunID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return result
}

func outcomeOf(outcomes []CascadeOutcome, step CascadeStep) (CascadeOutcome, bool) {
	for _, o := range outcomes {
		if o.Step == step {
			return o, true
		}
	}
	return CascadeOutcome{}, false
}

func TestStartConsumesOneAttemptPerStart(t *testing.T) {
	lesson := buildLesson(2, intPtr(3), 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		start, err := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		if start.RemainingAttempts != want || start.Unlimited {
			t.Fatalf("expected %d remaining, got %d (unlimited=%v)", want, start.RemainingAttempts, start.Unlimited)
		}
		if _, err := f.runs.Cancel(ctx, start.RunID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
	}

	_, err := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
	if !errors.Is(err, util.ErrNoAttemptsRemaining) {
		t.Fatalf("expected no attempts remaining, got %v", err)
	}
	if n := f.runs.Runs.Len(); n != 0 {
		t.Fatalf("refused start must not leave a session, got %d", n)
	}
	// 取消不退还次数
	if p := f.ledger.snapshot(user.ID, course.ID, lesson.ID); p.RemainingAttempts != 0 {
		t.Fatalf("expected 0 remaining after cancels, got %d", p.RemainingAttempts)
	}
}

func TestStartUnlimitedAttempts(t *testing.T) {
	for name, attempts := range map[string]*int{
		"nil":      nil,
		"zero":     intPtr(0),
		"negative": intPtr(-2),
	} {
		t.Run(name, func(t *testing.T) {
			lesson := buildLesson(1, attempts, 1)
			course := buildCourse(model.TrackLesco, lesson)
			user := buildUser("Ana")
			f := newFixture(defaultGame(), []*model.Course{course}, user)
			ctx := context.Background()

			for i := 0; i < 4; i++ {
				start, err := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
				if err != nil {
					t.Fatalf("start %d: %v", i, err)
				}
				if start.RemainingAttempts != -1 || !start.Unlimited {
					t.Fatalf("expected unlimited, got %d", start.RemainingAttempts)
				}
				if _, err := f.runs.Cancel(ctx, start.RunID); err != nil {
					t.Fatalf("cancel: %v", err)
				}
			}
		})
	}
}

func TestStartRejections(t *testing.T) {
	lesson := buildLesson(2, nil, 1)
	empty := buildLesson(0, intPtr(2), 1)
	course := buildCourse(model.TrackLesco, lesson, empty)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	cases := map[string]struct {
		req  StartRequest
		want func(error) bool
	}{
		"bad user id": {
			StartRequest{UserID: "nope", CourseID: course.ID, LessonID: lesson.ID},
			func(err error) bool { var v *util.ValidationError; return errors.As(err, &v) },
		},
		"unknown course": {
			StartRequest{UserID: user.ID, CourseID: model.NewID(), LessonID: lesson.ID},
			func(err error) bool { return errors.Is(err, util.ErrCourseNotFound) },
		},
		"unknown lesson": {
			StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: model.NewID()},
			func(err error) bool { return errors.Is(err, util.ErrLessonNotFound) },
		},
		"no questions": {
			StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: empty.ID},
			func(err error) bool { return errors.Is(err, util.ErrNoQuestions) },
		},
	}
	for name, tc := range cases {
		_, err := f.runs.Start(ctx, tc.req)
		if !tc.want(err) {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}

	if n := f.runs.Runs.Len(); n != 0 {
		t.Fatalf("rejected starts must not leave sessions, got %d", n)
	}
	if _, err := f.ledger.FindProgress(ctx, user.ID, course.ID, empty.ID); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("empty lesson must not create progress, got %v", err)
	}
}

func TestStartConflictCarriesResumeInfo(t *testing.T) {
	lesson := buildLesson(3, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()
	req := StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID}

	start, err := f.runs.Start(ctx, req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, Answer: "a"}); err != nil {
		t.Fatalf("answer: %v", err)
	}

	_, err = f.runs.Start(ctx, req)
	var conflict *util.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if conflict.RunID != start.RunID || conflict.CurrentIndex != 1 {
		t.Fatalf("unexpected resume info %+v", conflict)
	}
}

func TestConcurrentStartSingleWinner(t *testing.T) {
	lesson := buildLesson(2, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.runs.Start(context.Background(), StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
			mu.Lock()
			defer mu.Unlock()
			var conflict *util.ConflictError
			switch {
			case err == nil:
				wins++
			case errors.As(err, &conflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 win and %d conflicts, got %d and %d", workers-1, wins, conflicts)
	}
}

func TestAnswerAdvancesOnlyOnCurrentQuestion(t *testing.T) {
	lesson := buildLesson(3, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	start, err := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	last := start.Questions[2].ID

	res, err := f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, QuestionID: last, Answer: "b"})
	if err != nil {
		t.Fatalf("answer last: %v", err)
	}
	if res.Correct || res.CurrentIndex != 2 || !res.Done || res.NextIndex != nil {
		t.Fatalf("unexpected out-of-order result %+v", res)
	}
	if res.Feedback != feedbackIncorrect || res.CorrectAnswer["text"] != "a" {
		t.Fatalf("wrong answers must reveal the correct one, got %+v", res.CorrectAnswer)
	}

	res, err = f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, Answer: float64(0)})
	if err != nil {
		t.Fatalf("answer current: %v", err)
	}
	if !res.Correct || res.CurrentIndex != 0 || res.NextIndex == nil || *res.NextIndex != 1 {
		t.Fatalf("unexpected current answer %+v", res)
	}
	if res.CorrectAnswer != nil || res.Feedback != feedbackCorrect {
		t.Fatalf("correct answers must not reveal, got %+v", res.CorrectAnswer)
	}
	if res.NextQuestion == nil || res.NextQuestion.ID != start.Questions[1].ID {
		t.Fatalf("expected next question %s, got %+v", start.Questions[1].ID, res.NextQuestion)
	}

	// 重复作答覆盖原结果
	res, err = f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, QuestionID: last, Answer: "a"})
	if err != nil {
		t.Fatalf("re-answer: %v", err)
	}
	if res.CorrectCount != 2 {
		t.Fatalf("expected recount to 2, got %d", res.CorrectCount)
	}

	status, err := f.runs.Status(ctx, start.RunID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CurrentIndex != 1 || status.CorrectCount != 2 || status.State != "active" || status.FinishedAt != nil {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAnswerUnknownQuestion(t *testing.T) {
	lesson := buildLesson(2, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	start, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})

	for name, qid := range map[string]string{
		"malformed":  "xyz",
		"not in run": model.NewID(),
	} {
		_, err := f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, QuestionID: qid, Answer: "a"})
		var v *util.ValidationError
		if !errors.As(err, &v) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, err := f.runs.Answer(ctx, AnswerRequest{RunID: model.NewID(), Answer: "a"}); !errors.Is(err, util.ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
}

func TestSkipRevealsAnswerAndRejectsAnswered(t *testing.T) {
	lesson := buildLesson(3, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	start, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
	if _, err := f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, Answer: "a"}); err != nil {
		t.Fatalf("answer: %v", err)
	}

	_, err := f.runs.Skip(ctx, start.RunID, start.Questions[0].ID)
	if !errors.Is(err, util.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}

	res, err := f.runs.Skip(ctx, start.RunID, "")
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if !res.Skipped || res.Correct || res.CurrentIndex != 1 || res.CorrectAnswer["text"] != "a" {
		t.Fatalf("unexpected skip result %+v", res)
	}
	if res.CorrectCount != 1 || res.NextIndex == nil || *res.NextIndex != 2 {
		t.Fatalf("unexpected skip progress %+v", res)
	}
}

func TestTerminalRunsAreGone(t *testing.T) {
	lesson := buildLesson(2, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	finished, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
	if _, err := f.runs.Finish(ctx, finished.RunID); err != nil {
		t.Fatalf("finish: %v", err)
	}
	canceled, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
	if _, err := f.runs.Cancel(ctx, canceled.RunID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, runID := range []string{finished.RunID, canceled.RunID} {
		calls := map[string]func() error{
			"status": func() error { _, err := f.runs.Status(ctx, runID); return err },
			"answer": func() error { _, err := f.runs.Answer(ctx, AnswerRequest{RunID: runID, Answer: "a"}); return err },
			"skip":   func() error { _, err := f.runs.Skip(ctx, runID, ""); return err },
			"finish": func() error { _, err := f.runs.Finish(ctx, runID); return err },
			"cancel": func() error { _, err := f.runs.Cancel(ctx, runID); return err },
		}
		for name, call := range calls {
			if err := call(); !errors.Is(err, util.ErrRunNotFound) {
				t.Fatalf("%s after terminal: expected run not found, got %v", name, err)
			}
		}
	}
}

func TestFinishRatchetsBestScore(t *testing.T) {
	lesson := buildLesson(10, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)

	for _, correct := range []int{3, 8, 2} {
		res := playRun(t, f, user.ID, course, &course.Lessons[0], correct)
		if res.Summary.CorrectCount != correct || res.Summary.Total != 10 {
			t.Fatalf("unexpected summary %+v", res.Summary)
		}
	}
	if p := f.ledger.snapshot(user.ID, course.ID, lesson.ID); p.CorrectCount != 8 {
		t.Fatalf("expected best score 8, got %d", p.CorrectCount)
	}
}

func TestLessonCompletionStampedOnFinishAndCancel(t *testing.T) {
	lesson := buildLesson(2, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	start, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
	canceled, err := f.runs.Cancel(ctx, start.RunID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	p := f.ledger.snapshot(user.ID, course.ID, lesson.ID)
	if p.CompletionDate == nil || !p.CompletionDate.Equal(f.now()) {
		t.Fatalf("cancel must stamp completion, got %v", p.CompletionDate)
	}
	if !canceled.OK || canceled.CanceledAt != f.now().Format(util.ISOTimeFormat) {
		t.Fatalf("unexpected cancel result %+v", canceled)
	}

	f.advance(time.Hour)
	res := playRun(t, f, user.ID, course, &course.Lessons[0], 0)
	p = f.ledger.snapshot(user.ID, course.ID, lesson.ID)
	if p.CompletionDate == nil || !p.CompletionDate.Equal(f.now()) || p.CorrectCount != 0 {
		t.Fatalf("finish with zero correct must restamp, got %+v", p)
	}
	if res.FinishedAt != "2025-03-01T11:00:00.000000Z" {
		t.Fatalf("unexpected finishedAt %s", res.FinishedAt)
	}
	if res.LevelUp.Happened || res.LevelUp.NewLevel != nil || res.LevelUp.Lang != "LESCO" {
		t.Fatalf("unexpected level up %+v", res.LevelUp)
	}
}

func TestSkillsGrantedOnlyOnFirstPerfect(t *testing.T) {
	lesson := buildLesson(3, nil, 2)
	course := buildCourse(model.TrackLibras, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)

	res := playRun(t, f, user.ID, course, &course.Lessons[0], 3)
	if !res.LevelUp.Happened || res.LevelUp.NewLevel == nil || *res.LevelUp.NewLevel != 3 || res.LevelUp.Lang != "LIBRAS" {
		t.Fatalf("unexpected level up %+v", res.LevelUp)
	}
	u := f.users.user(user.ID)
	if u.LibrasLevel != 3 || u.LibrasSkills != 0 || u.LescoLevel != 0 {
		t.Fatalf("expected libras level 3 skills 0, got %+v", u)
	}

	res = playRun(t, f, user.ID, course, &course.Lessons[0], 3)
	if res.LevelUp.Happened {
		t.Fatalf("second perfect run must not level up")
	}
	if o, _ := outcomeOf(res.Outcomes, StepSkills); o.Outcome != OutcomeNotGranted {
		t.Fatalf("expected skills not granted, got %+v", o)
	}
	if u := f.users.user(user.ID); u.LibrasLevel != 3 || u.LibrasSkills != 0 {
		t.Fatalf("skills changed on repeated perfect run: %+v", u)
	}
}

func TestCourseCompletionSetOnce(t *testing.T) {
	first := buildLesson(2, intPtr(1), 1)
	second := buildLesson(2, nil, 1)
	course := buildCourse(model.TrackLesco, first, second)
	user := buildUser("Ana")
	game := defaultGame()
	game.CourseMilestones = []int{1}
	f := newFixture(game, []*model.Course{course}, user)
	f.catalog.add(model.TrackLesco, "1 cursos completados")

	// 第一课次数用尽即视为完成
	playRun(t, f, user.ID, course, &course.Lessons[0], 0)
	if got := f.ledger.courseCompletion(user.ID, course.ID); got != nil {
		t.Fatalf("course must not be complete yet, got %v", got)
	}

	f.advance(time.Minute)
	res := playRun(t, f, user.ID, course, &course.Lessons[1], 2)
	completedAt := f.now()
	if got := f.ledger.courseCompletion(user.ID, course.ID); got == nil || !got.Equal(completedAt) {
		t.Fatalf("expected course completion at %v, got %v", completedAt, got)
	}
	if o, _ := outcomeOf(res.Outcomes, StepCourseMilestone); o.Outcome != OutcomeGranted || o.Value != 1 {
		t.Fatalf("expected course milestone 1, got %+v", o)
	}

	f.advance(time.Minute)
	playRun(t, f, user.ID, course, &course.Lessons[1], 2)
	if got := f.ledger.courseCompletion(user.ID, course.ID); got == nil || !got.Equal(completedAt) {
		t.Fatalf("course completion must never change, got %v", got)
	}
}

func TestFinishCascadeGrantsMilestonesAndNews(t *testing.T) {
	lesson := buildLesson(3, nil, 2)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana Pérez")
	game := defaultGame()
	game.LevelMilestones = []int{3}
	game.AchievementMilestones = []int{1, 2}
	f := newFixture(game, []*model.Course{course}, user)
	f.catalog.add(model.TrackLesco, "¡Nivel 3!")
	f.catalog.add(model.TrackLesco, "2 logros conseguidos")

	res := playRun(t, f, user.ID, course, &course.Lessons[0], 3)

	if o, _ := outcomeOf(res.Outcomes, StepLevelMilestone); o.Outcome != OutcomeGranted || o.Value != 3 {
		t.Fatalf("expected level milestone, got %+v", o)
	}
	// 计数为 1 时目录中没有对应成就
	if o, _ := outcomeOf(res.Outcomes, StepAchievementMilestone); o.Outcome != OutcomeNotGranted {
		t.Fatalf("expected missing achievement milestone, got %+v", o)
	}
	want := "¡Ana Pérez acaba de subir a nivel 3!"
	if titles := f.news.titles(); len(titles) != 1 || titles[0] != want {
		t.Fatalf("unexpected news %v", titles)
	}

	// 再次满分不会重复授予或发布新闻
	res = playRun(t, f, user.ID, course, &course.Lessons[0], 3)
	if o, _ := outcomeOf(res.Outcomes, StepLevelMilestone); o.Outcome != OutcomeNotGranted {
		t.Fatalf("expected level milestone already held, got %+v", o)
	}
	if titles := f.news.titles(); len(titles) != 1 {
		t.Fatalf("expected no new news, got %v", titles)
	}
}

func TestFinishSucceedsWhenCascadeFails(t *testing.T) {
	lesson := buildLesson(3, intPtr(2), 2)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	game := defaultGame()
	game.LevelMilestones = []int{3}
	f := newFixture(game, []*model.Course{course}, user)
	f.catalog.add(model.TrackLesco, "¡Nivel 3!")
	f.news.err = errors.New("news store down")
	f.ledger.stampErr = errors.New("ledger down")

	res := playRun(t, f, user.ID, course, &course.Lessons[0], 3)
	if res.RemainingAttempts != 1 || res.Unlimited {
		t.Fatalf("unexpected attempts %d", res.RemainingAttempts)
	}
	if o, ok := outcomeOf(res.Outcomes, StepNews); !ok || o.Outcome != OutcomeFailed || o.Err == nil {
		t.Fatalf("expected failed news step, got %+v", o)
	}
	if p := f.ledger.snapshot(user.ID, course.ID, lesson.ID); p.CorrectCount != 3 {
		t.Fatalf("ratchet must still run, got %d", p.CorrectCount)
	}
	if f.runs.Runs.Len() != 0 {
		t.Fatalf("finished run must be released")
	}
}

func TestFinishWithDeletedCourseStillReleases(t *testing.T) {
	lesson := buildLesson(2, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	start, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})
	f.courses.remove(course.ID)

	res, err := f.runs.Finish(ctx, start.RunID)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if o, _ := outcomeOf(res.Outcomes, StepSkills); o.Outcome != OutcomeFailed {
		t.Fatalf("expected failed skills step, got %+v", o)
	}
	if p := f.ledger.snapshot(user.ID, course.ID, lesson.ID); p.CompletionDate == nil {
		t.Fatalf("lesson completion must still be stamped")
	}
	if _, err := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID}); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("user must be free to start again, got %v", err)
	}
}

func TestConcurrentAnswersOnOneRun(t *testing.T) {
	lesson := buildLesson(10, nil, 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	start, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.runs.Answer(ctx, AnswerRequest{RunID: start.RunID, Answer: "a"}); err != nil {
				t.Errorf("answer: %v", err)
			}
		}()
	}
	wg.Wait()

	status, err := f.runs.Status(ctx, start.RunID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CorrectCount != 10 || status.CurrentIndex != 9 {
		t.Fatalf("expected every question answered once, got %+v", status)
	}
}

func TestReapIdleCancelsThroughNormalPath(t *testing.T) {
	lesson := buildLesson(2, intPtr(3), 1)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	f := newFixture(defaultGame(), []*model.Course{course}, user)
	ctx := context.Background()

	start, _ := f.runs.Start(ctx, StartRequest{UserID: user.ID, CourseID: course.ID, LessonID: lesson.ID})

	f.advance(30 * time.Minute)
	if n := f.runs.ReapIdle(ctx, time.Hour); n != 0 {
		t.Fatalf("fresh run must not be reaped, got %d", n)
	}
	f.advance(time.Hour)
	if n := f.runs.ReapIdle(ctx, time.Hour); n != 1 {
		t.Fatalf("expected one reaped run, got %d", n)
	}

	if _, err := f.runs.Status(ctx, start.RunID); !errors.Is(err, util.ErrRunNotFound) {
		t.Fatalf("reaped run must be gone, got %v", err)
	}
	p := f.ledger.snapshot(user.ID, course.ID, lesson.ID)
	if p.CompletionDate == nil || p.RemainingAttempts != 2 {
		t.Fatalf("reap must stamp and keep the consumed attempt, got %+v", p)
	}
}

func TestItemsSortedAndSanitized(t *testing.T) {
	lesson := buildLesson(0, nil, 1)
	for _, tc := range []struct {
		id    string
		order int
	}{
		{"bbbbbbbbbbbbbbbbbbbbbbbb", 1},
		{"aaaaaaaaaaaaaaaaaaaaaaaa", 1},
		{"cccccccccccccccccccccccc", 0},
	} {
		ex := choiceExercise(tc.order)
		ex.ID = tc.id
		ex.Sign = "signs/" + tc.id + ".mp4"
		lesson.Exercises = append(lesson.Exercises, ex)
	}
	tf := model.Exercise{ExerciseType: model.ExerciseTrueFalse, Order: 5, CorrectAnswer: datatypes.JSON(`true`)}
	tf.ID = "dddddddddddddddddddddddd"
	lesson.Exercises = append(lesson.Exercises, tf)

	course := buildCourse(model.TrackLesco, lesson)
	f := newFixture(defaultGame(), []*model.Course{course})
	f.runs.Signs = prefixResolver("https://cdn.example/")

	items, err := f.runs.Items(context.Background(), course.ID, lesson.ID)
	if err != nil {
		t.Fatalf("items: %v", err)
	}
	want := []string{"cccccccccccccccccccccccc", "aaaaaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbbbbb", "dddddddddddddddddddddddd"}
	if items.Total != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), items.Total)
	}
	for i, id := range want {
		if items.Questions[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, items.Questions[i].ID)
		}
	}
	if items.Questions[0].Sign != "https://cdn.example/signs/cccccccccccccccccccccccc.mp4" {
		t.Fatalf("sign not resolved: %s", items.Questions[0].Sign)
	}
	if string(items.Questions[3].PossibleAnswers) != `["Verdadero","Falso"]` {
		t.Fatalf("unexpected true/false options %s", items.Questions[3].PossibleAnswers)
	}
}

type prefixResolver string

func (p prefixResolver) ResolveSign(ctx context.Context, ref string) string {
	return string(p) + ref
}
