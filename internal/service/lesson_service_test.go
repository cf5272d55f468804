package service

import (
	"context"
	"errors"
	"testing"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"

	"gorm.io/datatypes"
)

type prefixSigns struct{}

func (prefixSigns) ResolveSign(ctx context.Context, ref string) string {
	if ref == "" {
		return ""
	}
	return "https://cdn.test/" + ref
}

func newLessonFixture(courses []*model.Course, users ...*model.User) (*fixture, *LessonService) {
	f := newFixture(defaultGame(), courses, users...)
	return f, NewLessonService(f.courses, f.ledger, f.users, prefixSigns{})
}

func TestListLessons(t *testing.T) {
	first := buildLesson(1, nil, 1)
	second := buildLesson(2, nil, 1)
	second.Name = ""
	course := buildCourse(model.TrackLesco, first, second)
	user := buildUser("Ana")
	user.StreakCurrent = 4
	_, lessons := newLessonFixture([]*model.Course{course}, user)

	list, err := lessons.ListLessons(context.Background(), course.ID, user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Streak != 4 || list.CourseName != "Básico" || len(list.Lessons) != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
	if list.Lessons[0].ID != first.ID || list.Lessons[1].Name != unnamedLesson {
		t.Fatalf("unexpected lessons %+v", list.Lessons)
	}

	if _, err := lessons.ListLessons(context.Background(), model.NewID(), user.ID); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("expected course not found, got %v", err)
	}
	if _, err := lessons.ListLessons(context.Background(), course.ID, model.NewID()); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	var verr *util.ValidationError
	if _, err := lessons.ListLessons(context.Background(), "bad", user.ID); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLessonInfoAttempts(t *testing.T) {
	limited := buildLesson(2, intPtr(3), 1)
	limited.Theory = datatypes.JSON(`[{"text":"Hola","sign":"signs/hola.mp4"},{"text":"Adiós","sign":null}]`)
	open := buildLesson(1, nil, 1)
	course := buildCourse(model.TrackLibras, limited, open)
	user := buildUser("Ana")
	f, lessons := newLessonFixture([]*model.Course{course}, user)
	ctx := context.Background()

	cases := map[string]struct {
		lessonID      string
		wantAttempts  int
		wantRemaining int
		wantUnlimited bool
	}{
		"limit without progress":     {limited.ID, 3, 3, false},
		"unlimited without progress": {open.ID, 0, -1, true},
	}
	for name, tc := range cases {
		info, err := lessons.LessonInfo(ctx, tc.lessonID, user.ID)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if info.Attempts != tc.wantAttempts || info.RemainingAttempts != tc.wantRemaining || info.Unlimited != tc.wantUnlimited {
			t.Fatalf("%s: unexpected info %+v", name, info)
		}
	}

	if err := f.ledger.EnsureProgress(ctx, user.ID, course.ID, &course.Lessons[0]); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, _, err := f.ledger.ConsumeAttempt(ctx, user.ID, course.ID, limited.ID); err != nil {
		t.Fatalf("consume: %v", err)
	}

	info, err := lessons.LessonInfo(ctx, limited.ID, user.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.RemainingAttempts != 2 || info.Unlimited || info.QuestionCount != 2 {
		t.Fatalf("expected ledger state, got %+v", info)
	}
	if len(info.Theory) != 2 || info.Theory[0].Sign != "https://cdn.test/signs/hola.mp4" || info.Theory[1].Sign != "" {
		t.Fatalf("unexpected theory %+v", info.Theory)
	}
	if info.CourseName != "Básico" || info.LessonName != "Saludos" {
		t.Fatalf("unexpected names %+v", info)
	}
}

func TestLessonInfoErrors(t *testing.T) {
	lesson := buildLesson(1, nil, 1)
	lesson.Theory = datatypes.JSON(`{"not":"a list"}`)
	course := buildCourse(model.TrackLesco, lesson)
	user := buildUser("Ana")
	_, lessons := newLessonFixture([]*model.Course{course}, user)
	ctx := context.Background()

	if _, err := lessons.LessonInfo(ctx, model.NewID(), user.ID); !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("expected lesson not found, got %v", err)
	}
	if _, err := lessons.LessonInfo(ctx, lesson.ID, model.NewID()); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}

	info, err := lessons.LessonInfo(ctx, lesson.ID, user.ID)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Theory == nil || len(info.Theory) != 0 {
		t.Fatalf("malformed theory should yield an empty list, got %+v", info.Theory)
	}
}
