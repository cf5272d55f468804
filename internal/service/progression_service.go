package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"sign_learn_backend/internal/config"
	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"
	"sign_learn_backend/pkg/logger"
	"sign_learn_backend/pkg/monitoring"

	"go.uber.org/zap"
)

type CascadeStep string

const (
	StepSkills               CascadeStep = "skills"
	StepCourseCompletion     CascadeStep = "course_completion"
	StepCourseMilestone      CascadeStep = "course_milestone"
	StepLevelMilestone       CascadeStep = "level_milestone"
	StepAchievementMilestone CascadeStep = "achievement_milestone"
	StepNews                 CascadeStep = "news"
)

type Outcome string

const (
	OutcomeGranted    Outcome = "granted"
	OutcomeNotGranted Outcome = "not_granted"
	OutcomeFailed     Outcome = "failed"
)

// CascadeOutcome 完成练习后每一步副作用的结果，失败只记录不中断
type CascadeOutcome struct {
	Step    CascadeStep
	Outcome Outcome
	Value   int
	Err     error
}

func granted(step CascadeStep, value int) CascadeOutcome {
	return CascadeOutcome{Step: step, Outcome: OutcomeGranted, Value: value}
}

func notGranted(step CascadeStep, value int) CascadeOutcome {
	return CascadeOutcome{Step: step, Outcome: OutcomeNotGranted, Value: value}
}

func failed(step CascadeStep, err error) CascadeOutcome {
	return CascadeOutcome{Step: step, Outcome: OutcomeFailed, Err: err}
}

type milestoneCategory string

const (
	categoryLevel        milestoneCategory = "level"
	categoryCourses      milestoneCategory = "courses"
	categoryAchievements milestoneCategory = "achievements"
)

// milestoneAchievement 成就目录中约定的名称与描述
func milestoneAchievement(category milestoneCategory, value int) (name, content string) {
	switch category {
	case categoryLevel:
		return fmt.Sprintf("¡Nivel %d!", value), fmt.Sprintf("Subiste a nivel %d.", value)
	case categoryCourses:
		return fmt.Sprintf("%d cursos completados", value), fmt.Sprintf("Completaste %d cursos.", value)
	case categoryAchievements:
		return fmt.Sprintf("%d logros conseguidos", value), fmt.Sprintf("Conseguiste %d logros.", value)
	}
	return "", ""
}

// MilestoneCatalog 按配置的阈值生成两条轨道的里程碑成就目录
func MilestoneCatalog(game config.GameConfig, now time.Time) []model.Achievement {
	groups := []struct {
		category   milestoneCategory
		thresholds []int
	}{
		{categoryCourses, game.CourseMilestones},
		{categoryLevel, game.LevelMilestones},
		{categoryAchievements, game.AchievementMilestones},
	}

	var out []model.Achievement
	for _, track := range []model.Track{model.TrackLesco, model.TrackLibras} {
		for _, g := range groups {
			for _, value := range g.thresholds {
				name, content := milestoneAchievement(g.category, value)
				out = append(out, model.Achievement{
					Type:    bool(track),
					Name:    name,
					Content: content,
					Date:    now,
				})
			}
		}
	}
	return out
}

// MilestoneRules 里程碑阈值，来自 game 配置，可热更新
type MilestoneRules struct {
	Courses      []int
	Levels       []int
	Achievements []int
}

func RulesFromConfig(cfg config.GameConfig) *MilestoneRules {
	return &MilestoneRules{
		Courses:      append([]int(nil), cfg.CourseMilestones...),
		Levels:       append([]int(nil), cfg.LevelMilestones...),
		Achievements: append([]int(nil), cfg.AchievementMilestones...),
	}
}

func isMilestone(thresholds []int, value int) bool {
	for _, k := range thresholds {
		if k == value {
			return true
		}
	}
	return false
}

// LevelUp finish 响应中的升级信息
type LevelUp struct {
	Happened bool   `json:"happened"`
	NewLevel *int   `json:"newLevel"`
	Lang     string `json:"lang"`
}

// ApplySkillAward 加上技能点后连续升级：从 N 级升到 N+1 级需要 N+1 点
func ApplySkillAward(level, skills, award int) (int, int) {
	if award > 0 {
		skills += award
	}
	for skills >= level+1 {
		skills -= level + 1
		level++
	}
	return level, skills
}

// IsLessonComplete 课时完成判定
func IsLessonComplete(progress *model.LessonProgress, totalQuestions int) bool {
	return progress != nil && progress.IsComplete(totalQuestions)
}

type ProgressionService struct {
	Users   UserStore
	Ledger  ProgressLedger
	Catalog AchievementCatalog
	News    NewsWriter

	rules atomic.Pointer[MilestoneRules]
}

func NewProgressionService(users UserStore, ledger ProgressLedger, catalog AchievementCatalog, news NewsWriter, game config.GameConfig) *ProgressionService {
	s := &ProgressionService{
		Users:   users,
		Ledger:  ledger,
		Catalog: catalog,
		News:    news,
	}
	s.SetRules(game)
	return s
}

// SetRules 配置热更新时调用
func (s *ProgressionService) SetRules(game config.GameConfig) {
	s.rules.Store(RulesFromConfig(game))
}

func (s *ProgressionService) Rules() *MilestoneRules {
	return s.rules.Load()
}

// AwardSkills 为课程所属轨道加技能点并处理连续升级
func (s *ProgressionService) AwardSkills(ctx context.Context, userID string, track model.Track, award int) (LevelUp, CascadeOutcome) {
	levelUp := LevelUp{Lang: track.Label()}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return levelUp, failed(StepSkills, err)
	}

	before, skills := user.TrackProgress(track)
	level, skills := ApplySkillAward(before, skills, award)
	if err := s.Users.UpdateTrackProgress(ctx, userID, track, level, skills); err != nil {
		return levelUp, failed(StepSkills, err)
	}

	if level > before {
		levelUp.Happened = true
		levelUp.NewLevel = &level
	}
	logger.Log.Info("Skills awarded",
		zap.String("user_id", userID),
		zap.String("track", track.Label()),
		zap.Int("award", award),
		zap.Int("level", level),
		zap.Int("skills", skills),
	)
	return levelUp, granted(StepSkills, award)
}

// allLessonsComplete 课程中每个课时都有进度且满足完成判定
func allLessonsComplete(course *model.Course, enrollment *model.Enrollment) bool {
	if len(course.Lessons) == 0 {
		return false
	}
	for i := range course.Lessons {
		lesson := &course.Lessons[i]
		if !IsLessonComplete(enrollment.FindProgress(lesson.ID), len(lesson.Exercises)) {
			return false
		}
	}
	return true
}

// ApplyCompletion 课程完成检查与里程碑成就。course 需要包含全部课时及题目
func (s *ProgressionService) ApplyCompletion(ctx context.Context, userID string, course *model.Course, when time.Time) []CascadeOutcome {
	rules := s.Rules()
	track := course.Track()
	var outcomes []CascadeOutcome

	completedNow, outcome := s.markCourseCompleted(ctx, userID, course, when)
	outcomes = append(outcomes, outcome)

	if completedNow {
		count, err := s.Ledger.CountCompletedCourses(ctx, userID, track)
		switch {
		case err != nil:
			outcomes = append(outcomes, failed(StepCourseMilestone, err))
		case isMilestone(rules.Courses, int(count)):
			ok, steps := s.grantMilestone(ctx, userID, track, categoryCourses, int(count))
			outcomes = append(outcomes, steps...)
			if ok {
				outcomes = append(outcomes, s.checkAchievementCount(ctx, userID, track, rules)...)
			}
		default:
			outcomes = append(outcomes, notGranted(StepCourseMilestone, int(count)))
		}
	}

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		outcomes = append(outcomes, failed(StepLevelMilestone, err))
	} else {
		level, _ := user.TrackProgress(track)
		if isMilestone(rules.Levels, level) {
			ok, steps := s.grantMilestone(ctx, userID, track, categoryLevel, level)
			outcomes = append(outcomes, steps...)
			// 每次新授予后都重新计数
			if ok {
				outcomes = append(outcomes, s.checkAchievementCount(ctx, userID, track, rules)...)
			}
		} else {
			outcomes = append(outcomes, notGranted(StepLevelMilestone, level))
		}
	}
	return outcomes
}

func (s *ProgressionService) markCourseCompleted(ctx context.Context, userID string, course *model.Course, when time.Time) (bool, CascadeOutcome) {
	enrollment, err := s.Ledger.FindEnrollment(ctx, userID, course.ID)
	if err != nil {
		return false, failed(StepCourseCompletion, err)
	}
	if enrollment.CompletionDate != nil || !allLessonsComplete(course, enrollment) {
		return false, notGranted(StepCourseCompletion, 0)
	}
	set, err := s.Ledger.MarkCourseCompleted(ctx, userID, course.ID, when)
	if err != nil {
		return false, failed(StepCourseCompletion, err)
	}
	if !set {
		return false, notGranted(StepCourseCompletion, 0)
	}
	return true, granted(StepCourseCompletion, 0)
}

func (s *ProgressionService) checkAchievementCount(ctx context.Context, userID string, track model.Track, rules *MilestoneRules) []CascadeOutcome {
	total, err := s.Users.CountAchievements(ctx, userID)
	if err != nil {
		return []CascadeOutcome{failed(StepAchievementMilestone, err)}
	}
	if !isMilestone(rules.Achievements, int(total)) {
		return []CascadeOutcome{notGranted(StepAchievementMilestone, int(total))}
	}
	_, steps := s.grantMilestone(ctx, userID, track, categoryAchievements, int(total))
	return steps
}

func stepFor(category milestoneCategory) CascadeStep {
	switch category {
	case categoryCourses:
		return StepCourseMilestone
	case categoryLevel:
		return StepLevelMilestone
	}
	return StepAchievementMilestone
}

// grantMilestone 从成就目录查找并授予，新授予时发布新闻
func (s *ProgressionService) grantMilestone(ctx context.Context, userID string, track model.Track, category milestoneCategory, value int) (bool, []CascadeOutcome) {
	step := stepFor(category)
	name, content := milestoneAchievement(category, value)

	achievementID, err := s.Catalog.FindID(ctx, track, name, content)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			logger.Log.Warn("Milestone achievement missing from catalog",
				zap.Bool("type", bool(track)),
				zap.String("name", name),
			)
			return false, []CascadeOutcome{notGranted(step, value)}
		}
		return false, []CascadeOutcome{failed(step, err)}
	}

	ok, err := s.Users.AddAchievement(ctx, userID, achievementID)
	if err != nil {
		return false, []CascadeOutcome{failed(step, err)}
	}
	if !ok {
		return false, []CascadeOutcome{notGranted(step, value)}
	}

	outcomes := []CascadeOutcome{granted(step, value)}
	return true, append(outcomes, s.publishAchievementNews(ctx, userID, track, category, value))
}

func (s *ProgressionService) publishAchievementNews(ctx context.Context, userID string, track model.Track, category milestoneCategory, value int) CascadeOutcome {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return failed(StepNews, err)
	}
	title, description := achievementNewsText(user.DisplayName(), category, value, track)
	created, err := s.News.CreateIfAbsent(ctx, &model.News{
		UserID:      userID,
		Title:       title,
		Description: description,
		Date:        time.Now().UTC(),
	})
	if err != nil {
		return failed(StepNews, err)
	}
	if !created {
		return notGranted(StepNews, value)
	}
	return granted(StepNews, value)
}

// LogOutcomes 记录每一步结果并计入指标
func LogOutcomes(runID, userID string, outcomes []CascadeOutcome) {
	for _, o := range outcomes {
		monitoring.CascadeSteps.WithLabelValues(string(o.Step), string(o.Outcome)).Inc()
		fields := []zap.Field{
			zap.String("run_id", runID),
			zap.String("user_id", userID),
			zap.String("step", string(o.Step)),
			zap.String("outcome", string(o.Outcome)),
			zap.Int("value", o.Value),
		}
		switch o.Outcome {
		case OutcomeFailed:
			logger.Log.Error("Progression step failed", append(fields, zap.Error(o.Err))...)
		case OutcomeGranted:
			logger.Log.Info("Progression step granted", fields...)
		default:
			logger.Log.Debug("Progression step skipped", fields...)
		}
	}
}
