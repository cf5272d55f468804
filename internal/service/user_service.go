package service

import (
	"context"
	"regexp"
	"strconv"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"
)

type profileStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	Follow(ctx context.Context, followerID, followeeID string) error
}

type earnedAchievements interface {
	FindByUserID(ctx context.Context, userID string) ([]model.Achievement, error)
}

type AchievementBrief struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Value int    `json:"value"`
	Type  string `json:"type"`
}

// Progress 指定轨道下的等级进度，totalSkills 为升到下一级所需技能点
type Progress struct {
	Track           string            `json:"track"`
	Streak          int               `json:"streak"`
	Level           int               `json:"level"`
	SkillsProgress  int               `json:"skillsProgress"`
	TotalSkills     int               `json:"totalSkills"`
	LastAchievement *AchievementBrief `json:"lastAchievement"`
}

type LanguageStatus struct {
	Lesco bool   `json:"lesco"`
	Track string `json:"track"`
}

type UserService struct {
	Users        profileStore
	Achievements earnedAchievements
}

func NewUserService(users profileStore, achievements earnedAchievements) *UserService {
	return &UserService{Users: users, Achievements: achievements}
}

var firstNumber = regexp.MustCompile(`\d+`)

// achievementValue 成就内容中的第一个数字，没有则为 0
func achievementValue(content string) int {
	match := firstNumber.FindString(content)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

func (s *UserService) Progress(ctx context.Context, userID string, track model.Track) (*Progress, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	level, skills := user.TrackProgress(track)

	progress := &Progress{
		Track:          track.Label(),
		Streak:         user.StreakCurrent,
		Level:          level,
		SkillsProgress: skills,
		TotalSkills:    level + 1,
	}

	earned, err := s.Achievements.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	// 按授予时间升序，取该轨道最后一个
	for i := len(earned) - 1; i >= 0; i-- {
		a := earned[i]
		if model.Track(a.Type) != track {
			continue
		}
		title := a.Name
		if title == "" {
			title = "Logro"
		}
		progress.LastAchievement = &AchievementBrief{
			ID:    a.ID,
			Title: title,
			Value: achievementValue(a.Content),
			Type:  track.Label(),
		}
		break
	}
	return progress, nil
}

func (s *UserService) LanguageStatus(track model.Track) LanguageStatus {
	return LanguageStatus{Lesco: track == model.TrackLesco, Track: track.Label()}
}

// Follow 关注后对方的新闻会出现在自己的动态里
func (s *UserService) Follow(ctx context.Context, followerID, followeeID string) error {
	if err := requireID("userId", followerID); err != nil {
		return err
	}
	if err := requireID("followeeId", followeeID); err != nil {
		return err
	}
	if followerID == followeeID {
		return util.NewValidationError("followeeId", "cannot follow yourself")
	}
	if _, err := s.Users.FindByID(ctx, followeeID); err != nil {
		return err
	}
	return s.Users.Follow(ctx, followerID, followeeID)
}
