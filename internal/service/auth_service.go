package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"sign_learn_backend/internal/config"
	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"
	"sign_learn_backend/pkg/logger"

	"go.uber.org/zap"
)

type identityStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByFirebaseUID(ctx context.Context, uid string) (*model.User, error)
	UpdateStreak(ctx context.Context, userID string, current int, lastConnection time.Time) error
}

type IdentityBrief struct {
	ID          string `json:"id"`
	FirebaseUID string `json:"firebaseUid"`
	Type        bool   `json:"type"`
}

type SyncResult struct {
	Message   string        `json:"message"`
	UserID    string        `json:"userId"`
	IsNewUser bool          `json:"isNewUser"`
	User      IdentityBrief `json:"user"`
	Token     string        `json:"token"`
}

type FirebaseLookup struct {
	UserID      string `json:"userId"`
	FirebaseUID string `json:"firebaseUid"`
	Type        bool   `json:"type"`
}

// AuthService 将外部身份（Firebase uid）同步为本地用户并签发 JWT
type AuthService struct {
	Users identityStore
	Cfg   *config.Config
	Now   func() time.Time
}

func NewAuthService(users identityStore, cfg *config.Config) *AuthService {
	return &AuthService{
		Users: users,
		Cfg:   cfg,
		Now:   time.Now,
	}
}

func (s *AuthService) SyncUser(ctx context.Context, uid string) (*SyncResult, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, util.NewValidationError("uid", "uid is required")
	}
	now := s.Now().UTC()

	user, err := s.Users.FindByFirebaseUID(ctx, uid)
	switch {
	case err == nil:
		// 只刷新最后连接时间，连续天数保持不变
		if err := s.Users.UpdateStreak(ctx, user.ID, user.StreakCurrent, now); err != nil {
			return nil, err
		}
		return s.syncResult(user, false)
	case !errors.Is(err, util.ErrUserNotFound):
		return nil, err
	}

	user = &model.User{FirebaseUID: uid, StreakLastConnection: now}
	if err := s.Users.Create(ctx, user); err != nil {
		// 并发同步同一个 uid 时唯一索引冲突，读回已创建的用户
		existing, findErr := s.Users.FindByFirebaseUID(ctx, uid)
		if findErr != nil {
			return nil, err
		}
		return s.syncResult(existing, false)
	}
	logger.Log.Info("User created from identity sync", zap.String("userId", user.ID))
	return s.syncResult(user, true)
}

func (s *AuthService) syncResult(user *model.User, created bool) (*SyncResult, error) {
	token, err := util.GenerateJWT(user.ID, user.FirebaseUID, user.Type, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	message := "Usuario sincronizado exitosamente"
	if created {
		message = "Usuario creado exitosamente"
	}
	return &SyncResult{
		Message:   message,
		UserID:    user.ID,
		IsNewUser: created,
		User:      IdentityBrief{ID: user.ID, FirebaseUID: user.FirebaseUID, Type: user.Type},
		Token:     token,
	}, nil
}

func (s *AuthService) FindByFirebaseUID(ctx context.Context, uid string) (*FirebaseLookup, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, util.NewValidationError("uid", "uid is required")
	}
	user, err := s.Users.FindByFirebaseUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &FirebaseLookup{UserID: user.ID, FirebaseUID: user.FirebaseUID, Type: user.Type}, nil
}
