package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sign_learn_backend/internal/model"
	"sign_learn_backend/internal/util"
	"sign_learn_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultNewsLimit = 20
	LikeAction       = "like"
	UnlikeAction     = "unlike"
)

type newsStore interface {
	Create(ctx context.Context, news *model.News) error
	CreateIfAbsent(ctx context.Context, news *model.News) (bool, error)
	FindByID(ctx context.Context, id string) (*model.News, error)
	Feed(ctx context.Context, authorIDs []string, beforeID string, limit int) ([]model.News, error)
	Like(ctx context.Context, newsID, userID string) (bool, error)
	Unlike(ctx context.Context, newsID, userID string) (bool, error)
	LikedBy(ctx context.Context, userID string, newsIDs []string) (map[string]bool, error)
	AddComment(ctx context.Context, comment *model.NewsComment) error
	Comments(ctx context.Context, newsID, beforeID string, limit int) ([]model.NewsComment, error)
	LastComments(ctx context.Context, newsIDs []string) (map[string]*model.NewsComment, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FolloweeIDs(ctx context.Context, userID string) ([]string, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
}

// achievementNewsText 里程碑成就对应的新闻标题与描述
func achievementNewsText(userName string, category milestoneCategory, value int, track model.Track) (string, string) {
	switch category {
	case categoryLevel:
		return fmt.Sprintf("¡%s acaba de subir a nivel %d!", userName, value), fmt.Sprintf("¡Felicidades! Progreso en %s.", track.Label())
	case categoryCourses:
		return fmt.Sprintf("¡%s completó %d cursos!", userName, value), fmt.Sprintf("Sigue así, avanzando en %s.", track.Label())
	case categoryAchievements:
		return fmt.Sprintf("¡%s alcanzó %d logros!", userName, value), "¡Gran constancia y dedicación!"
	}
	return fmt.Sprintf("¡%s consiguió un nuevo logro!", userName), ""
}

func unsubscribeNewsText(userName, courseName string) (string, string) {
	if courseName == "" {
		courseName = "un curso"
	}
	return fmt.Sprintf("%s dejó el curso %s", userName, courseName), "¡No te rindas!"
}

// activityNewsText 描述按正确率分档
func activityNewsText(userName, courseName, lessonName string, correct, total int) (string, string) {
	if courseName == "" {
		courseName = "un curso"
	}
	if lessonName == "" {
		lessonName = "una lección"
	}
	title := fmt.Sprintf("%s obtuvo %d/%d en la lección %s del curso %s", userName, correct, total, lessonName, courseName)

	ratio := 0.0
	if total > 0 {
		ratio = float64(correct) / float64(total)
	}
	switch {
	case ratio >= 0.9:
		return title, "¡Excelente trabajo!"
	case ratio >= 0.6:
		return title, "Buen desempeño, sigue mejorando."
	}
	return title, "No te preocupes, la práctica hace al maestro."
}

// Initials 名字前两个单词的首字母，空名返回 "US"
func Initials(name string) string {
	var b strings.Builder
	for i, part := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "US"
	}
	return strings.ToUpper(b.String())
}

type UserBrief struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Initials string `json:"initials"`
}

func briefOf(id string, user *model.User) UserBrief {
	name := user.DisplayName()
	return UserBrief{ID: id, Name: name, Initials: Initials(name)}
}

type LastComment struct {
	ID      string     `json:"_id"`
	Comment string     `json:"comment"`
	Date    string     `json:"date"`
	User    *UserBrief `json:"user"`
}

type FeedItem struct {
	ID          string       `json:"_id"`
	UserID      string       `json:"userId"`
	Author      UserBrief    `json:"author"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Likes       int          `json:"likes"`
	LikedByMe   bool         `json:"likedByMe"`
	Date        string       `json:"date"`
	LastComment *LastComment `json:"lastComment"`
}

type LikeResult struct {
	Likes     int  `json:"likes"`
	LikedByMe bool `json:"likedByMe"`
}

type CommentView struct {
	ID      string    `json:"_id"`
	Comment string    `json:"comment"`
	UserID  string    `json:"userId"`
	User    UserBrief `json:"user"`
	Date    string    `json:"date"`
}

type CommentItem struct {
	ID          string `json:"_id"`
	Comment     string `json:"comment"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Initials    string `json:"initials"`
	Date        string `json:"date"`
}

type ActivityRequest struct {
	UserID   string `json:"userId"`
	CourseID string `json:"courseId"`
	LessonID string `json:"lessonId"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}

type NewsService struct {
	News          newsStore
	Users         userDirectory
	Courses       CourseStore
	MaxLimit      int
	MaxCommentLen int
}

func NewNewsService(news newsStore, users userDirectory, courses CourseStore, maxLimit, maxCommentLen int) *NewsService {
	return &NewsService{
		News:          news,
		Users:         users,
		Courses:       courses,
		MaxLimit:      maxLimit,
		MaxCommentLen: maxCommentLen,
	}
}

// ClampLimit limit <= 0 时取默认值，超过上限时截断
func (s *NewsService) ClampLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultNewsLimit
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return limit
}

func requireID(field, value string) error {
	if !model.IsValidID(value) {
		return util.NewValidationError(field, "must be a 24-character hex id")
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(util.ISOTimeFormat)
}

// Feed 关注的人和自己发布的新闻，最新的在前
func (s *NewsService) Feed(ctx context.Context, userID, beforeID string, limit int) ([]FeedItem, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	if beforeID != "" {
		if err := requireID("before", beforeID); err != nil {
			return nil, err
		}
	}

	authors, err := s.Users.FolloweeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	authors = append(authors, userID)

	list, err := s.News.Feed(ctx, authors, beforeID, s.ClampLimit(limit))
	if err != nil {
		return nil, err
	}

	newsIDs := make([]string, 0, len(list))
	for i := range list {
		newsIDs = append(newsIDs, list[i].ID)
	}
	liked, err := s.News.LikedBy(ctx, userID, newsIDs)
	if err != nil {
		return nil, err
	}
	lastComments, err := s.News.LastComments(ctx, newsIDs)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(list)*2)
	for i := range list {
		userIDs = append(userIDs, list[i].UserID)
		if c, ok := lastComments[list[i].ID]; ok {
			userIDs = append(userIDs, c.UserID)
		}
	}
	users, err := s.Users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]FeedItem, 0, len(list))
	for i := range list {
		n := &list[i]
		item := FeedItem{
			ID:          n.ID,
			UserID:      n.UserID,
			Author:      briefOf(n.UserID, users[n.UserID]),
			Title:       n.Title,
			Description: n.Description,
			Likes:       n.Likes,
			LikedByMe:   liked[n.ID],
			Date:        formatTime(n.Date),
		}
		if c, ok := lastComments[n.ID]; ok {
			author := briefOf(c.UserID, users[c.UserID])
			item.LastComment = &LastComment{
				ID:      c.ID,
				Comment: c.Comment,
				Date:    formatTime(c.Date),
				User:    &author,
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// ToggleLike action 为 like 或 unlike，重复操作不改变计数
func (s *NewsService) ToggleLike(ctx context.Context, newsID, userID, action string) (*LikeResult, error) {
	if err := requireID("newsId", newsID); err != nil {
		return nil, err
	}
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		action = LikeAction
	}
	if action != LikeAction && action != UnlikeAction {
		return nil, util.NewValidationError("", "action must be 'like' or 'unlike'")
	}

	if _, err := s.News.FindByID(ctx, newsID); err != nil {
		return nil, err
	}

	var err error
	if action == LikeAction {
		_, err = s.News.Like(ctx, newsID, userID)
	} else {
		_, err = s.News.Unlike(ctx, newsID, userID)
	}
	if err != nil {
		return nil, err
	}

	news, err := s.News.FindByID(ctx, newsID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Likes: news.Likes, LikedByMe: action == LikeAction}, nil
}

func (s *NewsService) AddComment(ctx context.Context, newsID, userID, text string) (*CommentView, error) {
	if err := requireID("newsId", newsID); err != nil {
		return nil, err
	}
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, util.NewValidationError("", "comment required")
	}
	if s.MaxCommentLen > 0 && utf8.RuneCountInString(text) > s.MaxCommentLen {
		return nil, util.NewValidationError("", fmt.Sprintf("comment too long (max %d)", s.MaxCommentLen))
	}

	if _, err := s.News.FindByID(ctx, newsID); err != nil {
		return nil, err
	}

	comment := &model.NewsComment{
		NewsID:  newsID,
		UserID:  userID,
		Comment: text,
		Date:    time.Now().UTC(),
	}
	if err := s.News.AddComment(ctx, comment); err != nil {
		return nil, err
	}

	author, err := s.Users.FindByID(ctx, userID)
	if err != nil && !util.IsNotFound(err) {
		return nil, err
	}
	return &CommentView{
		ID:      comment.ID,
		Comment: comment.Comment,
		UserID:  userID,
		User:    briefOf(userID, author),
		Date:    formatTime(comment.Date),
	}, nil
}

func (s *NewsService) Comments(ctx context.Context, newsID, beforeID string, limit int) ([]CommentItem, error) {
	if err := requireID("newsId", newsID); err != nil {
		return nil, err
	}
	if beforeID != "" {
		if err := requireID("before", beforeID); err != nil {
			return nil, err
		}
	}

	list, err := s.News.Comments(ctx, newsID, beforeID, s.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	userIDs := make([]string, 0, len(list))
	for i := range list {
		userIDs = append(userIDs, list[i].UserID)
	}
	users, err := s.Users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]CommentItem, 0, len(list))
	for i := range list {
		c := &list[i]
		brief := briefOf(c.UserID, users[c.UserID])
		items = append(items, CommentItem{
			ID:          c.ID,
			Comment:     c.Comment,
			UserID:      c.UserID,
			DisplayName: brief.Name,
			Initials:    brief.Initials,
			Date:        formatTime(c.Date),
		})
	}
	return items, nil
}

// PublishActivity 前端完成一节课后发布成绩新闻
func (s *NewsService) PublishActivity(ctx context.Context, req ActivityRequest) error {
	for field, value := range map[string]string{
		"userId":   req.UserID,
		"courseId": req.CourseID,
		"lessonId": req.LessonID,
	} {
		if err := requireID(field, value); err != nil {
			return err
		}
	}

	course, lesson, err := s.Courses.FindCourseWithLesson(ctx, req.CourseID, req.LessonID)
	if err != nil {
		return err
	}

	user, err := s.Users.FindByID(ctx, req.UserID)
	if err != nil && !util.IsNotFound(err) {
		return err
	}
	title, description := activityNewsText(user.DisplayName(), course.Name, lesson.Name, req.Correct, req.Total)
	if err := s.News.Create(ctx, &model.News{
		UserID:      req.UserID,
		Title:       title,
		Description: description,
		Date:        time.Now().UTC(),
	}); err != nil {
		// 成绩新闻发布失败不影响响应
		logger.Log.Error("Failed to create activity news", zap.String("user_id", req.UserID), zap.Error(err))
	}
	return nil
}

// PublishUnsubscribe 退课新闻
func (s *NewsService) PublishUnsubscribe(ctx context.Context, userID string, course *model.Course) error {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil && !util.IsNotFound(err) {
		return err
	}
	title, description := unsubscribeNewsText(user.DisplayName(), course.Name)
	return s.News.Create(ctx, &model.News{
		UserID:      userID,
		Title:       title,
		Description: description,
		Date:        time.Now().UTC(),
	})
}
