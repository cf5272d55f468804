package controller

import (
	"strconv"

	"sign_learn_backend/internal/service"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NewsController struct {
	NewsService *service.NewsService
}

func NewNewsController(newsService *service.NewsService) *NewsController {
	return &NewsController{NewsService: newsService}
}

// LikeRequest action 为 like 或 unlike，缺省为 like
// swagger:model LikeRequest
type LikeRequest struct {
	NewsID string `json:"newsId"`
	UserID string `json:"userId"`
	Action string `json:"action"`
}

// CommentRequest defines model for news comments
// swagger:model CommentRequest
type CommentRequest struct {
	NewsID  string `json:"newsId"`
	UserID  string `json:"userId"`
	Comment string `json:"comment"`
}

func queryLimit(ctx *gin.Context) (int, error) {
	raw := ctx.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, util.NewValidationError("limit", "must be an integer")
	}
	return limit, nil
}

// Feed godoc
// @Summary 新闻动态
// @Description 自己与关注的人发布的新闻，最新在前，before 为上一页最后一条的 ID
// @Tags 新闻
// @Produce json
// @Param userId query string true "用户 ID"
// @Param limit query int false "条数，默认 20，最大 50"
// @Param before query string false "游标"
// @Success 200 {object} util.Response{data=[]service.FeedItem}
// @Failure 400 {object} util.Response "参数错误"
// @Router /api/news/feed [get]
func (c *NewsController) Feed(ctx *gin.Context) {
	userID := ctx.Query("userId")
	limit, err := queryLimit(ctx)
	if err == nil {
		err = util.AuthorizeSubject(ctx, userID)
	}
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	items, err := c.NewsService.Feed(ctx.Request.Context(), userID, ctx.Query("before"), limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// ToggleLike godoc
// @Summary 点赞或取消点赞
// @Tags 新闻
// @Accept json
// @Produce json
// @Param body body LikeRequest true "新闻、用户与动作"
// @Success 200 {object} util.Response{data=service.LikeResult}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "新闻不存在"
// @Router /api/news/like [post]
func (c *NewsController) ToggleLike(ctx *gin.Context) {
	var req LikeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := util.AuthorizeSubject(ctx, req.UserID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	res, err := c.NewsService.ToggleLike(ctx.Request.Context(), req.NewsID, req.UserID, req.Action)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// AddComment godoc
// @Summary 发表评论
// @Tags 新闻
// @Accept json
// @Produce json
// @Param body body CommentRequest true "评论内容，1-500 字"
// @Success 201 {object} util.Response{data=service.CommentView}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "新闻不存在"
// @Router /api/news/comment [post]
func (c *NewsController) AddComment(ctx *gin.Context) {
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := util.AuthorizeSubject(ctx, req.UserID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	view, err := c.NewsService.AddComment(ctx.Request.Context(), req.NewsID, req.UserID, req.Comment)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// Comments godoc
// @Summary 评论列表
// @Tags 新闻
// @Produce json
// @Param newsId query string true "新闻 ID"
// @Param limit query int false "条数"
// @Param before query string false "游标"
// @Success 200 {object} util.Response{data=[]service.CommentItem}
// @Failure 400 {object} util.Response "参数错误"
// @Router /api/news/comments [get]
func (c *NewsController) Comments(ctx *gin.Context) {
	limit, err := queryLimit(ctx)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	items, err := c.NewsService.Comments(ctx.Request.Context(), ctx.Query("newsId"), ctx.Query("before"), limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// PublishActivity godoc
// @Summary 发布练习成绩新闻
// @Tags 新闻
// @Accept json
// @Produce json
// @Param body body service.ActivityRequest true "成绩"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "课程或课时不存在"
// @Router /api/news/activity [post]
func (c *NewsController) PublishActivity(ctx *gin.Context) {
	var req service.ActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := util.AuthorizeSubject(ctx, req.UserID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	if err := c.NewsService.PublishActivity(ctx.Request.Context(), req); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"ok": true})
}
