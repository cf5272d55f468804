package controller

import (
	"sign_learn_backend/internal/middleware"
	"sign_learn_backend/internal/service"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// FollowRequest defines model for following a user
// swagger:model FollowRequest
type FollowRequest struct {
	FolloweeID string `json:"followeeId"`
}

// GetProgress godoc
// @Summary 用户等级进度
// @Description 当前轨道下的连续天数、等级、技能点和升级所需技能点
// @Tags 用户
// @Produce json
// @Param id path string true "用户 ID"
// @Param X-Track header string false "lesco 或 libras"
// @Success 200 {object} util.Response{data=service.Progress}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/{id}/progress [get]
func (c *UserController) GetProgress(ctx *gin.Context) {
	progress, err := c.UserService.Progress(ctx.Request.Context(), ctx.Param("id"), middleware.TrackFrom(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// Follow godoc
// @Summary 关注用户
// @Tags 用户
// @Accept json
// @Produce json
// @Param id path string true "用户 ID"
// @Param body body FollowRequest true "被关注的用户"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "参数错误"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/users/{id}/follow [post]
func (c *UserController) Follow(ctx *gin.Context) {
	var req FollowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	userID := ctx.Param("id")
	if err := util.AuthorizeSubject(ctx, userID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	if err := c.UserService.Follow(ctx.Request.Context(), userID, req.FolloweeID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"following": req.FolloweeID})
}

// LanguageStatus godoc
// @Summary 当前轨道
// @Description 未指定 X-Track 时返回配置的默认轨道
// @Tags 用户
// @Produce json
// @Param X-Track header string false "lesco 或 libras"
// @Success 200 {object} service.LanguageStatus
// @Router /api/language/status [get]
func (c *UserController) LanguageStatus(ctx *gin.Context) {
	ctx.JSON(200, c.UserService.LanguageStatus(middleware.TrackFrom(ctx)))
}
