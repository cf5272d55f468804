package controller

import (
	"sign_learn_backend/internal/service"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// SyncUserRequest defines model for identity sync
// swagger:model SyncUserRequest
type SyncUserRequest struct {
	UID string `json:"uid"`
}

// SyncUser godoc
// @Summary 同步外部身份
// @Description 按 Firebase uid 查找或创建用户，刷新最后连接时间并签发令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param body body SyncUserRequest true "Firebase uid"
// @Success 200 {object} util.Response{data=service.SyncResult} "已存在的用户"
// @Success 201 {object} util.Response{data=service.SyncResult} "新建的用户"
// @Failure 400 {object} util.Response "缺少 uid"
// @Router /api/auth/sync-user [post]
func (c *AuthController) SyncUser(ctx *gin.Context) {
	var req SyncUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "no data sent")
		return
	}

	res, err := c.AuthService.SyncUser(ctx.Request.Context(), req.UID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if res.IsNewUser {
		util.Created(ctx, res)
		return
	}
	util.Success(ctx, res)
}

// UserByFirebase godoc
// @Summary 按 Firebase uid 查询用户
// @Tags 认证
// @Produce json
// @Param uid path string true "Firebase uid"
// @Success 200 {object} util.Response{data=service.FirebaseLookup}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/auth/user-by-firebase/{uid} [get]
func (c *AuthController) UserByFirebase(ctx *gin.Context) {
	res, err := c.AuthService.FindByFirebaseUID(ctx.Request.Context(), ctx.Param("uid"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
