package controller

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"sign_learn_backend/internal/service"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const signKeyPrefix = "signs/"

var allowedSignExts = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".gif":  "image/gif",
}

// SignController 教师上传题目使用的手语视频
type SignController struct {
	Storage *service.StorageService
}

func NewSignController(storage *service.StorageService) *SignController {
	return &SignController{Storage: storage}
}

// Upload godoc
// @Summary 上传手语视频
// @Description 返回的 key 写入题目的 sign 字段，url 为当前可访问地址
// @Tags 手语视频
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "视频文件"
// @Success 201 {object} util.Response{data=map[string]string}
// @Failure 400 {object} util.Response "文件为空或类型不支持"
// @Router /api/signs [post]
func (c *SignController) Upload(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := allowedSignExts[ext]
	if !ok {
		util.BadRequest(ctx, "unsupported file type")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	key := signKeyPrefix + uuid.NewString() + ext
	if _, err := c.Storage.Upload(ctx.Request.Context(), key, src, file.Size, contentType); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"key": key,
		"url": c.Storage.ResolveSign(ctx.Request.Context(), key),
	})
}

// Delete godoc
// @Summary 删除手语视频
// @Tags 手语视频
// @Produce json
// @Security ApiKeyAuth
// @Param name path string true "文件名"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "文件不存在"
// @Router /api/signs/{name} [delete]
func (c *SignController) Delete(ctx *gin.Context) {
	name := ctx.Param("name")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		util.BadRequest(ctx, "invalid file name")
		return
	}

	if err := c.Storage.Delete(ctx.Request.Context(), signKeyPrefix+name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": signKeyPrefix + name})
}

// Resolve godoc
// @Summary 解析手语视频地址
// @Tags 手语视频
// @Produce json
// @Param ref query string true "sign 字段的值"
// @Success 200 {object} util.Response{data=map[string]string}
// @Router /api/signs/resolve [get]
func (c *SignController) Resolve(ctx *gin.Context) {
	ref := ctx.Query("ref")
	if ref == "" {
		util.Error(ctx, http.StatusBadRequest, "ref is required")
		return
	}
	util.Success(ctx, gin.H{"url": c.Storage.ResolveSign(ctx.Request.Context(), ref)})
}
