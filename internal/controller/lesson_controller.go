package controller

import (
	"sign_learn_backend/internal/service"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	Lessons *service.LessonService
}

func NewLessonController(lessons *service.LessonService) *LessonController {
	return &LessonController{Lessons: lessons}
}

// ListLessons godoc
// @Summary 课程的课时列表
// @Tags 课程
// @Produce json
// @Param courseId path string true "课程 ID"
// @Param userId query string true "用户 ID"
// @Success 200 {object} util.Response{data=service.LessonList}
// @Failure 404 {object} util.Response "用户或课程不存在"
// @Router /api/courses/{courseId}/lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	userID := requestUserID(ctx)
	if err := util.AuthorizeSubject(ctx, userID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	list, err := c.Lessons.ListLessons(ctx.Request.Context(), ctx.Param("courseId"), userID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// LessonInfo godoc
// @Summary 课时详情
// @Description 理论内容、课时尝试上限与当前用户剩余次数（-1 表示不限）
// @Tags 课程
// @Produce json
// @Param lessonId path string true "课时 ID"
// @Param userId query string true "用户 ID"
// @Success 200 {object} util.Response{data=service.LessonInfo}
// @Failure 404 {object} util.Response "用户或课时不存在"
// @Router /api/lessons/{lessonId} [get]
func (c *LessonController) LessonInfo(ctx *gin.Context) {
	userID := requestUserID(ctx)
	if err := util.AuthorizeSubject(ctx, userID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	info, err := c.Lessons.LessonInfo(ctx.Request.Context(), ctx.Param("lessonId"), userID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, info)
}
