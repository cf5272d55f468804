package controller

import (
	"sign_learn_backend/internal/middleware"
	"sign_learn_backend/internal/service"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Enrollments *service.EnrollmentService
}

func NewCourseController(enrollments *service.EnrollmentService) *CourseController {
	return &CourseController{Enrollments: enrollments}
}

// EnrollRequest userId 也可以放在查询参数里
// swagger:model EnrollRequest
type EnrollRequest struct {
	UserID string `json:"userId"`
}

// requestUserID 依次读取查询参数、请求体、令牌
func requestUserID(ctx *gin.Context) string {
	if id := ctx.Query("userId"); id != "" {
		return id
	}
	if ctx.Request.ContentLength > 0 {
		var req EnrollRequest
		if err := ctx.ShouldBindJSON(&req); err == nil && req.UserID != "" {
			return req.UserID
		}
	}
	if claims := util.GetUserFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// Enroll godoc
// @Summary 选课
// @Description 只有学生可以选课，课程必须公开
// @Tags 课程
// @Accept json
// @Produce json
// @Param courseId path string true "课程 ID"
// @Param userId query string false "用户 ID"
// @Param body body EnrollRequest false "用户 ID"
// @Success 201 {object} util.Response{data=service.EnrollResult}
// @Failure 403 {object} util.Response "非学生或课程未公开"
// @Failure 404 {object} util.Response "用户或课程不存在"
// @Failure 409 {object} util.Response "已选该课程"
// @Router /api/courses/{courseId}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	userID := requestUserID(ctx)
	if err := util.AuthorizeSubject(ctx, userID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	res, err := c.Enrollments.Enroll(ctx.Request.Context(), userID, ctx.Param("courseId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, res)
}

// Unenroll godoc
// @Summary 退课
// @Description 删除选课与课时进度，未完成的课程会发布一条退课新闻
// @Tags 课程
// @Produce json
// @Param courseId path string true "课程 ID"
// @Param userId query string false "用户 ID"
// @Success 200 {object} util.Response{data=service.UnenrollResult}
// @Failure 403 {object} util.Response "非学生"
// @Failure 404 {object} util.Response "未选该课程"
// @Router /api/courses/{courseId}/enroll [delete]
func (c *CourseController) Unenroll(ctx *gin.Context) {
	userID := requestUserID(ctx)
	if err := util.AuthorizeSubject(ctx, userID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	res, err := c.Enrollments.Unenroll(ctx.Request.Context(), userID, ctx.Param("courseId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// MyCourses godoc
// @Summary 我的课程
// @Tags 课程
// @Produce json
// @Param userId query string true "用户 ID"
// @Param X-Track header string false "lesco 或 libras"
// @Success 200 {object} util.Response{data=service.CourseList}
// @Router /api/courses/mine [get]
func (c *CourseController) MyCourses(ctx *gin.Context) {
	userID := requestUserID(ctx)
	if err := util.AuthorizeSubject(ctx, userID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	list, err := c.Enrollments.MyCourses(ctx.Request.Context(), userID, middleware.TrackFrom(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// AvailableCourses godoc
// @Summary 可选课程
// @Description 当前轨道下尚未选的公开课程
// @Tags 课程
// @Produce json
// @Param userId query string true "用户 ID"
// @Param X-Track header string false "lesco 或 libras"
// @Success 200 {object} util.Response{data=service.CourseList}
// @Router /api/courses/available [get]
func (c *CourseController) AvailableCourses(ctx *gin.Context) {
	userID := requestUserID(ctx)
	if err := util.AuthorizeSubject(ctx, userID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	list, err := c.Enrollments.AvailableCourses(ctx.Request.Context(), userID, middleware.TrackFrom(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
