package controller

import (
	"net/http"

	"sign_learn_backend/internal/service"
	"sign_learn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ExerciseController 练习接口直接返回业务 JSON，错误为 {"error": ...}
type ExerciseController struct {
	Runs *service.ExerciseRunService
}

func NewExerciseController(runs *service.ExerciseRunService) *ExerciseController {
	return &ExerciseController{Runs: runs}
}

// RunRequest finish / cancel 请求体
// swagger:model RunRequest
type RunRequest struct {
	RunID string `json:"runId"`
}

// SkipRequest questionId 为空时跳过当前题
// swagger:model SkipRequest
type SkipRequest struct {
	RunID      string `json:"runId"`
	QuestionID string `json:"questionId"`
}

func bindRaw(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		util.AbortRaw(ctx, util.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// authorizeRun 携带令牌时，只有练习所属用户可以操作
func (c *ExerciseController) authorizeRun(ctx *gin.Context, runID string) bool {
	if util.GetUserFromContext(ctx) == nil {
		return true
	}
	owner, err := c.Runs.Owner(runID)
	if err == nil {
		err = util.AuthorizeSubject(ctx, owner)
	}
	if err != nil {
		util.AbortRaw(ctx, err)
		return false
	}
	return true
}

// Start godoc
// @Summary 开始练习
// @Description 占用一次尝试次数并返回固定顺序的题目（不含答案）
// @Tags 练习
// @Accept json
// @Produce json
// @Param body body service.StartRequest true "用户、课程与课时"
// @Success 200 {object} service.StartResult
// @Failure 400 {object} object "参数错误或课时没有题目"
// @Failure 403 {object} object "次数已用完"
// @Failure 404 {object} object "课程或课时不存在"
// @Failure 409 {object} object "已有进行中的练习，附带 runId 与 currentIndex"
// @Router /api/exercises/start [post]
func (c *ExerciseController) Start(ctx *gin.Context) {
	var req service.StartRequest
	if !bindRaw(ctx, &req) {
		return
	}
	if err := util.AuthorizeSubject(ctx, req.UserID); err != nil {
		util.AbortRaw(ctx, err)
		return
	}

	res, err := c.Runs.Start(ctx.Request.Context(), req)
	if err != nil {
		util.AbortRaw(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Answer godoc
// @Summary 提交答案
// @Tags 练习
// @Accept json
// @Produce json
// @Param body body service.AnswerRequest true "runId、可选 questionId 与答案"
// @Success 200 {object} service.AnswerResult
// @Failure 400 {object} object "参数错误"
// @Failure 404 {object} object "练习不存在或已结束"
// @Router /api/exercises/answer [post]
func (c *ExerciseController) Answer(ctx *gin.Context) {
	var req service.AnswerRequest
	if !bindRaw(ctx, &req) || !c.authorizeRun(ctx, req.RunID) {
		return
	}

	res, err := c.Runs.Answer(ctx.Request.Context(), req)
	if err != nil {
		util.AbortRaw(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Skip godoc
// @Summary 跳过题目
// @Description 总是返回正确答案；已作答的题不能跳过
// @Tags 练习
// @Accept json
// @Produce json
// @Param body body SkipRequest true "runId 与可选 questionId"
// @Success 200 {object} service.AnswerResult
// @Failure 404 {object} object "练习不存在或已结束"
// @Failure 409 {object} object "题目已作答"
// @Router /api/exercises/skip [post]
func (c *ExerciseController) Skip(ctx *gin.Context) {
	var req SkipRequest
	if !bindRaw(ctx, &req) || !c.authorizeRun(ctx, req.RunID) {
		return
	}

	res, err := c.Runs.Skip(ctx.Request.Context(), req.RunID, req.QuestionID)
	if err != nil {
		util.AbortRaw(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Finish godoc
// @Summary 完成练习
// @Description 记录最佳成绩、首次满分奖励技能点并触发成就
// @Tags 练习
// @Accept json
// @Produce json
// @Param body body RunRequest true "runId"
// @Success 200 {object} service.FinishResult
// @Failure 404 {object} object "练习不存在或已结束"
// @Router /api/exercises/finish [post]
func (c *ExerciseController) Finish(ctx *gin.Context) {
	var req RunRequest
	if !bindRaw(ctx, &req) || !c.authorizeRun(ctx, req.RunID) {
		return
	}

	res, err := c.Runs.Finish(ctx.Request.Context(), req.RunID)
	if err != nil {
		util.AbortRaw(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Cancel godoc
// @Summary 取消练习
// @Description 不退还已扣除的次数
// @Tags 练习
// @Accept json
// @Produce json
// @Param body body RunRequest true "runId"
// @Success 200 {object} service.CancelResult
// @Failure 404 {object} object "练习不存在或已结束"
// @Router /api/exercises/cancel [post]
func (c *ExerciseController) Cancel(ctx *gin.Context) {
	var req RunRequest
	if !bindRaw(ctx, &req) || !c.authorizeRun(ctx, req.RunID) {
		return
	}

	res, err := c.Runs.Cancel(ctx.Request.Context(), req.RunID)
	if err != nil {
		util.AbortRaw(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Status godoc
// @Summary 练习状态
// @Tags 练习
// @Produce json
// @Param runId query string true "练习 ID"
// @Success 200 {object} service.StatusResult
// @Failure 404 {object} object "练习不存在或已结束"
// @Router /api/exercises/status [get]
func (c *ExerciseController) Status(ctx *gin.Context) {
	runID := ctx.Query("runId")
	if runID == "" {
		util.AbortRaw(ctx, util.NewValidationError("runId", "runId is required"))
		return
	}
	if !c.authorizeRun(ctx, runID) {
		return
	}

	res, err := c.Runs.Status(ctx.Request.Context(), runID)
	if err != nil {
		util.AbortRaw(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// Items godoc
// @Summary 课时题目列表
// @Description 与练习无关，题目按 (order, _id) 排序且不含答案
// @Tags 练习
// @Produce json
// @Param courseId query string true "课程 ID"
// @Param lessonId query string true "课时 ID"
// @Success 200 {object} service.ItemsResult
// @Failure 400 {object} object "参数错误"
// @Failure 404 {object} object "课程或课时不存在"
// @Router /api/exercises/items [get]
func (c *ExerciseController) Items(ctx *gin.Context) {
	res, err := c.Runs.Items(ctx.Request.Context(), ctx.Query("courseId"), ctx.Query("lessonId"))
	if err != nil {
		util.AbortRaw(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}
