package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentQuizController struct {
	StudentQuizService *service.StudentQuizService
}

func NewStudentQuizController(s *service.StudentQuizService) *StudentQuizController {
	return &StudentQuizController{StudentQuizService: s}
}

// @Summary 可参加的测验
// @Description 仅返回已启用的测验，不含答案与解析
// @Tags 学生测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /student/quizzes [get]
func (c *StudentQuizController) ListAvailableQuizzes(ctx *gin.Context) {
	if _, ok := currentPrincipal(ctx); !ok {
		return
	}

	quizzes, err := c.StudentQuizService.ListAvailableQuizzes(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary 单个测验（学生视图）
// @Tags 学生测验
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/quizzes/{quizId} [get]
func (c *StudentQuizController) GetAvailableQuiz(ctx *gin.Context) {
	if _, ok := currentPrincipal(ctx); !ok {
		return
	}

	quiz, err := c.StudentQuizService.GetAvailableQuiz(ctx.Request.Context(), ctx.Param("quizId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 开始作答
// @Description 已有未完成的作答时直接返回该作答
// @Tags 学生测验
// @Produce json
// @Security ApiKeyAuth
// @Param quizId path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /student/quizzes/{quizId}/attempt [post]
func (c *StudentQuizController) StartAttempt(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	attempt, err := c.StudentQuizService.StartQuizAttempt(ctx.Request.Context(), ctx.Param("quizId"), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 提交单题答案
// @Tags 学生测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Param request body service.SubmitAnswerReq true "答案"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/attempts/{id}/answer [patch]
func (c *StudentQuizController) SubmitAnswer(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	var req service.SubmitAnswerReq
	if !bindJSON(ctx, &req) {
		return
	}

	attempt, err := c.StudentQuizService.SubmitAnswer(ctx.Request.Context(), ctx.Param("id"), p, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 完成作答并评分
// @Tags 学生测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /student/attempts/{id}/complete [post]
func (c *StudentQuizController) CompleteAttempt(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	result, err := c.StudentQuizService.CompleteQuizAttempt(ctx.Request.Context(), ctx.Param("id"), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.SuccessWithPercentage(ctx, result, result.Percentage)
}

// @Summary 作答历史
// @Tags 学生测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /student/history [get]
func (c *StudentQuizController) GetHistory(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	history, err := c.StudentQuizService.GetQuizHistory(ctx.Request.Context(), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// @Summary 作答详情
// @Description 作答完成后才返回逐题对错与标准答案
// @Tags 学生测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /student/attempts/{id} [get]
func (c *StudentQuizController) GetAttemptDetails(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	detail, err := c.StudentQuizService.GetAttemptDetails(ctx.Request.Context(), ctx.Param("id"), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}
