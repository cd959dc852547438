package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

type SetQuizStatusReq struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// @Summary 测验列表（出题端）
// @Description 教师只返回自己的测验，管理员返回全部，包含未启用的测验
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	quizzes, err := c.QuizService.ListQuizzes(ctx.Request.Context(), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// @Summary 测验详情（含答案）
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), ctx.Param("id"), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 创建测验
// @Description 可同时提交初始题目，所有校验错误一并返回
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.CreateQuizReq true "测验信息"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	var req service.CreateQuizReq
	if !bindJSON(ctx, &req) {
		return
	}

	quiz, err := c.QuizService.CreateQuiz(ctx.Request.Context(), p, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// @Summary 更新测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param request body service.UpdateQuizReq true "需要修改的字段"
// @Success 200 {object} util.Response
// @Router /quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	var req service.UpdateQuizReq
	if !bindJSON(ctx, &req) {
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(ctx.Request.Context(), ctx.Param("id"), p, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 删除测验
// @Description 题目一并删除，已有作答记录保留
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	if err := c.QuizService.DeleteQuiz(ctx.Request.Context(), ctx.Param("id"), p); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 启用/停用测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param request body SetQuizStatusReq true "是否启用"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/status [patch]
func (c *QuizController) SetQuizStatus(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	var req SetQuizStatusReq
	if !bindJSON(ctx, &req) {
		return
	}

	quiz, err := c.QuizService.SetQuizActive(ctx.Request.Context(), ctx.Param("id"), p, *req.IsActive)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 添加题目
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param request body service.QuestionReq true "题目"
// @Success 201 {object} util.Response
// @Router /quizzes/{id}/questions [post]
func (c *QuizController) AddQuestion(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	var req service.QuestionReq
	if !bindJSON(ctx, &req) {
		return
	}

	question, err := c.QuizService.AddQuestion(ctx.Request.Context(), ctx.Param("id"), p, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

// @Summary 修改题目
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param questionId path string true "题目ID"
// @Param request body service.QuestionPatchReq true "需要修改的字段"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/questions/{questionId} [patch]
func (c *QuizController) UpdateQuestion(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	var req service.QuestionPatchReq
	if !bindJSON(ctx, &req) {
		return
	}

	question, err := c.QuizService.UpdateQuestion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("questionId"), p, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

// @Summary 删除题目
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param questionId path string true "题目ID"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/questions/{questionId} [delete]
func (c *QuizController) DeleteQuestion(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	if err := c.QuizService.DeleteQuestion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("questionId"), p); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
