package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

// @Summary 复习闪卡
// @Description 根据已完成的作答生成，答错的题目标记为 hard
// @Tags 复习
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /student/flashcards [get]
func (c *ReviewController) GetFlashcards(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	cards, err := c.ReviewService.CreateFlashcards(ctx.Request.Context(), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cards)
}

// @Summary 导出闪卡
// @Description 以 JSON 文件写入对象存储，返回访问地址
// @Tags 复习
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /student/flashcards/export [post]
func (c *ReviewController) ExportFlashcards(ctx *gin.Context) {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return
	}

	export, err := c.ReviewService.ExportFlashcards(ctx.Request.Context(), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, export)
}

// @Summary 生成练习测验
// @Description 占位实现，返回固定格式的示例题目，不保存
// @Tags 复习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.PracticeTestReq true "主题、难度与题目数量"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /student/practice-test [post]
func (c *ReviewController) CreatePracticeTest(ctx *gin.Context) {
	if _, ok := currentPrincipal(ctx); !ok {
		return
	}

	var req service.PracticeTestReq
	if !bindJSON(ctx, &req) {
		return
	}

	quiz, err := c.ReviewService.CreatePracticeTest(req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}
