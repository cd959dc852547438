package app

import (
	"learnhub_backend/docs"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const swaggerPrefix = "/swagger/"

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET(swaggerPrefix+"*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		// 出题接口
		a.registerTeacherRoutes(authGroup, c)

		// 学生作答与复习接口
		a.registerStudentRoutes(authGroup, c)
	}

	// 本地存储时导出的闪卡文件由静态路由提供
	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	quizzes := rg.Group("/quizzes")
	quizzes.Use(middleware.RoleMiddleware(model.Teacher))
	{
		quizzes.GET("", c.quiz.ListQuizzes)
		quizzes.POST("", c.quiz.CreateQuiz)
		quizzes.GET("/:id", c.quiz.GetQuiz)
		quizzes.PUT("/:id", c.quiz.UpdateQuiz)
		quizzes.DELETE("/:id", c.quiz.DeleteQuiz)
		quizzes.PATCH("/:id/status", c.quiz.SetQuizStatus)

		quizzes.POST("/:id/questions", c.quiz.AddQuestion)
		quizzes.PATCH("/:id/questions/:questionId", c.quiz.UpdateQuestion)
		quizzes.DELETE("/:id/questions/:questionId", c.quiz.DeleteQuestion)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/student")
	{
		student.GET("/quizzes", c.studentQuiz.ListAvailableQuizzes)
		student.GET("/quizzes/:quizId", c.studentQuiz.GetAvailableQuiz)
		student.POST("/quizzes/:quizId/attempt", c.studentQuiz.StartAttempt)

		student.GET("/attempts/:id", c.studentQuiz.GetAttemptDetails)
		student.PATCH("/attempts/:id/answer", c.studentQuiz.SubmitAnswer)
		student.POST("/attempts/:id/complete", c.studentQuiz.CompleteAttempt)
		student.GET("/history", c.studentQuiz.GetHistory)

		// 复习
		student.GET("/flashcards", c.review.GetFlashcards)
		student.POST("/flashcards/export", c.review.ExportFlashcards)
		student.POST("/practice-test", c.review.CreatePracticeTest)
	}
}
