package util

import (
	"errors"
	"net/http"

	"learnhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	Percentage *float64    `json:"percentage,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithPercentage 用于作答完成，percentage 为 0 时也需要返回
func SuccessWithPercentage(c *gin.Context, data interface{}, percentage float64) {
	c.JSON(http.StatusOK, Response{
		Success:    true,
		Data:       data,
		Percentage: &percentage,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Success: false,
		Error:   message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Access denied")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func ValidationFailed(c *gin.Context, errs []string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "Validation failed",
		Details: errs,
	})
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	InternalServerError(c)
}

// HandleError 将领域错误映射为响应；不存在与无权限的提示保持笼统
func HandleError(c *gin.Context, err error) {
	if ve, ok := IsValidationError(err); ok {
		ValidationFailed(c, ve.Errors)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		NotFound(c)
	case errors.Is(err, ErrAccessDenied):
		Forbidden(c)
	case errors.Is(err, ErrAttemptAlreadyCompleted):
		Conflict(c, "Attempt already completed")
	case errors.Is(err, ErrQuizInactive):
		Conflict(c, "Quiz is not active")
	case errors.Is(err, ErrInvalidState):
		Conflict(c, "Invalid state")
	default:
		LogInternalError(c, err)
	}
}
