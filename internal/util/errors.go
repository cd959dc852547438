package util

import (
	"errors"
	"fmt"
	"strings"
)

// 错误分类，调用方通过 errors.Is 判断
var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrInvalidState = errors.New("invalid state")
)

var (
	ErrQuizNotFound            = fmt.Errorf("quiz %w", ErrNotFound)
	ErrQuestionNotFound        = fmt.Errorf("question %w", ErrNotFound)
	ErrAttemptNotFound         = fmt.Errorf("attempt %w", ErrNotFound)
	ErrQuizInactive            = fmt.Errorf("quiz is not active: %w", ErrInvalidState)
	ErrAttemptAlreadyCompleted = fmt.Errorf("attempt already completed: %w", ErrInvalidState)
)

// ValidationError 携带全部字段错误，便于前端一次性提示
type ValidationError struct {
	Errors []string
}

func NewValidationError(errs ...string) *ValidationError {
	return &ValidationError{Errors: errs}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
