package service

import (
	"context"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
)

// QuizStore 测验与题目的持久化；查不到时返回 util.ErrQuizNotFound / util.ErrQuestionNotFound
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz *model.Quiz) error
	FindQuizByID(ctx context.Context, id string) (*model.Quiz, error)
	ListQuizzes(ctx context.Context, filter repository.QuizFilter) ([]model.Quiz, error)
	UpdateQuiz(ctx context.Context, quiz *model.Quiz) error
	DeleteQuiz(ctx context.Context, id string) error
	CreateQuestion(ctx context.Context, question *model.Question) error
	UpdateQuestion(ctx context.Context, question *model.Question) error
	DeleteQuestion(ctx context.Context, quizID, questionID string) error
}

// AttemptStore 作答记录的持久化。SaveAnswers 与 CompleteAttempt 以未完成为写入条件，
// 已完成时返回 util.ErrAttemptAlreadyCompleted
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt *model.Attempt) error
	FindAttemptByID(ctx context.Context, id string) (*model.Attempt, error)
	FindOpenAttempt(ctx context.Context, studentID, quizID string) (*model.Attempt, error)
	ListAttemptsByStudent(ctx context.Context, studentID string) ([]model.Attempt, error)
	SaveAnswers(ctx context.Context, attempt *model.Attempt) error
	CompleteAttempt(ctx context.Context, attempt *model.Attempt) error
}

// AvailableQuizCache 学生可见测验列表的缓存。Get 返回读取时的版本号，
// 查库后的 Set 必须带上这个版本号；Invalidate 之后旧版本的写入不会再被读到
type AvailableQuizCache interface {
	Get(ctx context.Context) ([]model.StudentQuiz, int64, bool)
	Set(ctx context.Context, generation int64, quizzes []model.StudentQuiz)
	Invalidate(ctx context.Context)
}

type noopQuizCache struct{}

func (noopQuizCache) Get(context.Context) ([]model.StudentQuiz, int64, bool) { return nil, -1, false }
func (noopQuizCache) Set(context.Context, int64, []model.StudentQuiz)        {}
func (noopQuizCache) Invalidate(context.Context)                             {}

func cacheOrNoop(c AvailableQuizCache) AvailableQuizCache {
	if c == nil {
		return noopQuizCache{}
	}
	return c
}
