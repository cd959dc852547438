package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"learnhub_backend/internal/grading"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/policy"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type StudentQuizService struct {
	Quizzes  QuizStore
	Attempts AttemptStore
	Cache    AvailableQuizCache
	Policy   policy.AccessPolicy
	Now      func() time.Time
}

func NewStudentQuizService(quizzes QuizStore, attempts AttemptStore, cache AvailableQuizCache, p policy.AccessPolicy) *StudentQuizService {
	return &StudentQuizService{
		Quizzes:  quizzes,
		Attempts: attempts,
		Cache:    cacheOrNoop(cache),
		Policy:   p,
		Now:      time.Now,
	}
}

type SubmitAnswerReq struct {
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

// CompletionResult 完成作答的返回，Percentage 基于完成时的总分
type CompletionResult struct {
	Attempt     *model.Attempt `json:"attempt"`
	Percentage  float64        `json:"percentage"`
	PointsDrift int            `json:"pointsDrift"`
}

// ListAvailableQuizzes 仅返回已启用的测验，并去掉所有答案与解析。
// 版本号在查库之前取得，查库期间发生的失效会让这次写回落到旧版本
func (s *StudentQuizService) ListAvailableQuizzes(ctx context.Context) ([]model.StudentQuiz, error) {
	cached, generation, ok := s.Cache.Get(ctx)
	if ok {
		return cached, nil
	}

	quizzes, err := s.Quizzes.ListQuizzes(ctx, repository.QuizFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list available quizzes: %w", err)
	}

	out := make([]model.StudentQuiz, 0, len(quizzes))
	for i := range quizzes {
		if !quizzes[i].IsActive {
			continue
		}
		out = append(out, model.Sanitize(&quizzes[i]))
	}
	s.Cache.Set(ctx, generation, out)
	return out, nil
}

// loadActiveQuiz 未启用的测验对学生表现为 ErrQuizInactive
func (s *StudentQuizService) loadActiveQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	quiz, err := s.Quizzes.FindQuizByID(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, util.ErrQuizInactive
	}
	return quiz, nil
}

func (s *StudentQuizService) GetAvailableQuiz(ctx context.Context, quizID string) (*model.StudentQuiz, error) {
	quiz, err := s.loadActiveQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	sanitized := model.Sanitize(quiz)
	return &sanitized, nil
}

// StartQuizAttempt 已有未完成作答时原样返回，否则新建并记录开始时的总分
func (s *StudentQuizService) StartQuizAttempt(ctx context.Context, quizID string, p model.Principal) (*model.Attempt, error) {
	quiz, err := s.loadActiveQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	open, err := s.Attempts.FindOpenAttempt(ctx, p.UserID, quiz.ID)
	if err == nil {
		return open, nil
	}
	if !errors.Is(err, util.ErrAttemptNotFound) {
		return nil, fmt.Errorf("find open attempt: %w", err)
	}

	attempt := model.NewAttempt(quiz, p.UserID, s.Now())
	if err := s.Attempts.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	monitoring.AttemptsStarted.Inc()
	logger.Log.Info("attempt started",
		zap.String("attemptId", attempt.ID),
		zap.String("quizId", quiz.ID),
		zap.String("studentId", p.UserID),
		zap.Int("totalPoints", attempt.TotalPoints),
	)
	return attempt, nil
}

// loadOwnAttempt 不属于调用者的作答一律视为不存在
func (s *StudentQuizService) loadOwnAttempt(ctx context.Context, attemptID string, p model.Principal) (*model.Attempt, error) {
	attempt, err := s.Attempts.FindAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanAccessAttempt(p, attempt) {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, nil
}

// SubmitAnswer 覆盖写入单题答案，作答完成后拒绝修改
func (s *StudentQuizService) SubmitAnswer(ctx context.Context, attemptID string, p model.Principal, req SubmitAnswerReq) (*model.Attempt, error) {
	attempt, err := s.loadOwnAttempt(ctx, attemptID, p)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, util.ErrAttemptAlreadyCompleted
	}

	attempt.SetAnswer(req.QuestionID, req.Answer)
	if err := s.Attempts.SaveAnswers(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}
	return attempt, nil
}

// CompleteQuizAttempt 以测验的当前题目重新评分；测验在作答期间被修改时得分随之变化
func (s *StudentQuizService) CompleteQuizAttempt(ctx context.Context, attemptID string, p model.Principal) (*CompletionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "StudentQuizService.CompleteQuizAttempt")
	defer span.End()

	attempt, err := s.loadOwnAttempt(ctx, attemptID, p)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, util.ErrAttemptAlreadyCompleted
	}

	quiz, err := s.Quizzes.FindQuizByID(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	result := grading.Score(quiz.Questions, attempt.AnswerMap())
	now := s.Now()
	attempt.Score = result.Score
	attempt.TotalPoints = result.TotalPoints
	attempt.CompletedAt = &now
	attempt.IsCompleted = true

	if err := s.Attempts.CompleteAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	span.SetAttributes(
		attribute.String("quiz.id", quiz.ID),
		attribute.Int("attempt.score", result.Score),
		attribute.Int("attempt.total_points", result.TotalPoints),
	)
	monitoring.AttemptsCompleted.Inc()
	monitoring.AttemptPercentage.Observe(result.Percentage)
	if attempt.PointsDrift() != 0 {
		logger.Log.Warn("quiz changed during attempt",
			zap.String("attemptId", attempt.ID),
			zap.Int("startTotalPoints", attempt.StartTotalPoints),
			zap.Int("totalPoints", attempt.TotalPoints),
		)
	}
	logger.Log.Info("attempt completed",
		zap.String("attemptId", attempt.ID),
		zap.String("studentId", p.UserID),
		zap.Int("score", result.Score),
		zap.Float64("percentage", result.Percentage),
	)

	return &CompletionResult{
		Attempt:     attempt,
		Percentage:  result.Percentage,
		PointsDrift: attempt.PointsDrift(),
	}, nil
}

// quizLookup 同一请求内按 id 缓存测验，已删除的测验记为 nil
type quizLookup struct {
	store QuizStore
	seen  map[string]*model.Quiz
}

func newQuizLookup(store QuizStore) *quizLookup {
	return &quizLookup{store: store, seen: make(map[string]*model.Quiz)}
}

func (l *quizLookup) get(ctx context.Context, id string) (*model.Quiz, error) {
	if quiz, ok := l.seen[id]; ok {
		return quiz, nil
	}
	quiz, err := l.store.FindQuizByID(ctx, id)
	if errors.Is(err, util.ErrQuizNotFound) {
		l.seen[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.seen[id] = quiz
	return quiz, nil
}

// GetQuizHistory 学生的全部作答，附带测验标题；测验已删除时标题为 "Unknown Quiz"
func (s *StudentQuizService) GetQuizHistory(ctx context.Context, p model.Principal) ([]model.AttemptHistoryItem, error) {
	attempts, err := s.Attempts.ListAttemptsByStudent(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	lookup := newQuizLookup(s.Quizzes)
	items := make([]model.AttemptHistoryItem, 0, len(attempts))
	for _, attempt := range attempts {
		quiz, err := lookup.get(ctx, attempt.QuizID)
		if err != nil {
			return nil, fmt.Errorf("load quiz %s: %w", attempt.QuizID, err)
		}

		item := model.AttemptHistoryItem{Attempt: attempt, QuizTitle: model.UnknownQuizTitle}
		if quiz != nil {
			item.QuizTitle = quiz.Title
			item.QuizDescription = quiz.Description
		}
		if attempt.IsCompleted {
			pct := grading.Percentage(attempt.Score, attempt.TotalPoints)
			item.Percentage = &pct
		}
		items = append(items, item)
	}
	return items, nil
}

// GetAttemptDetails 只有本人已完成的作答才会返回标准答案
func (s *StudentQuizService) GetAttemptDetails(ctx context.Context, attemptID string, p model.Principal) (*model.AttemptDetail, error) {
	attempt, err := s.loadOwnAttempt(ctx, attemptID, p)
	if err != nil {
		return nil, err
	}

	quiz, err := newQuizLookup(s.Quizzes).get(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	detail := &model.AttemptDetail{
		Attempt:     attempt,
		QuizTitle:   model.UnknownQuizTitle,
		PointsDrift: attempt.PointsDrift(),
	}
	if quiz != nil {
		detail.QuizTitle = quiz.Title
	}

	if !attempt.IsCompleted {
		if quiz != nil {
			sanitized := model.Sanitize(quiz)
			detail.Quiz = &sanitized
		}
		return detail, nil
	}

	pct := grading.Percentage(attempt.Score, attempt.TotalPoints)
	detail.Percentage = &pct
	if quiz != nil {
		detail.Results = grading.Breakdown(quiz.Questions, attempt.AnswerMap())
	}
	return detail, nil
}
