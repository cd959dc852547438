package service

import (
	"context"
	"fmt"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/policy"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

type QuizService struct {
	Repo   QuizStore
	Cache  AvailableQuizCache
	Policy policy.AccessPolicy
}

func NewQuizService(repo QuizStore, cache AvailableQuizCache, p policy.AccessPolicy) *QuizService {
	return &QuizService{Repo: repo, Cache: cacheOrNoop(cache), Policy: p}
}

type QuestionReq struct {
	Type          model.QuestionType `json:"type"`
	Question      string             `json:"question"`
	Options       []string           `json:"options"`
	CorrectAnswer string             `json:"correctAnswer"`
	Points        *int               `json:"points"`
	Explanation   string             `json:"explanation"`
}

func (r QuestionReq) toQuestion() model.Question {
	points := model.DefaultQuestionPoints
	if r.Points != nil {
		points = *r.Points
	}
	q := model.Question{
		Type:          r.Type,
		Prompt:        r.Question,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Points:        points,
		Explanation:   r.Explanation,
	}
	q.NormalizeOptions()
	return q
}

type QuestionPatchReq struct {
	Type          *model.QuestionType `json:"type"`
	Question      *string             `json:"question"`
	Options       *[]string           `json:"options"`
	CorrectAnswer *string             `json:"correctAnswer"`
	Points        *int                `json:"points"`
	Explanation   *string             `json:"explanation"`
}

func (r QuestionPatchReq) applyTo(q *model.Question) {
	if r.Type != nil {
		q.Type = *r.Type
	}
	if r.Question != nil {
		q.Prompt = *r.Question
	}
	if r.Options != nil {
		q.Options = *r.Options
	}
	if r.CorrectAnswer != nil {
		q.CorrectAnswer = *r.CorrectAnswer
	}
	if r.Points != nil {
		q.Points = *r.Points
	}
	if r.Explanation != nil {
		q.Explanation = *r.Explanation
	}
	q.NormalizeOptions()
}

type CreateQuizReq struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	IsActive    bool          `json:"isActive"`
	TimeLimit   *int          `json:"timeLimit"`
	Questions   []QuestionReq `json:"questions"`
}

type UpdateQuizReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
	TimeLimit   *int    `json:"timeLimit"`
}

func prefixed(prefix string, errs []string) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = prefix + e
	}
	return out
}

// ListQuizzes 教师只看到自己的测验，管理员看到全部；不按 isActive 过滤
func (s *QuizService) ListQuizzes(ctx context.Context, p model.Principal) ([]model.Quiz, error) {
	if !s.Policy.CanAuthor(p) {
		return nil, util.ErrAccessDenied
	}
	filter := repository.QuizFilter{}
	if p.Role == model.Teacher {
		filter.TeacherID = p.UserID
	}
	quizzes, err := s.Repo.ListQuizzes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return quizzes, nil
}

// loadOwned 读取测验并校验写权限
func (s *QuizService) loadOwned(ctx context.Context, id string, p model.Principal) (*model.Quiz, error) {
	quiz, err := s.Repo.FindQuizByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Policy.CanWrite(p, quiz.TeacherID) {
		return nil, util.ErrAccessDenied
	}
	return quiz, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, id string, p model.Principal) (*model.Quiz, error) {
	return s.loadOwned(ctx, id, p)
}

func (s *QuizService) CreateQuiz(ctx context.Context, p model.Principal, req CreateQuizReq) (*model.Quiz, error) {
	if !s.Policy.CanAuthor(p) {
		return nil, util.ErrAccessDenied
	}

	quiz := &model.Quiz{
		UUIDBase:    model.UUIDBase{ID: model.GenerateUUID()},
		Title:       req.Title,
		Description: req.Description,
		TeacherID:   p.UserID,
		IsActive:    req.IsActive,
		TimeLimit:   req.TimeLimit,
		Questions:   make([]model.Question, 0, len(req.Questions)),
	}

	errs := quiz.Validate().Errors
	for i, qReq := range req.Questions {
		q := qReq.toQuestion()
		q.ID = model.GenerateUUID()
		q.QuizID = quiz.ID
		q.Order = i
		if res := q.Validate(); !res.IsValid {
			errs = append(errs, prefixed(fmt.Sprintf("questions[%d]: ", i), res.Errors)...)
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	if len(errs) > 0 {
		return nil, util.NewValidationError(errs...)
	}

	if err := s.Repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	if quiz.IsActive {
		s.Cache.Invalidate(ctx)
	}

	logger.Log.Info("quiz created",
		zap.String("quizId", quiz.ID),
		zap.String("teacherId", quiz.TeacherID),
		zap.Int("questions", len(quiz.Questions)),
	)
	return quiz, nil
}

func (s *QuizService) UpdateQuiz(ctx context.Context, id string, p model.Principal, req UpdateQuizReq) (*model.Quiz, error) {
	quiz, err := s.loadOwned(ctx, id, p)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = req.TimeLimit
	}

	if res := quiz.Validate(); !res.IsValid {
		return nil, util.NewValidationError(res.Errors...)
	}

	if err := s.Repo.UpdateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("update quiz: %w", err)
	}
	s.Cache.Invalidate(ctx)
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, id string, p model.Principal) error {
	if _, err := s.loadOwned(ctx, id, p); err != nil {
		return err
	}
	if err := s.Repo.DeleteQuiz(ctx, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	s.Cache.Invalidate(ctx)

	logger.Log.Info("quiz deleted", zap.String("quizId", id), zap.String("by", p.UserID))
	return nil
}

// SetQuizActive 学生可见性的唯一开关
func (s *QuizService) SetQuizActive(ctx context.Context, id string, p model.Principal, isActive bool) (*model.Quiz, error) {
	quiz, err := s.loadOwned(ctx, id, p)
	if err != nil {
		return nil, err
	}
	quiz.IsActive = isActive
	if err := s.Repo.UpdateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("set quiz status: %w", err)
	}
	s.Cache.Invalidate(ctx)
	return quiz, nil
}

// AddQuestion 追加题目，order 取当前题目数量
func (s *QuizService) AddQuestion(ctx context.Context, quizID string, p model.Principal, req QuestionReq) (*model.Question, error) {
	quiz, err := s.loadOwned(ctx, quizID, p)
	if err != nil {
		return nil, err
	}

	q := req.toQuestion()
	q.ID = model.GenerateUUID()
	q.QuizID = quiz.ID
	q.Order = len(quiz.Questions)
	if res := q.Validate(); !res.IsValid {
		return nil, util.NewValidationError(res.Errors...)
	}

	if err := s.Repo.CreateQuestion(ctx, &q); err != nil {
		return nil, fmt.Errorf("add question: %w", err)
	}
	s.Cache.Invalidate(ctx)
	return &q, nil
}

func (s *QuizService) UpdateQuestion(ctx context.Context, quizID, questionID string, p model.Principal, req QuestionPatchReq) (*model.Question, error) {
	quiz, err := s.loadOwned(ctx, quizID, p)
	if err != nil {
		return nil, err
	}
	idx, ok := quiz.FindQuestion(questionID)
	if !ok {
		return nil, util.ErrQuestionNotFound
	}

	q := quiz.Questions[idx]
	req.applyTo(&q)
	if res := q.Validate(); !res.IsValid {
		return nil, util.NewValidationError(res.Errors...)
	}

	if err := s.Repo.UpdateQuestion(ctx, &q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	s.Cache.Invalidate(ctx)
	return &q, nil
}

func (s *QuizService) DeleteQuestion(ctx context.Context, quizID, questionID string, p model.Principal) error {
	if _, err := s.loadOwned(ctx, quizID, p); err != nil {
		return err
	}
	if err := s.Repo.DeleteQuestion(ctx, quizID, questionID); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.Cache.Invalidate(ctx)
	return nil
}
