package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"gorm.io/datatypes"
)

// MemoryQuizRepository 进程内存储，用于 database.driver=memory 的演示模式和测试
type MemoryQuizRepository struct {
	mu      sync.RWMutex
	quizzes map[string]*model.Quiz
	seq     map[string]int64
	next    int64
	now     func() time.Time
}

func NewMemoryQuizRepository() *MemoryQuizRepository {
	return &MemoryQuizRepository{
		quizzes: make(map[string]*model.Quiz),
		seq:     make(map[string]int64),
		now:     time.Now,
	}
}

func cloneQuestion(q model.Question) model.Question {
	if q.Options != nil {
		opts := make(datatypes.JSONSlice[string], len(q.Options))
		copy(opts, q.Options)
		q.Options = opts
	}
	return q
}

func cloneQuiz(q *model.Quiz) *model.Quiz {
	out := *q
	if q.TimeLimit != nil {
		limit := *q.TimeLimit
		out.TimeLimit = &limit
	}
	out.Questions = make([]model.Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = cloneQuestion(question)
	}
	return &out
}

func sortQuestions(questions []model.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Order < questions[j].Order
	})
}

func (r *MemoryQuizRepository) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if quiz.ID == "" {
		quiz.ID = model.GenerateUUID()
	}
	quiz.CreatedAt, quiz.UpdatedAt = now, now
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.ID == "" {
			q.ID = model.GenerateUUID()
		}
		q.QuizID = quiz.ID
		q.CreatedAt, q.UpdatedAt = now, now
	}

	r.next++
	r.seq[quiz.ID] = r.next
	r.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (r *MemoryQuizRepository) FindQuizByID(ctx context.Context, id string) (*model.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quiz, ok := r.quizzes[id]
	if !ok {
		return nil, util.ErrQuizNotFound
	}
	out := cloneQuiz(quiz)
	sortQuestions(out.Questions)
	return out, nil
}

func (r *MemoryQuizRepository) ListQuizzes(ctx context.Context, filter QuizFilter) ([]model.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Quiz, 0, len(r.quizzes))
	for _, quiz := range r.quizzes {
		if filter.TeacherID != "" && quiz.TeacherID != filter.TeacherID {
			continue
		}
		if filter.ActiveOnly && !quiz.IsActive {
			continue
		}
		c := cloneQuiz(quiz)
		sortQuestions(c.Questions)
		out = append(out, *c)
	}
	// 最新创建的在前
	sort.Slice(out, func(i, j int) bool {
		return r.seq[out[i].ID] > r.seq[out[j].ID]
	})
	return out, nil
}

func (r *MemoryQuizRepository) UpdateQuiz(ctx context.Context, quiz *model.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.quizzes[quiz.ID]
	if !ok {
		return util.ErrQuizNotFound
	}
	stored.Title = quiz.Title
	stored.Description = quiz.Description
	stored.IsActive = quiz.IsActive
	stored.TimeLimit = nil
	if quiz.TimeLimit != nil {
		limit := *quiz.TimeLimit
		stored.TimeLimit = &limit
	}
	stored.UpdatedAt = r.now()
	return nil
}

func (r *MemoryQuizRepository) DeleteQuiz(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.quizzes[id]; !ok {
		return util.ErrQuizNotFound
	}
	delete(r.quizzes, id)
	delete(r.seq, id)
	return nil
}

func (r *MemoryQuizRepository) CreateQuestion(ctx context.Context, question *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.quizzes[question.QuizID]
	if !ok {
		return util.ErrQuizNotFound
	}
	now := r.now()
	if question.ID == "" {
		question.ID = model.GenerateUUID()
	}
	question.CreatedAt, question.UpdatedAt = now, now
	stored.Questions = append(stored.Questions, cloneQuestion(*question))
	stored.UpdatedAt = now
	return nil
}

func (r *MemoryQuizRepository) UpdateQuestion(ctx context.Context, question *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.quizzes[question.QuizID]
	if !ok {
		return util.ErrQuizNotFound
	}
	idx, found := stored.FindQuestion(question.ID)
	if !found {
		return util.ErrQuestionNotFound
	}
	updated := cloneQuestion(*question)
	updated.CreatedAt = stored.Questions[idx].CreatedAt
	updated.Order = stored.Questions[idx].Order
	updated.UpdatedAt = r.now()
	stored.Questions[idx] = updated
	return nil
}

func (r *MemoryQuizRepository) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.quizzes[quizID]
	if !ok {
		return util.ErrQuizNotFound
	}
	kept := stored.Questions[:0]
	for _, q := range stored.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	if len(kept) == len(stored.Questions) {
		return util.ErrQuestionNotFound
	}
	stored.Questions = kept
	stored.UpdatedAt = r.now()
	return nil
}

type MemoryAttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]*model.Attempt
	now      func() time.Time
}

func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{
		attempts: make(map[string]*model.Attempt),
		now:      time.Now,
	}
}

func cloneAttempt(a *model.Attempt) *model.Attempt {
	out := *a
	out.Answers = datatypes.NewJSONType(a.AnswerMap())
	if a.CompletedAt != nil {
		completed := *a.CompletedAt
		out.CompletedAt = &completed
	}
	return &out
}

func (r *MemoryAttemptRepository) CreateAttempt(ctx context.Context, attempt *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if attempt.ID == "" {
		attempt.ID = model.GenerateUUID()
	}
	now := r.now()
	attempt.CreatedAt, attempt.UpdatedAt = now, now
	r.attempts[attempt.ID] = cloneAttempt(attempt)
	return nil
}

func (r *MemoryAttemptRepository) FindAttemptByID(ctx context.Context, id string) (*model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attempt, ok := r.attempts[id]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

func (r *MemoryAttemptRepository) FindOpenAttempt(ctx context.Context, studentID, quizID string) (*model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *model.Attempt
	for _, a := range r.attempts {
		if a.StudentID != studentID || a.QuizID != quizID || a.IsCompleted {
			continue
		}
		if found == nil || a.StartedAt.Before(found.StartedAt) {
			found = a
		}
	}
	if found == nil {
		return nil, util.ErrAttemptNotFound
	}
	return cloneAttempt(found), nil
}

func (r *MemoryAttemptRepository) ListAttemptsByStudent(ctx context.Context, studentID string) ([]model.Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Attempt, 0)
	for _, a := range r.attempts {
		if a.StudentID == studentID {
			out = append(out, *cloneAttempt(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (r *MemoryAttemptRepository) SaveAnswers(ctx context.Context, attempt *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[attempt.ID]
	if !ok {
		return util.ErrAttemptNotFound
	}
	if stored.IsCompleted {
		return util.ErrAttemptAlreadyCompleted
	}
	stored.Answers = datatypes.NewJSONType(attempt.AnswerMap())
	stored.UpdatedAt = r.now()
	return nil
}

func (r *MemoryAttemptRepository) CompleteAttempt(ctx context.Context, attempt *model.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.attempts[attempt.ID]
	if !ok {
		return util.ErrAttemptNotFound
	}
	if stored.IsCompleted {
		return util.ErrAttemptAlreadyCompleted
	}
	stored.Score = attempt.Score
	stored.TotalPoints = attempt.TotalPoints
	stored.CompletedAt = attempt.CompletedAt
	stored.IsCompleted = true
	stored.UpdatedAt = r.now()
	return nil
}
