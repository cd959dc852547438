package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/grading"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	PracticeTeacherID     = "ai-system"
	PracticeCorrectAnswer = "Sample answer B (correct)"
	defaultDifficulty     = "medium"
)

// DeckUploader 闪卡导出使用的存储，由 StorageService 实现
type DeckUploader interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

type ReviewService struct {
	Quizzes  QuizStore
	Attempts AttemptStore
	Storage  DeckUploader
	Now      func() time.Time

	mu       sync.RWMutex
	settings config.QuizConfig
}

func NewReviewService(quizzes QuizStore, attempts AttemptStore, storage DeckUploader, cfg config.QuizConfig) *ReviewService {
	return &ReviewService{
		Quizzes:  quizzes,
		Attempts: attempts,
		Storage:  storage,
		Now:      time.Now,
		settings: cfg,
	}
}

// ApplyConfig 配置热更新时调整练习题数量限制
func (s *ReviewService) ApplyConfig(cfg config.QuizConfig) {
	s.mu.Lock()
	s.settings = cfg
	s.mu.Unlock()
}

func (s *ReviewService) quizSettings() config.QuizConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// CreateFlashcards 每个已完成作答的每道题生成一张卡片，答错的标为 hard。
// 是否答错以测验当前的标准答案为准；测验已删除的作答跳过。
func (s *ReviewService) CreateFlashcards(ctx context.Context, p model.Principal) ([]model.Flashcard, error) {
	attempts, err := s.Attempts.ListAttemptsByStudent(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	lookup := newQuizLookup(s.Quizzes)
	cards := make([]model.Flashcard, 0)
	for _, attempt := range attempts {
		if !attempt.IsCompleted || attempt.StudentID != p.UserID {
			continue
		}
		quiz, err := lookup.get(ctx, attempt.QuizID)
		if err != nil {
			return nil, fmt.Errorf("load quiz %s: %w", attempt.QuizID, err)
		}
		if quiz == nil {
			continue
		}

		answers := attempt.AnswerMap()
		for _, q := range quiz.Questions {
			answer, answered := answers[q.ID]
			wasIncorrect := !grading.IsCorrect(q, answer, answered)
			difficulty := model.DifficultyEasy
			if wasIncorrect {
				difficulty = model.DifficultyHard
			}
			cards = append(cards, model.Flashcard{
				ID:           attempt.ID + "-" + q.ID,
				Question:     q.Prompt,
				Answer:       q.CorrectAnswer,
				Explanation:  q.Explanation,
				QuizTitle:    quiz.Title,
				WasIncorrect: wasIncorrect,
				Difficulty:   difficulty,
			})
		}
	}
	return cards, nil
}

type PracticeTestReq struct {
	Topic         string `json:"topic" binding:"required"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount" binding:"omitempty,gte=0"`
}

// CreatePracticeTest 占位实现：没有真正的生成逻辑，只产出固定格式的示例题，
// 正确答案固定为 "Sample answer B (correct)"，结果不写入存储。
func (s *ReviewService) CreatePracticeTest(req PracticeTestReq) (*model.Quiz, error) {
	settings := s.quizSettings()

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, util.NewValidationError("topic is required")
	}
	difficulty := strings.TrimSpace(req.Difficulty)
	if difficulty == "" {
		difficulty = defaultDifficulty
	}
	count := req.QuestionCount
	if count <= 0 {
		count = settings.PracticeDefaultQuestions
	}
	if settings.PracticeMaxQuestions > 0 && count > settings.PracticeMaxQuestions {
		return nil, util.NewValidationError(fmt.Sprintf("questionCount must not exceed %d", settings.PracticeMaxQuestions))
	}

	now := s.Now()
	quiz := &model.Quiz{
		UUIDBase:       model.NewUUIDBase("practice-"+model.GenerateUUID(), now),
		Title:          fmt.Sprintf("Practice Test: %s", topic),
		Description:    fmt.Sprintf("AI-generated %s practice test about %s", difficulty, topic),
		TeacherID:      PracticeTeacherID,
		IsActive:       true,
		IsPracticeTest: true,
		Questions:      make([]model.Question, 0, count),
	}
	for i := 0; i < count; i++ {
		quiz.Questions = append(quiz.Questions, model.Question{
			UUIDBase: model.NewUUIDBase(fmt.Sprintf("%s-q%d", quiz.ID, i+1), now),
			QuizID:   quiz.ID,
			Type:     model.MultipleChoice,
			Prompt:   fmt.Sprintf("Sample %s question %d about %s?", difficulty, i+1, topic),
			Options: datatypes.JSONSlice[string]{
				"Sample answer A",
				PracticeCorrectAnswer,
				"Sample answer C",
				"Sample answer D",
			},
			CorrectAnswer: PracticeCorrectAnswer,
			Points:        model.DefaultQuestionPoints,
			Explanation:   fmt.Sprintf("This is a sample explanation for a %s question about %s.", difficulty, topic),
			Order:         i,
		})
	}
	return quiz, nil
}

// FlashcardDeck 导出文件的内容
type FlashcardDeck struct {
	StudentID   string            `json:"studentId"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Cards       []model.Flashcard `json:"cards"`
}

type DeckExport struct {
	URL       string `json:"url"`
	CardCount int    `json:"cardCount"`
}

// ExportFlashcards 将闪卡序列化为 JSON 上传到对象存储
func (s *ReviewService) ExportFlashcards(ctx context.Context, p model.Principal) (*DeckExport, error) {
	cards, err := s.CreateFlashcards(ctx, p)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	raw, err := json.Marshal(FlashcardDeck{StudentID: p.UserID, GeneratedAt: now, Cards: cards})
	if err != nil {
		return nil, fmt.Errorf("encode deck: %w", err)
	}

	filename := fmt.Sprintf("flashcards/%s/%d.json", p.UserID, now.UnixNano())
	url, err := s.Storage.Upload(ctx, filename, bytes.NewReader(raw), int64(len(raw)), util.MimeJSON)
	if err != nil {
		return nil, fmt.Errorf("upload deck: %w", err)
	}

	logger.Log.Info("flashcard deck exported",
		zap.String("studentId", p.UserID),
		zap.Int("cards", len(cards)),
		zap.String("url", url),
	)
	return &DeckExport{URL: url, CardCount: len(cards)}, nil
}
