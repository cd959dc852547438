package repository

import (
	"context"
	"errors"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
)

// QuizFilter 列表过滤条件，零值表示全部
type QuizFilter struct {
	TeacherID  string
	ActiveOnly bool
}

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("position asc, created_at asc")
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Create(quiz).Error
}

func (r *QuizRepository) FindQuizByID(ctx context.Context, id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		First(&quiz, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context, filter QuizFilter) ([]model.Quiz, error) {
	query := r.DB.WithContext(ctx).Preload("Questions", orderedQuestions)
	if filter.TeacherID != "" {
		query = query.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var quizzes []model.Quiz
	err := query.Order("created_at desc").Find(&quizzes).Error
	return quizzes, err
}

// UpdateQuiz 只更新测验元数据，题目通过独立接口维护
func (r *QuizRepository) UpdateQuiz(ctx context.Context, quiz *model.Quiz) error {
	return r.DB.WithContext(ctx).Model(&model.Quiz{}).
		Where("id = ?", quiz.ID).
		Updates(map[string]interface{}{
			"title":       quiz.Title,
			"description": quiz.Description,
			"is_active":   quiz.IsActive,
			"time_limit":  quiz.TimeLimit,
			"updated_at":  time.Now(),
		}).Error
}

// DeleteQuiz 删除测验及其题目，作答记录保留
func (r *QuizRepository) DeleteQuiz(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Quiz{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrQuizNotFound
		}
		return tx.Where("quiz_id = ?", id).Delete(&model.Question{}).Error
	})
}

func (r *QuizRepository) CreateQuestion(ctx context.Context, question *model.Question) error {
	return r.DB.WithContext(ctx).Create(question).Error
}

func (r *QuizRepository) UpdateQuestion(ctx context.Context, question *model.Question) error {
	return r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("quiz_id = ? AND id = ?", question.QuizID, question.ID).
		Updates(map[string]interface{}{
			"type":           question.Type,
			"question":       question.Prompt,
			"options":        question.Options,
			"correct_answer": question.CorrectAnswer,
			"points":         question.Points,
			"explanation":    question.Explanation,
			"updated_at":     time.Now(),
		}).Error
}

func (r *QuizRepository) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	res := r.DB.WithContext(ctx).
		Where("quiz_id = ? AND id = ?", quizID, questionID).
		Delete(&model.Question{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrQuestionNotFound
	}
	return nil
}
