package repository

import (
	"context"
	"errors"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) CreateAttempt(ctx context.Context, attempt *model.Attempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *AttemptRepository) FindAttemptByID(ctx context.Context, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).First(&attempt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindOpenAttempt 查找学生在该测验下未完成的作答
func (r *AttemptRepository) FindOpenAttempt(ctx context.Context, studentID, quizID string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ? AND is_completed = ?", studentID, quizID, false).
		Order("started_at asc").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *AttemptRepository) ListAttemptsByStudent(ctx context.Context, studentID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("started_at desc").
		Find(&attempts).Error
	return attempts, err
}

// SaveAnswers 仅在作答未完成时写入
func (r *AttemptRepository) SaveAnswers(ctx context.Context, attempt *model.Attempt) error {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND is_completed = ?", attempt.ID, false).
		Updates(map[string]interface{}{
			"answers":    attempt.Answers,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.explainMissedWrite(ctx, attempt.ID)
	}
	return nil
}

// CompleteAttempt 以 is_completed = false 为条件写入最终成绩，保证只完成一次
func (r *AttemptRepository) CompleteAttempt(ctx context.Context, attempt *model.Attempt) error {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND is_completed = ?", attempt.ID, false).
		Updates(map[string]interface{}{
			"score":        attempt.Score,
			"total_points": attempt.TotalPoints,
			"completed_at": attempt.CompletedAt,
			"is_completed": true,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := r.explainMissedWrite(ctx, attempt.ID); err != nil {
			return err
		}
		return util.ErrAttemptAlreadyCompleted
	}
	return nil
}

// explainMissedWrite MySQL 在值未变化时 RowsAffected 为 0，需要回查区分原因
func (r *AttemptRepository) explainMissedWrite(ctx context.Context, id string) error {
	current, err := r.FindAttemptByID(ctx, id)
	if err != nil {
		return err
	}
	if current.IsCompleted {
		return util.ErrAttemptAlreadyCompleted
	}
	return nil
}
