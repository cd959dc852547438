package model

import (
	"time"

	"gorm.io/datatypes"
)

// NoAnswer 未作答题目在详情中的占位
const NoAnswer = "No answer"

// UnknownQuizTitle 测验被删除后历史记录使用的标题
const UnknownQuizTitle = "Unknown Quiz"

// swagger:model Attempt
type Attempt struct {
	UUIDBase
	QuizID           string                                `gorm:"index:idx_attempt_student_quiz;type:varchar(36)" json:"quizId"`
	StudentID        string                                `gorm:"index:idx_attempt_student_quiz;size:64" json:"studentId"`
	Answers          datatypes.JSONType[map[string]string] `json:"answers"`
	Score            int                                   `gorm:"default:0" json:"score"`
	TotalPoints      int                                   `gorm:"default:0" json:"totalPoints"`
	StartTotalPoints int                                   `gorm:"default:0" json:"startTotalPoints"`
	StartedAt        time.Time                             `json:"startedAt"`
	CompletedAt      *time.Time                            `json:"completedAt,omitempty"`
	IsCompleted      bool                                  `gorm:"default:false;index" json:"isCompleted"`
}

func (Attempt) TableName() string {
	return "quiz_attempts"
}

// AnswerMap 返回答案的副本，永不为 nil
func (a *Attempt) AnswerMap() map[string]string {
	src := a.Answers.Data()
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func (a *Attempt) SetAnswer(questionID, answer string) {
	answers := a.AnswerMap()
	answers[questionID] = answer
	a.Answers = datatypes.NewJSONType(answers)
}

// PointsDrift 完成时总分与开始时总分的差值
func (a *Attempt) PointsDrift() int {
	return a.TotalPoints - a.StartTotalPoints
}

func NewAttempt(quiz *Quiz, studentID string, now time.Time) *Attempt {
	total := quiz.TotalPoints()
	return &Attempt{
		UUIDBase:         NewUUIDBase("", now),
		QuizID:           quiz.ID,
		StudentID:        studentID,
		Answers:          datatypes.NewJSONType(map[string]string{}),
		TotalPoints:      total,
		StartTotalPoints: total,
		StartedAt:        now,
	}
}
