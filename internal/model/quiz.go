package model

import (
	"strings"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

const DefaultQuestionPoints = 1

// Valid 题型只允许三种
func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// ValidationResult 校验结果，Errors 列出所有不满足的规则
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

func newValidationResult(errs []string) ValidationResult {
	if errs == nil {
		errs = []string{}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	Title          string     `gorm:"size:255;not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	TeacherID      string     `gorm:"index;size:64" json:"teacherId"`
	IsActive       bool       `gorm:"default:false" json:"isActive"`
	TimeLimit      *int       `json:"timeLimit,omitempty"` // Minutes
	IsPracticeTest bool       `gorm:"default:false" json:"isPracticeTest,omitempty"`
	Questions      []Question `gorm:"foreignKey:QuizID" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// Validate 只校验测验本身，题目在加入时单独校验
func (q *Quiz) Validate() ValidationResult {
	var errs []string
	if strings.TrimSpace(q.Title) == "" {
		errs = append(errs, "title is required")
	}
	if q.TimeLimit != nil && *q.TimeLimit <= 0 {
		errs = append(errs, "timeLimit must be a positive integer")
	}
	return newValidationResult(errs)
}

// swagger:model Question
type Question struct {
	UUIDBase
	QuizID        string                      `gorm:"index;type:varchar(36)" json:"quizId"`
	Type          QuestionType                `gorm:"size:32;not null" json:"type"`
	Prompt        string                      `gorm:"column:question;type:text;not null" json:"question"`
	Options       datatypes.JSONSlice[string] `json:"options"`
	CorrectAnswer string                      `gorm:"type:text;not null" json:"correctAnswer"`
	Points        int                         `gorm:"default:1" json:"points"`
	Explanation   string                      `gorm:"type:text" json:"explanation,omitempty"`
	Order         int                         `gorm:"column:position;default:0" json:"order"`
}

func (Question) TableName() string {
	return "quiz_questions"
}

func (q *Question) Validate() ValidationResult {
	var errs []string
	if !q.Type.Valid() {
		errs = append(errs, "type must be one of multiple_choice, true_false, short_answer")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		errs = append(errs, "question text is required")
	}
	if q.CorrectAnswer == "" {
		errs = append(errs, "correct answer is required")
	}
	if q.Points <= 0 {
		errs = append(errs, "points must be a positive integer")
	}
	return newValidationResult(errs)
}

// NormalizeOptions 只有单选题保留选项；判断题的 True/False 由前端提供
func (q *Question) NormalizeOptions() {
	if q.Type != MultipleChoice {
		q.Options = datatypes.JSONSlice[string]{}
		return
	}
	if q.Options == nil {
		q.Options = datatypes.JSONSlice[string]{}
	}
}

// TotalPoints 当前题目集合的总分
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

func (q *Quiz) FindQuestion(id string) (int, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return i, true
		}
	}
	return -1, false
}
