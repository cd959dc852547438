package model

import "time"

// StudentQuestion 面向学生的题目视图，类型上不包含答案与解析
type StudentQuestion struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options"`
	Points   int          `json:"points"`
	Order    int          `json:"order"`
}

// StudentQuiz 去除答案后的测验
type StudentQuiz struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	TeacherID     string            `json:"teacherId"`
	IsActive      bool              `json:"isActive"`
	TimeLimit     *int              `json:"timeLimit,omitempty"`
	QuestionCount int               `json:"questionCount"`
	TotalPoints   int               `json:"totalPoints"`
	Questions     []StudentQuestion `json:"questions"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func Sanitize(q *Quiz) StudentQuiz {
	questions := make([]StudentQuestion, len(q.Questions))
	for i, question := range q.Questions {
		options := make([]string, len(question.Options))
		copy(options, question.Options)
		questions[i] = StudentQuestion{
			ID:       question.ID,
			Type:     question.Type,
			Question: question.Prompt,
			Options:  options,
			Points:   question.Points,
			Order:    question.Order,
		}
	}
	return StudentQuiz{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		TeacherID:     q.TeacherID,
		IsActive:      q.IsActive,
		TimeLimit:     q.TimeLimit,
		QuestionCount: len(q.Questions),
		TotalPoints:   q.TotalPoints(),
		Questions:     questions,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

// QuestionResult 已完成作答的逐题结果，只在学生本人完成后返回
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	Question      string `json:"question"`
	UserAnswer    string `json:"userAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Points        int    `json:"points"`
	Explanation   string `json:"explanation"`
}

type AttemptHistoryItem struct {
	Attempt
	QuizTitle       string   `json:"quizTitle"`
	QuizDescription string   `json:"quizDescription"`
	Percentage      *float64 `json:"percentage,omitempty"`
}

type AttemptDetail struct {
	Attempt     *Attempt         `json:"attempt"`
	QuizTitle   string           `json:"quizTitle"`
	Percentage  *float64         `json:"percentage,omitempty"`
	PointsDrift int              `json:"pointsDrift"`
	Results     []QuestionResult `json:"results,omitempty"`
	Quiz        *StudentQuiz     `json:"quiz,omitempty"`
}

type Difficulty string

const (
	DifficultyEasy Difficulty = "easy"
	DifficultyHard Difficulty = "hard"
)

type Flashcard struct {
	ID           string     `json:"id"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Explanation  string     `json:"explanation"`
	QuizTitle    string     `json:"quizTitle"`
	WasIncorrect bool       `json:"wasIncorrect"`
	Difficulty   Difficulty `json:"difficulty"`
}
