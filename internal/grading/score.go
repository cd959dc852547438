// Package grading 按测验当前题目集合计算作答得分，纯函数、无副作用。
package grading

import (
	"math"

	"learnhub_backend/internal/model"
)

// Result 一次评分的结果
type Result struct {
	Score       int     `json:"score"`
	TotalPoints int     `json:"totalPoints"`
	Percentage  float64 `json:"percentage"`
}

// IsCorrect 精确比较：区分大小写，不去空格
func IsCorrect(q model.Question, answer string, answered bool) bool {
	return answered && answer == q.CorrectAnswer
}

func Score(questions []model.Question, answers map[string]string) Result {
	res := Result{}
	for _, q := range questions {
		res.TotalPoints += q.Points
		answer, ok := answers[q.ID]
		if IsCorrect(q, answer, ok) {
			res.Score += q.Points
		}
	}
	res.Percentage = Percentage(res.Score, res.TotalPoints)
	return res
}

// Percentage 保留两位小数；总分为 0 时返回 0
func Percentage(score, totalPoints int) float64 {
	if totalPoints == 0 {
		return 0
	}
	return math.Round(float64(score)/float64(totalPoints)*100*100) / 100
}

// Breakdown 逐题对比，未作答的题目使用 model.NoAnswer 占位
func Breakdown(questions []model.Question, answers map[string]string) []model.QuestionResult {
	results := make([]model.QuestionResult, 0, len(questions))
	for _, q := range questions {
		answer, ok := answers[q.ID]
		userAnswer := answer
		if !ok {
			userAnswer = model.NoAnswer
		}
		results = append(results, model.QuestionResult{
			QuestionID:    q.ID,
			Question:      q.Prompt,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     IsCorrect(q, answer, ok),
			Points:        q.Points,
			Explanation:   q.Explanation,
		})
	}
	return results
}
