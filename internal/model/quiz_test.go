package model

import (
	"reflect"
	"testing"
	"time"

	"gorm.io/datatypes"
)

func TestQuizValidate(t *testing.T) {
	cases := []struct {
		name  string
		title string
		valid bool
	}{
		{"empty title", "", false},
		{"blank title", "   ", false},
		{"normal", "Basics", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &Quiz{Title: tc.title}
			res := q.Validate()
			if res.IsValid != tc.valid {
				t.Fatalf("IsValid = %v, want %v (errors %v)", res.IsValid, tc.valid, res.Errors)
			}
			if !tc.valid && (len(res.Errors) != 1 || res.Errors[0] != "title is required") {
				t.Fatalf("unexpected errors %v", res.Errors)
			}
			if tc.valid && res.Errors == nil {
				t.Fatal("errors should be an empty slice, not nil")
			}
		})
	}
}

func TestQuizValidateTimeLimit(t *testing.T) {
	zero, ten := 0, 10
	res := (&Quiz{Title: "", TimeLimit: &zero}).Validate()
	want := []string{"title is required", "timeLimit must be a positive integer"}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("got %v, want %v", res.Errors, want)
	}
	if res := (&Quiz{Title: "Basics", TimeLimit: &ten}).Validate(); !res.IsValid {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
}

func TestQuestionValidateCollectsAllErrors(t *testing.T) {
	q := &Question{Type: ShortAnswer, Prompt: " ", CorrectAnswer: "", Points: 0}
	res := q.Validate()
	want := []string{
		"question text is required",
		"correct answer is required",
		"points must be a positive integer",
	}
	if res.IsValid || !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("got %+v, want errors %v", res, want)
	}

	essay := &Question{Type: "essay", Prompt: "", CorrectAnswer: "", Points: 1}
	want = []string{
		"type must be one of multiple_choice, true_false, short_answer",
		"question text is required",
		"correct answer is required",
	}
	if res := essay.Validate(); !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("got %v, want %v", res.Errors, want)
	}

	ok := &Question{Type: TrueFalse, Prompt: "Go has generics", CorrectAnswer: "True", Points: 1}
	if res := ok.Validate(); !res.IsValid {
		t.Fatalf("expected valid question, got %v", res.Errors)
	}
}

func TestNormalizeOptions(t *testing.T) {
	mc := Question{Type: MultipleChoice}
	mc.NormalizeOptions()
	if mc.Options == nil || len(mc.Options) != 0 {
		t.Fatalf("multiple choice without options should get empty slice, got %#v", mc.Options)
	}

	tf := Question{Type: TrueFalse, Options: datatypes.JSONSlice[string]{"True", "False"}}
	tf.NormalizeOptions()
	if len(tf.Options) != 0 {
		t.Fatalf("true_false options should be cleared, got %v", tf.Options)
	}
}

func sampleQuiz() *Quiz {
	return &Quiz{
		UUIDBase:  UUIDBase{ID: "quiz-1"},
		Title:     "Basics",
		TeacherID: "t1",
		IsActive:  true,
		Questions: []Question{
			{UUIDBase: UUIDBase{ID: "q1"}, Type: MultipleChoice, Prompt: "2+2?", Options: datatypes.JSONSlice[string]{"3", "4"}, CorrectAnswer: "4", Points: 2, Explanation: "arithmetic"},
			{UUIDBase: UUIDBase{ID: "q2"}, Type: ShortAnswer, Prompt: "Capital of France?", CorrectAnswer: "Paris", Points: 3, Explanation: "geography", Order: 1},
		},
	}
}

func TestQuizTotalPointsAndFindQuestion(t *testing.T) {
	q := sampleQuiz()
	if got := q.TotalPoints(); got != 5 {
		t.Fatalf("TotalPoints = %d, want 5", got)
	}
	if idx, ok := q.FindQuestion("q2"); !ok || idx != 1 {
		t.Fatalf("FindQuestion(q2) = %d, %v", idx, ok)
	}
	if _, ok := q.FindQuestion("missing"); ok {
		t.Fatal("FindQuestion should miss unknown id")
	}
}

func TestSanitizeStripsAnswers(t *testing.T) {
	q := sampleQuiz()
	view := Sanitize(q)

	if view.QuestionCount != 2 || view.TotalPoints != 5 {
		t.Fatalf("unexpected summary %+v", view)
	}
	for _, field := range []string{"CorrectAnswer", "Explanation"} {
		if _, ok := reflect.TypeOf(StudentQuestion{}).FieldByName(field); ok {
			t.Fatalf("student view must not carry %s", field)
		}
	}
	if view.Questions[0].Question != "2+2?" || view.Questions[0].Options[1] != "4" {
		t.Fatalf("unexpected question view %+v", view.Questions[0])
	}

	// 修改视图不影响原测验
	view.Questions[0].Options[0] = "changed"
	if q.Questions[0].Options[0] != "3" {
		t.Fatal("sanitized view shares option storage with the quiz")
	}
}

func TestNewAttemptCapturesStartTotal(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := NewAttempt(sampleQuiz(), "s1", now)

	if a.ID == "" || a.QuizID != "quiz-1" || a.StudentID != "s1" {
		t.Fatalf("unexpected attempt %+v", a)
	}
	if a.TotalPoints != 5 || a.StartTotalPoints != 5 || a.PointsDrift() != 0 {
		t.Fatalf("totals not captured: %+v", a)
	}
	if a.IsCompleted || a.CompletedAt != nil || a.Score != 0 {
		t.Fatal("new attempt must be open")
	}
	if !a.StartedAt.Equal(now) {
		t.Fatalf("StartedAt = %v", a.StartedAt)
	}
}

func TestAttemptAnswers(t *testing.T) {
	var a Attempt
	if m := a.AnswerMap(); m == nil || len(m) != 0 {
		t.Fatalf("zero attempt should give empty map, got %#v", m)
	}

	a.SetAnswer("q1", "4")
	a.SetAnswer("q1", "5")
	a.SetAnswer("q2", "")

	got := a.AnswerMap()
	if len(got) != 2 || got["q1"] != "5" || got["q2"] != "" {
		t.Fatalf("unexpected answers %v", got)
	}

	got["q1"] = "mutated"
	if a.AnswerMap()["q1"] != "5" {
		t.Fatal("AnswerMap must return a copy")
	}
}

func TestUserRoleValid(t *testing.T) {
	for _, r := range []UserRole{Student, Teacher, Admin} {
		if !r.Valid() {
			t.Fatalf("%q should be valid", r)
		}
	}
	if UserRole("guest").Valid() {
		t.Fatal("guest should not be valid")
	}
	if !(Principal{UserID: "a", Role: Admin}).IsAdmin() {
		t.Fatal("admin principal not recognised")
	}
}
