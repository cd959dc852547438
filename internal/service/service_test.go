package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/policy"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

var (
	teacherA = model.Principal{UserID: "teacher-a", Role: model.Teacher}
	teacherB = model.Principal{UserID: "teacher-b", Role: model.Teacher}
	admin    = model.Principal{UserID: "admin", Role: model.Admin}
	student  = model.Principal{UserID: "student-1", Role: model.Student}
	student2 = model.Principal{UserID: "student-2", Role: model.Student}
)

// clock 每次调用前进一秒，保证作答开始时间有序
type clock struct{ t time.Time }

func (c *clock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

// countingCache 按版本号存放列表并记录失效次数
type countingCache struct {
	generation  int64
	stored      map[int64][]model.StudentQuiz
	invalidated int
}

func newCountingCache() *countingCache {
	return &countingCache{stored: map[int64][]model.StudentQuiz{}}
}

func (c *countingCache) Get(context.Context) ([]model.StudentQuiz, int64, bool) {
	q, ok := c.stored[c.generation]
	return q, c.generation, ok
}

func (c *countingCache) Set(_ context.Context, generation int64, q []model.StudentQuiz) {
	c.stored[generation] = q
}

func (c *countingCache) Invalidate(context.Context) {
	c.generation++
	c.invalidated++
}

func (c *countingCache) has() bool {
	_, ok := c.stored[c.generation]
	return ok
}

type fixture struct {
	quizzes  *repository.MemoryQuizRepository
	attempts *repository.MemoryAttemptRepository
	cache    *countingCache
	authorSv *QuizService
	student  *StudentQuizService
	review   *ReviewService
	uploader *fakeUploader
}

func newFixture() *fixture {
	f := &fixture{
		quizzes:  repository.NewMemoryQuizRepository(),
		attempts: repository.NewMemoryAttemptRepository(),
		cache:    newCountingCache(),
		uploader: &fakeUploader{},
	}
	access := policy.NewOwnerPolicy()
	clk := &clock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}

	f.authorSv = NewQuizService(f.quizzes, f.cache, access)
	f.student = NewStudentQuizService(f.quizzes, f.attempts, f.cache, access)
	f.student.Now = clk.Now
	f.review = NewReviewService(f.quizzes, f.attempts, f.uploader, config.QuizConfig{
		PracticeMaxQuestions:     10,
		PracticeDefaultQuestions: 5,
	})
	f.review.Now = clk.Now
	return f
}

func intPtr(v int) *int { return &v }

// basicsQuiz 两道题：q1 正确答案 "4" 2 分，q2 正确答案 "Paris" 3 分
func (f *fixture) basicsQuiz(t *testing.T, owner model.Principal, active bool) *model.Quiz {
	t.Helper()
	quiz, err := f.authorSv.CreateQuiz(context.Background(), owner, CreateQuizReq{
		Title:       "Basics",
		Description: "warm-up",
		IsActive:    active,
		Questions: []QuestionReq{
			{Type: model.MultipleChoice, Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4", Points: intPtr(2), Explanation: "sum"},
			{Type: model.ShortAnswer, Question: "Capital of France?", CorrectAnswer: "Paris", Points: intPtr(3), Explanation: "geo"},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return quiz
}

func validationErrors(t *testing.T, err error) []string {
	t.Helper()
	ve, ok := util.IsValidationError(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	return ve.Errors
}

func TestCreateQuizRejectsEmptyTitle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.authorSv.CreateQuiz(ctx, teacherA, CreateQuizReq{Title: ""})
	errs := validationErrors(t, err)
	if len(errs) != 1 || !strings.Contains(errs[0], "title") {
		t.Fatalf("expected title error, got %v", errs)
	}

	all, _ := f.quizzes.ListQuizzes(ctx, repository.QuizFilter{})
	if len(all) != 0 {
		t.Fatalf("nothing should be persisted, found %d quizzes", len(all))
	}
}

func TestCreateQuizReportsEveryQuestionError(t *testing.T) {
	f := newFixture()
	_, err := f.authorSv.CreateQuiz(context.Background(), teacherA, CreateQuizReq{
		Title: "",
		Questions: []QuestionReq{
			{Type: model.ShortAnswer, Question: "ok", CorrectAnswer: "x"},
			{Type: model.ShortAnswer, Question: "", CorrectAnswer: "", Points: intPtr(0)},
		},
	})
	errs := validationErrors(t, err)
	want := []string{
		"title is required",
		"questions[1]: question text is required",
		"questions[1]: correct answer is required",
		"questions[1]: points must be a positive integer",
	}
	if strings.Join(errs, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", errs, want)
	}
}

func TestCreateQuizAssignsOwnerAndDefaults(t *testing.T) {
	f := newFixture()
	quiz, err := f.authorSv.CreateQuiz(context.Background(), teacherA, CreateQuizReq{
		Title:     "Defaults",
		Questions: []QuestionReq{{Type: model.TrueFalse, Question: "Go is compiled", Options: []string{"True", "False"}, CorrectAnswer: "True"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if quiz.TeacherID != teacherA.UserID || quiz.IsActive {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	q := quiz.Questions[0]
	if q.Points != model.DefaultQuestionPoints || q.Order != 0 || len(q.Options) != 0 {
		t.Fatalf("unexpected question defaults %+v", q)
	}

	_, err = f.authorSv.CreateQuiz(context.Background(), student, CreateQuizReq{Title: "nope"})
	if !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("students cannot author, got %v", err)
	}
}

func TestUpdateQuizOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherB, true)
	title := "Renamed"

	_, err := f.authorSv.UpdateQuiz(ctx, quiz.ID, teacherA, UpdateQuizReq{Title: &title})
	if !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("teacher A must not edit teacher B's quiz, got %v", err)
	}

	updated, err := f.authorSv.UpdateQuiz(ctx, quiz.ID, admin, UpdateQuizReq{Title: &title})
	if err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if updated.Title != "Renamed" || updated.Description != "warm-up" || updated.TeacherID != teacherB.UserID {
		t.Fatalf("patch not merged: %+v", updated)
	}

	_, err = f.authorSv.UpdateQuiz(ctx, "missing", admin, UpdateQuizReq{Title: &title})
	if !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	blank := " "
	_, err = f.authorSv.UpdateQuiz(ctx, quiz.ID, teacherB, UpdateQuizReq{Title: &blank})
	validationErrors(t, err)
}

func TestListQuizzesScopesByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.basicsQuiz(t, teacherA, true)
	f.basicsQuiz(t, teacherA, false)
	f.basicsQuiz(t, teacherB, false)

	own, err := f.authorSv.ListQuizzes(ctx, teacherA)
	if err != nil || len(own) != 2 {
		t.Fatalf("teacher A sees own quizzes including inactive: %d, %v", len(own), err)
	}
	all, _ := f.authorSv.ListQuizzes(ctx, admin)
	if len(all) != 3 {
		t.Fatalf("admin sees all, got %d", len(all))
	}
	if _, err := f.authorSv.ListQuizzes(ctx, student); !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("students use the available-quiz listing, got %v", err)
	}
}

func TestQuestionLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherA, true)
	before := f.cache.invalidated

	added, err := f.authorSv.AddQuestion(ctx, quiz.ID, teacherA, QuestionReq{Type: model.ShortAnswer, Question: "3*3?", CorrectAnswer: "9"})
	if err != nil {
		t.Fatal(err)
	}
	if added.Order != 2 || added.ID == "" || added.QuizID != quiz.ID {
		t.Fatalf("unexpected question %+v", added)
	}

	newText := "3 times 3?"
	updated, err := f.authorSv.UpdateQuestion(ctx, quiz.ID, added.ID, teacherA, QuestionPatchReq{Question: &newText})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Prompt != newText || updated.CorrectAnswer != "9" {
		t.Fatalf("patch not merged: %+v", updated)
	}

	zero := 0
	_, err = f.authorSv.UpdateQuestion(ctx, quiz.ID, added.ID, teacherA, QuestionPatchReq{Points: &zero})
	validationErrors(t, err)

	if _, err := f.authorSv.UpdateQuestion(ctx, quiz.ID, "missing", teacherA, QuestionPatchReq{}); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if _, err := f.authorSv.AddQuestion(ctx, quiz.ID, teacherB, QuestionReq{Type: model.ShortAnswer, Question: "x", CorrectAnswer: "y"}); !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}

	if err := f.authorSv.DeleteQuestion(ctx, quiz.ID, added.ID, teacherA); err != nil {
		t.Fatal(err)
	}
	if err := f.authorSv.DeleteQuestion(ctx, quiz.ID, added.ID, teacherA); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Fatalf("deleting twice should be not found, got %v", err)
	}
	if f.cache.invalidated-before != 3 {
		t.Fatalf("each successful write invalidates the list cache, got %d", f.cache.invalidated-before)
	}
}

func TestDeleteQuiz(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherA, true)

	if err := f.authorSv.DeleteQuiz(ctx, quiz.ID, teacherB); !errors.Is(err, util.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if err := f.authorSv.DeleteQuiz(ctx, quiz.ID, teacherA); err != nil {
		t.Fatal(err)
	}
	if err := f.authorSv.DeleteQuiz(ctx, quiz.ID, teacherA); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAvailableQuizzesAreActiveAndSanitized(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	active := f.basicsQuiz(t, teacherA, true)
	inactive := f.basicsQuiz(t, teacherA, false)

	list, err := f.student.ListAvailableQuizzes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != active.ID {
		t.Fatalf("only the active quiz is listed, got %+v", list)
	}
	if list[0].TotalPoints != 5 || len(list[0].Questions) != 2 {
		t.Fatalf("unexpected view %+v", list[0])
	}
	if !f.cache.has() {
		t.Fatal("listing should populate the cache")
	}

	if _, err := f.student.GetAvailableQuiz(ctx, inactive.ID); !errors.Is(err, util.ErrQuizInactive) {
		t.Fatalf("inactive quiz is not available, got %v", err)
	}

	// 启用后缓存失效，重新列出
	if _, err := f.authorSv.SetQuizActive(ctx, inactive.ID, teacherA, true); err != nil {
		t.Fatal(err)
	}
	list, _ = f.student.ListAvailableQuizzes(ctx)
	if len(list) != 2 {
		t.Fatalf("activated quiz should be listed, got %d", len(list))
	}
}

func TestStartQuizAttemptResumesOpenAttempt(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherA, true)

	first, err := f.student.StartQuizAttempt(ctx, quiz.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if first.TotalPoints != 5 || first.StartTotalPoints != 5 || first.IsCompleted {
		t.Fatalf("unexpected attempt %+v", first)
	}

	again, err := f.student.StartQuizAttempt(ctx, quiz.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected resumed attempt %s, got %s", first.ID, again.ID)
	}

	other, _ := f.student.StartQuizAttempt(ctx, quiz.ID, student2)
	if other.ID == first.ID {
		t.Fatal("attempts are per student")
	}

	inactive := f.basicsQuiz(t, teacherA, false)
	if _, err := f.student.StartQuizAttempt(ctx, inactive.ID, student); !errors.Is(err, util.ErrQuizInactive) {
		t.Fatalf("expected inactive, got %v", err)
	}
	if _, err := f.student.StartQuizAttempt(ctx, "missing", student); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCompleteQuizAttemptScores(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherA, true)
	q1, q2 := quiz.Questions[0].ID, quiz.Questions[1].ID

	attempt, _ := f.student.StartQuizAttempt(ctx, quiz.ID, student)
	if _, err := f.student.SubmitAnswer(ctx, attempt.ID, student, SubmitAnswerReq{QuestionID: q1, Answer: "4"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.student.SubmitAnswer(ctx, attempt.ID, student, SubmitAnswerReq{QuestionID: q2, Answer: "London"}); err != nil {
		t.Fatal(err)
	}

	result, err := f.student.CompleteQuizAttempt(ctx, attempt.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if result.Attempt.Score != 2 || result.Attempt.TotalPoints != 5 || result.Percentage != 40.0 {
		t.Fatalf("got score=%d total=%d pct=%v", result.Attempt.Score, result.Attempt.TotalPoints, result.Percentage)
	}
	if !result.Attempt.IsCompleted || result.Attempt.CompletedAt == nil || result.PointsDrift != 0 {
		t.Fatalf("unexpected completion %+v", result)
	}

	if _, err := f.student.CompleteQuizAttempt(ctx, attempt.ID, student); !errors.Is(err, util.ErrAttemptAlreadyCompleted) {
		t.Fatalf("second completion should fail, got %v", err)
	}
	if _, err := f.student.SubmitAnswer(ctx, attempt.ID, student, SubmitAnswerReq{QuestionID: q2, Answer: "Paris"}); !errors.Is(err, util.ErrAttemptAlreadyCompleted) {
		t.Fatalf("answers are frozen after completion, got %v", err)
	}

	stored, _ := f.attempts.FindAttemptByID(ctx, attempt.ID)
	if stored.AnswerMap()[q2] != "London" || stored.Score != 2 {
		t.Fatalf("completed attempt changed: %+v", stored)
	}

	// 完成后再开始会新建作答
	next, _ := f.student.StartQuizAttempt(ctx, quiz.ID, student)
	if next.ID == attempt.ID {
		t.Fatal("a completed attempt must not be resumed")
	}
}

func TestCompleteQuizAttemptUsesCurrentQuestions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherA, true)

	attempt, _ := f.student.StartQuizAttempt(ctx, quiz.ID, student)
	_, _ = f.student.SubmitAnswer(ctx, attempt.ID, student, SubmitAnswerReq{QuestionID: quiz.Questions[0].ID, Answer: "4"})

	if _, err := f.authorSv.AddQuestion(ctx, quiz.ID, teacherA, QuestionReq{Type: model.ShortAnswer, Question: "extra", CorrectAnswer: "x", Points: intPtr(5)}); err != nil {
		t.Fatal(err)
	}

	result, err := f.student.CompleteQuizAttempt(ctx, attempt.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if result.Attempt.TotalPoints != 10 || result.Attempt.StartTotalPoints != 5 || result.PointsDrift != 5 {
		t.Fatalf("expected drift to be surfaced, got %+v", result.Attempt)
	}
	if result.Percentage != 20.0 {
		t.Fatalf("percentage = %v, want 20", result.Percentage)
	}
}

func TestAttemptsArePrivate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherA, true)
	attempt, _ := f.student.StartQuizAttempt(ctx, quiz.ID, student)

	req := SubmitAnswerReq{QuestionID: quiz.Questions[0].ID, Answer: "4"}
	if _, err := f.student.SubmitAnswer(ctx, attempt.ID, student2, req); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("other student's attempt is hidden, got %v", err)
	}
	if _, err := f.student.CompleteQuizAttempt(ctx, attempt.ID, student2); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("other student cannot complete, got %v", err)
	}
	if _, err := f.student.GetAttemptDetails(ctx, attempt.ID, admin); !errors.Is(err, util.ErrAttemptNotFound) {
		t.Fatalf("admin cannot read attempt through student api, got %v", err)
	}
}

func TestGetAttemptDetails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	quiz := f.basicsQuiz(t, teacherA, true)
	attempt, _ := f.student.StartQuizAttempt(ctx, quiz.ID, student)
	_, _ = f.student.SubmitAnswer(ctx, attempt.ID, student, SubmitAnswerReq{QuestionID: quiz.Questions[0].ID, Answer: "4"})

	inProgress, err := f.student.GetAttemptDetails(ctx, attempt.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if inProgress.Results != nil || inProgress.Percentage != nil {
		t.Fatal("answer key must not be shown before completion")
	}
	if inProgress.Quiz == nil || inProgress.Quiz.QuestionCount != 2 {
		t.Fatalf("in-progress detail carries the sanitized quiz, got %+v", inProgress.Quiz)
	}

	_, _ = f.student.CompleteQuizAttempt(ctx, attempt.ID, student)
	done, err := f.student.GetAttemptDetails(ctx, attempt.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if done.QuizTitle != "Basics" || done.Percentage == nil || *done.Percentage != 40.0 {
		t.Fatalf("unexpected detail %+v", done)
	}
	if len(done.Results) != 2 || !done.Results[0].IsCorrect || done.Results[1].UserAnswer != model.NoAnswer {
		t.Fatalf("unexpected breakdown %+v", done.Results)
	}
	if done.Results[1].CorrectAnswer != "Paris" {
		t.Fatal("completed breakdown reveals the answer")
	}
}

func TestQuizHistoryKeepsDeletedQuizzes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	kept := f.basicsQuiz(t, teacherA, true)
	removed := f.basicsQuiz(t, teacherA, true)

	a1, _ := f.student.StartQuizAttempt(ctx, kept.ID, student)
	_, _ = f.student.CompleteQuizAttempt(ctx, a1.ID, student)
	_, _ = f.student.StartQuizAttempt(ctx, removed.ID, student)

	if err := f.authorSv.DeleteQuiz(ctx, removed.ID, teacherA); err != nil {
		t.Fatal(err)
	}

	history, err := f.student.GetQuizHistory(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history items, got %d", len(history))
	}
	// 最新的在前
	if history[0].QuizTitle != model.UnknownQuizTitle || history[0].Percentage != nil {
		t.Fatalf("deleted quiz attempt: %+v", history[0])
	}
	if history[1].QuizTitle != "Basics" || history[1].QuizDescription != "warm-up" || history[1].Percentage == nil {
		t.Fatalf("completed attempt: %+v", history[1])
	}

	empty, _ := f.student.GetQuizHistory(ctx, student2)
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty history, got %#v", empty)
	}
}

// deactivateAfterList 在学生查完列表、写回缓存之前停用测验
type deactivateAfterList struct {
	*repository.MemoryQuizRepository
	after func()
}

func (s *deactivateAfterList) ListQuizzes(ctx context.Context, filter repository.QuizFilter) ([]model.Quiz, error) {
	quizzes, err := s.MemoryQuizRepository.ListQuizzes(ctx, filter)
	if s.after != nil {
		fn := s.after
		s.after = nil
		fn()
	}
	return quizzes, err
}

func TestDeactivatedQuizNotServedFromCacheAfterConcurrentRead(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cache := repository.NewQuizListCache(rdb, time.Minute)
	base := repository.NewMemoryQuizRepository()
	store := &deactivateAfterList{MemoryQuizRepository: base}
	access := policy.NewOwnerPolicy()
	authoring := NewQuizService(base, cache, access)
	students := NewStudentQuizService(store, repository.NewMemoryAttemptRepository(), cache, access)

	quiz, err := authoring.CreateQuiz(ctx, teacherA, CreateQuizReq{
		Title:     "Basics",
		IsActive:  true,
		Questions: []QuestionReq{{Type: model.ShortAnswer, Question: "Capital of France?", CorrectAnswer: "Paris"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	store.after = func() {
		if _, err := authoring.SetQuizActive(ctx, quiz.ID, teacherA, false); err != nil {
			t.Errorf("deactivate: %v", err)
		}
	}
	if _, err := students.ListAvailableQuizzes(ctx); err != nil {
		t.Fatal(err)
	}

	list, err := students.ListAvailableQuizzes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("deactivated quiz still offered: %+v", list)
	}
}
