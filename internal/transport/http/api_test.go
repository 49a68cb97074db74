package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizmentor/internal/app"
	"quizmentor/internal/domain"
	"quizmentor/internal/infra/memory"
)

func newTestServer(t *testing.T, auth *Authenticator) *httptest.Server {
	t.Helper()
	store := memory.NewQuizStore(sampleQuizzes())
	quizRepo := memory.NewQuizRepository(store, time.Minute)
	attempts := memory.NewAttemptStore()
	attemptService := app.NewAttemptService(quizRepo, attempts, memory.NewDraftStore(), memory.NewSessionStore(), time.Millisecond)
	api := NewAPI(app.NewQuizService(quizRepo, store), attemptService, app.NewGradingService(attempts))
	server := httptest.NewServer(NewRouter(api, NewWSHandler(attemptService), auth))
	t.Cleanup(server.Close)
	return server
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Title:     "Basics",
			TeacherID: "t1",
			Questions: []domain.Question{
				{ID: "q1", Type: domain.MultipleChoice, Text: "What is 2 + 2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: "4", Points: 5, Order: 0},
				{ID: "q2", Type: domain.Essay, Text: "Explain your reasoning.", Points: 10, Order: 1},
			},
		},
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, nil)
	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCreateAndGetQuiz(t *testing.T) {
	server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/quizzes", map[string]any{
		"title":     "New quiz",
		"teacherId": "t1",
		"questions": []map[string]any{
			{"type": "true_false", "text": "Go has generics.", "correctAnswer": "true"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var created struct {
		Quiz domain.Quiz `json:"quiz"`
	}
	decodeBody(t, resp, &created)
	if created.Quiz.ID == "" {
		t.Fatalf("expected assigned quiz id")
	}
	if created.Quiz.Questions[0].Points != 1 {
		t.Fatalf("expected default points, got %d", created.Quiz.Questions[0].Points)
	}

	resp, err := http.Get(server.URL + "/quizzes/" + created.Quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var fetched struct {
		Quiz domain.Quiz `json:"quiz"`
	}
	decodeBody(t, resp, &fetched)
	if fetched.Quiz.Title != "New quiz" {
		t.Fatalf("unexpected quiz: %+v", fetched.Quiz)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	server := newTestServer(t, nil)

	// Correct answer missing from the options.
	resp := postJSON(t, server.URL+"/quizzes", map[string]any{
		"title":     "Broken",
		"teacherId": "t1",
		"questions": []map[string]any{
			{"type": "multiple_choice", "text": "Pick one", "options": []string{"a", "b"}, "correctAnswer": "z"},
		},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp, err := http.Get(server.URL + "/quizzes/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAttemptFlow(t *testing.T) {
	server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/attempts", map[string]any{"quizId": "quiz-1", "studentId": "s1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", resp.StatusCode)
	}
	var started struct {
		Attempt domain.Attempt `json:"attempt"`
	}
	decodeBody(t, resp, &started)
	if started.Attempt.Status != domain.AttemptInProgress {
		t.Fatalf("expected in-progress attempt, got %s", started.Attempt.Status)
	}

	// Starting again resumes the same attempt.
	resp = postJSON(t, server.URL+"/attempts", map[string]any{"quizId": "quiz-1", "studentId": "s1"})
	var resumed struct {
		Attempt domain.Attempt `json:"attempt"`
	}
	decodeBody(t, resp, &resumed)
	if resumed.Attempt.ID != started.Attempt.ID {
		t.Fatalf("expected resumed attempt")
	}

	resp = postJSON(t, server.URL+"/attempts/submit", map[string]any{
		"attemptId": started.Attempt.ID,
		"answers":   map[string]string{"q1": "4", "q2": "Because arithmetic."},
		"timeSpent": 75,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", resp.StatusCode)
	}
	var submitted struct {
		Attempt domain.Attempt       `json:"attempt"`
		Answers []domain.Answer      `json:"answers"`
		Result  domain.ResultSummary `json:"result"`
	}
	decodeBody(t, resp, &submitted)
	if submitted.Attempt.Score != 5 || submitted.Attempt.TotalPoints != 15 {
		t.Fatalf("expected 5/15, got %d/%d", submitted.Attempt.Score, submitted.Attempt.TotalPoints)
	}
	if submitted.Result.TimeSpent != "01:15" {
		t.Fatalf("unexpected time display %q", submitted.Result.TimeSpent)
	}
	if len(submitted.Answers) != 2 {
		t.Fatalf("expected 2 answer rows, got %d", len(submitted.Answers))
	}

	// Double submission conflicts.
	resp = postJSON(t, server.URL+"/attempts/submit", map[string]any{
		"attemptId": started.Attempt.ID,
		"answers":   map[string]string{"q1": "4"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp, err := http.Get(server.URL + "/attempts/" + started.Attempt.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	var fetched struct {
		Attempt domain.Attempt       `json:"attempt"`
		Result  domain.ResultSummary `json:"result"`
	}
	decodeBody(t, resp, &fetched)
	if fetched.Attempt.Status != domain.AttemptCompleted || fetched.Result.Score != 5 {
		t.Fatalf("unexpected stored attempt: %+v %+v", fetched.Attempt, fetched.Result)
	}
}

func TestAttemptValidation(t *testing.T) {
	server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/attempts", map[string]any{"studentId": "s1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing quizId: expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/attempts", map[string]any{"quizId": "quiz-1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing studentId: expected 400, got %d", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/attempts/submit", map[string]any{"attemptId": "missing"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown attempt: expected 404, got %d", resp.StatusCode)
	}

	resp, err := http.Get(server.URL + "/attempts/missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGradingEndpoints(t *testing.T) {
	server := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/attempts", map[string]any{"quizId": "quiz-1", "studentId": "s1"})
	var started struct {
		Attempt domain.Attempt `json:"attempt"`
	}
	decodeBody(t, resp, &started)

	resp = postJSON(t, server.URL+"/attempts/submit", map[string]any{
		"attemptId": started.Attempt.ID,
		"answers":   map[string]string{"q1": "4", "q2": "My essay."},
	})
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/grades?quizId=quiz-1")
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	var pending struct {
		Answers []domain.Answer `json:"answers"`
	}
	decodeBody(t, resp, &pending)
	if len(pending.Answers) != 1 || pending.Answers[0].QuestionID != "q2" {
		t.Fatalf("unexpected pending queue: %+v", pending.Answers)
	}

	resp = postJSON(t, server.URL+"/grades", map[string]any{
		"answerId":      pending.Answers[0].ID,
		"teacherId":     "t1",
		"pointsAwarded": 9,
		"feedback":      "nearly there",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("grade: expected 200, got %d", resp.StatusCode)
	}
	var graded struct {
		ManualGrade domain.ManualGrade `json:"manualGrade"`
	}
	decodeBody(t, resp, &graded)
	if graded.ManualGrade.PointsAwarded != 9 {
		t.Fatalf("unexpected grade: %+v", graded.ManualGrade)
	}

	// Points beyond the question's worth are rejected.
	resp = postJSON(t, server.URL+"/grades", map[string]any{
		"answerId":      pending.Answers[0].ID,
		"teacherId":     "t1",
		"pointsAwarded": 11,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	// Missing quizId on the queue endpoint.
	resp, err = http.Get(server.URL + "/grades")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
