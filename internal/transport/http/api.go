package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"quizmentor/internal/app"
	"quizmentor/internal/domain"
)

// API exposes the quiz-taking and grading flow over JSON REST.
type API struct {
	quizzes  *app.QuizService
	attempts *app.AttemptService
	grading  *app.GradingService
}

func NewAPI(quizzes *app.QuizService, attempts *app.AttemptService, grading *app.GradingService) *API {
	return &API{quizzes: quizzes, attempts: attempts, grading: grading}
}

// NewRouter assembles the HTTP surface. The auth middleware is applied to
// the REST routes when an authenticator is configured; the websocket
// endpoint carries identity in its query instead.
func NewRouter(api *API, ws *WSHandler, auth *Authenticator) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws/attempts", ws.ServeWS)

	rest := r.NewRoute().Subrouter()
	if auth != nil {
		rest.Use(auth.Middleware)
	}
	rest.HandleFunc("/attempts", api.startAttempt).Methods(http.MethodPost)
	rest.HandleFunc("/attempts/submit", api.submitAttempt).Methods(http.MethodPost)
	rest.HandleFunc("/attempts/{id}", api.getAttempt).Methods(http.MethodGet)
	rest.HandleFunc("/quizzes", api.createQuiz).Methods(http.MethodPost)
	rest.HandleFunc("/quizzes/{id}", api.getQuiz).Methods(http.MethodGet)
	rest.HandleFunc("/grades", api.upsertGrade).Methods(http.MethodPost)
	rest.HandleFunc("/grades", api.pendingGrades).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
	)
	return handlers.CombinedLoggingHandler(os.Stdout, cors(r))
}

func (a *API) startAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizID    string `json:"quizId"`
		StudentID string `json:"studentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuizID == "" {
		writeJSONError(w, http.StatusBadRequest, "quizId is required")
		return
	}
	if identity, ok := IdentityFrom(r.Context()); ok && identity.Role == RoleStudent && identity.UserID != req.StudentID {
		writeJSONError(w, http.StatusForbidden, "studentId does not match token")
		return
	}

	_, attempt, err := a.attempts.Start(r.Context(), req.QuizID, req.StudentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempt": attempt})
}

func (a *API) submitAttempt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AttemptID string            `json:"attemptId"`
		Answers   map[string]string `json:"answers"`
		TimeSpent int               `json:"timeSpent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AttemptID == "" {
		writeJSONError(w, http.StatusBadRequest, "attemptId is required")
		return
	}

	attempt, answers, summary, err := a.attempts.SubmitAnswers(r.Context(), req.AttemptID, req.Answers, req.TimeSpent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempt": attempt,
		"answers": answers,
		"result":  summary,
	})
}

func (a *API) getAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, answers, summary, err := a.attempts.Attempt(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempt": attempt,
		"answers": answers,
		"result":  summary,
	})
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	if identity, ok := IdentityFrom(r.Context()); ok && identity.Role != RoleTeacher {
		writeJSONError(w, http.StatusForbidden, "teacher role required")
		return
	}
	var quiz domain.Quiz
	if err := json.NewDecoder(r.Body).Decode(&quiz); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := a.quizzes.Create(r.Context(), quiz)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": created})
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quiz": quiz})
}

func (a *API) upsertGrade(w http.ResponseWriter, r *http.Request) {
	if identity, ok := IdentityFrom(r.Context()); ok && identity.Role != RoleTeacher {
		writeJSONError(w, http.StatusForbidden, "teacher role required")
		return
	}
	var req struct {
		AnswerID      string `json:"answerId"`
		TeacherID     string `json:"teacherId"`
		PointsAwarded int    `json:"pointsAwarded"`
		Feedback      string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	grade, err := a.grading.Grade(r.Context(), req.AnswerID, req.TeacherID, req.PointsAwarded, req.Feedback)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"manualGrade": grade})
}

func (a *API) pendingGrades(w http.ResponseWriter, r *http.Request) {
	if identity, ok := IdentityFrom(r.Context()); ok && identity.Role != RoleTeacher {
		writeJSONError(w, http.StatusForbidden, "teacher role required")
		return
	}
	answers, err := a.grading.Pending(r.Context(), r.URL.Query().Get("quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if answers == nil {
		answers = []domain.Answer{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"answers": answers})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto the status conventions: 400 for
// validation, 404 for missing entities, 409 for double submission, 500
// otherwise with the detail kept server-side.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingField),
		errors.Is(err, domain.ErrStudentRequired),
		errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrInvalidGrade),
		errors.Is(err, domain.ErrPointsExceeded),
		errors.Is(err, domain.ErrQuizEmpty):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrAnswerNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAttemptCompleted),
		errors.Is(err, domain.ErrAttemptSubmitted):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
