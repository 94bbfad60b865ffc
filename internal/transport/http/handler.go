// Package http wires the quiz use cases to the REST and websocket surface.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"chapter-quiz-service/internal/app"
	"chapter-quiz-service/internal/domain"
)

// 1 MiB is plenty for a question batch upload.
const maxUploadBytes = 1 << 20

type Handler struct {
	service  *app.QuizService
	validate *validator.Validate
	stream   *LeaderboardStream
}

func NewHandler(service *app.QuizService) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		stream:   NewLeaderboardStream(service),
	}
}

// Routes builds the router with CORS open to any origin, as the service is
// consumed by browser clients on other hosts.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws/leaderboard", h.stream.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Get("/chapters", h.listChapters)
		r.Get("/questions/{chapterID}", h.chapterQuestions)
		r.Post("/submit", h.submitQuiz)
		r.Get("/leaderboard/chapter/{chapterID}", h.chapterLeaderboard)
		r.Get("/leaderboard/global", h.globalLeaderboard)
		r.Get("/user/{userID}", h.getUser)
		r.Post("/admin/chapter", h.createChapter)
		r.Post("/admin/chapter/{chapterID}/questions", h.addQuestions)
	})
	return r
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
}

type registerResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.service.Register(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{UserID: user.ID, Username: user.Username})
}

func (h *Handler) listChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.service.ListChapters(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chapters)
}

// questionView is the client-facing question shape: the correct answer and
// explanation never leave the server before submission.
type questionView struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (h *Handler) chapterQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ChapterQuestions(r.Context(), chi.URLParam(r, "chapterID"))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]questionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, questionView{
			ID:       question.ID,
			Question: question.Text,
			Options:  question.Options,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type submitRequest struct {
	UserID    string         `json:"userId" validate:"required"`
	ChapterID string         `json:"chapterId" validate:"required"`
	Answers   map[string]int `json:"answers" validate:"required"`
}

func (h *Handler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.service.SubmitQuiz(r.Context(), req.UserID, req.ChapterID, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) chapterLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ChapterLeaderboard(r.Context(), chi.URLParam(r, "chapterID"), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) globalLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GlobalLeaderboard(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type userResponse struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	TotalScore       int    `json:"totalScore"`
	QuizzesCompleted int    `json:"quizzesCompleted"`
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		ID:               user.ID,
		Username:         user.Username,
		TotalScore:       user.TotalScore,
		QuizzesCompleted: user.QuizzesCompleted,
	})
}

type createChapterRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

func (h *Handler) createChapter(w http.ResponseWriter, r *http.Request) {
	var req createChapterRequest
	if !h.decode(w, r, &req) {
		return
	}
	chapter, err := h.service.CreateChapter(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chapter)
}

type addQuestionsResponse struct {
	Message   string            `json:"message"`
	Questions []domain.Question `json:"questions"`
}

// addQuestions accepts either a raw JSON array body or a multipart upload
// with the same array in a "file" field.
func (h *Handler) addQuestions(w http.ResponseWriter, r *http.Request) {
	raw, err := questionPayload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var batch []domain.NewQuestion
	if err := json.Unmarshal(raw, &batch); err != nil {
		writeError(w, fmt.Errorf("%w: body must be a JSON array of questions", domain.ErrValidation))
		return
	}

	created, err := h.service.AddQuestions(r.Context(), chi.URLParam(r, "chapterID"), batch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addQuestionsResponse{
		Message:   fmt.Sprintf("added %d questions", len(created)),
		Questions: created,
	})
}

func questionPayload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("%w: malformed multipart upload", domain.ErrValidation)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: missing file field", domain.ErrValidation)
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxUploadBytes))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
}

// decode unmarshals and validates a JSON request body, answering 400 itself
// when the payload is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(dst); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON body", domain.ErrValidation))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, fmt.Errorf("%w: %s", domain.ErrValidation, validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		return strings.ToLower(fields[0].Field()) + " is required"
	}
	return "invalid request"
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0 // service applies the default
	}
	return limit
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrChapterNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrReadOnlyContent):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
