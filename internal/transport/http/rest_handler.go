package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"

	"github.com/gorilla/mux"
)

// RESTHandler exposes the command interface over HTTP. The websocket carries
// broadcasts and low-latency commands; everything here is plain request/reply
// with the same typed outcomes.
type RESTHandler struct {
	service *app.GameService
}

func NewRESTHandler(service *app.GameService) *RESTHandler {
	return &RESTHandler{service: service}
}

// Routes mounts all REST endpoints onto a router.
func (h *RESTHandler) Routes(r *mux.Router) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/quiz", h.createQuiz).Methods(http.MethodPost)
	api.HandleFunc("/quiz/generate", h.generateQuestions).Methods(http.MethodPost)

	api.HandleFunc("/game", h.createGame).Methods(http.MethodPost)
	api.HandleFunc("/game/history", h.history).Methods(http.MethodGet)
	api.HandleFunc("/game/history/{id}", h.deleteHistory).Methods(http.MethodDelete)
	api.HandleFunc("/game/{pin}/join", h.joinGame).Methods(http.MethodPost)
	api.HandleFunc("/game/{pin}/start", h.startGame).Methods(http.MethodPost)
	api.HandleFunc("/game/{pin}/advance", h.advanceQuestion).Methods(http.MethodPost)
	api.HandleFunc("/game/{pin}/answer", h.submitAnswer).Methods(http.MethodPost)
	api.HandleFunc("/game/{pin}/end", h.endGame).Methods(http.MethodPost)
	api.HandleFunc("/game/{pin}/status", h.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/game/{pin}/question/{questionId}/results", h.questionResults).Methods(http.MethodGet)
	api.HandleFunc("/game/{pin}/results", h.summary).Methods(http.MethodGet)
	api.HandleFunc("/game/{pin}/leaderboard", h.leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/game/{pin}/certificate/settings", h.getCertificateSettings).Methods(http.MethodGet)
	api.HandleFunc("/game/{pin}/certificate/settings", h.setCertificateSettings).Methods(http.MethodPost)
	api.HandleFunc("/game/{pin}/certificate/{playerId}", h.certificateStatus).Methods(http.MethodGet)
}

func (h *RESTHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var quiz domain.Quiz
	if !decode(w, r, &quiz) {
		return
	}
	created, err := h.service.CreateQuiz(r.Context(), quiz)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RESTHandler) generateQuestions(w http.ResponseWriter, r *http.Request) {
	var req app.GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	questions, err := h.service.GenerateQuestions(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *RESTHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuizID   string `json:"quizId"`
		HostName string `json:"hostName"`
	}
	if !decode(w, r, &req) {
		return
	}
	view, err := h.service.CreateGame(r.Context(), req.QuizID, req.HostName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *RESTHandler) joinGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		RollNumber string `json:"rollNumber"`
	}
	if !decode(w, r, &req) {
		return
	}
	player, err := h.service.JoinGame(r.Context(), mux.Vars(r)["pin"], req.Name, req.RollNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, player)
}

func (h *RESTHandler) startGame(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.StartGame(r.Context(), mux.Vars(r)["pin"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *RESTHandler) advanceQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.service.AdvanceQuestion(r.Context(), mux.Vars(r)["pin"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *RESTHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID   string `json:"playerId"`
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	}
	if !decode(w, r, &req) {
		return
	}
	answer, err := h.service.SubmitAnswer(r.Context(), mux.Vars(r)["pin"], req.PlayerID, req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (h *RESTHandler) endGame(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.EndGame(r.Context(), mux.Vars(r)["pin"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

func (h *RESTHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetStatus(r.Context(), mux.Vars(r)["pin"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RESTHandler) questionResults(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	results, err := h.service.QuestionResults(r.Context(), vars["pin"], vars["questionId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *RESTHandler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), mux.Vars(r)["pin"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *RESTHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	pin := mux.Vars(r)["pin"]
	var (
		board []domain.LeaderboardEntry
		err   error
	)
	if r.URL.Query().Get("final") == "true" {
		board, err = h.service.FinalLeaderboard(r.Context(), pin)
	} else {
		board, err = h.service.Leaderboard(r.Context(), pin)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}

func (h *RESTHandler) getCertificateSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.CertificateSettings(r.Context(), mux.Vars(r)["pin"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *RESTHandler) setCertificateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold          int  `json:"threshold"`
		TemplateConfigured bool `json:"templateConfigured"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Threshold == 0 {
		req.Threshold = domain.DefaultCertificateThreshold
	}
	if err := h.service.SetCertificateSettings(r.Context(), mux.Vars(r)["pin"], req.Threshold, req.TemplateConfigured); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.CertificateSettings{
		Threshold:          req.Threshold,
		TemplateConfigured: req.TemplateConfigured,
	})
}

func (h *RESTHandler) certificateStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	status, err := h.service.CertificateStatus(r.Context(), vars["pin"], vars["playerId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *RESTHandler) history(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.History(r.Context(), r.URL.Query().Get("host"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *RESTHandler) deleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteHistory(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("host")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "hosted game history deleted"})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, domain.Errorf(domain.KindValidation, "invalid request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Routine game
// outcomes are client-visible conditions, not server faults, so nothing in
// the 4xx family gets logged.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := http.StatusConflict
	switch kind {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindValidation:
		status = http.StatusUnprocessableEntity
	case domain.KindTimeExpired, domain.KindStaleQuestion:
		status = http.StatusGone
	case domain.KindUnavailable:
		status = http.StatusServiceUnavailable
		log.Printf("service unavailable: %v", err)
	}
	writeJSON(w, status, errorPayload{Kind: kind.String(), Message: err.Error()})
}
