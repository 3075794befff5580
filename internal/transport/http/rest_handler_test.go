package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
	"livequiz-service/internal/infra/memory"

	"github.com/gorilla/mux"
)

func newRESTServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewQuizStore(map[string]domain.Quiz{"quiz-1": sampleQuiz()})
	registry := game.NewRegistry()
	service := app.NewGameService(registry, memory.NewQuizRepository(store, time.Minute), app.Options{
		QuizStore: store,
		Archive:   memory.NewArchive(),
	})

	router := mux.NewRouter()
	NewRESTHandler(service).Routes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d (%v)", method, url, resp.StatusCode, wantStatus, decoded)
	}
	return decoded
}

func TestRESTGameLifecycle(t *testing.T) {
	server := newRESTServer(t)
	base := server.URL + "/api"

	created := doJSON(t, http.MethodPost, base+"/game", map[string]any{
		"quizId":   "quiz-1",
		"hostName": "Ms. Frizzle",
	}, http.StatusCreated)
	pin, _ := created["pin"].(string)
	if pin == "" {
		t.Fatalf("no pin in response: %v", created)
	}

	player := doJSON(t, http.MethodPost, base+"/game/"+pin+"/join", map[string]any{
		"name":       "Alice",
		"rollNumber": "21",
	}, http.StatusCreated)
	playerID, _ := player["id"].(string)
	if playerID == "" {
		t.Fatalf("no player id: %v", player)
	}

	// Certificate settings are host-configurable while the lobby is open.
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/certificate/settings", map[string]any{
		"threshold":          50,
		"templateConfigured": true,
	}, http.StatusOK)

	question := doJSON(t, http.MethodPost, base+"/game/"+pin+"/start", nil, http.StatusOK)
	if question["questionId"] != "q1" {
		t.Fatalf("unexpected first question: %v", question)
	}

	answer := doJSON(t, http.MethodPost, base+"/game/"+pin+"/answer", map[string]any{
		"playerId":   playerID,
		"questionId": "q1",
		"answer":     "Paris",
	}, http.StatusOK)
	if answer["correct"] != true {
		t.Fatalf("expected correct answer: %v", answer)
	}

	results := doJSON(t, http.MethodGet, base+"/game/"+pin+"/question/q1/results", nil, http.StatusOK)
	if results["answeredCount"] != float64(1) || results["correctCount"] != float64(1) {
		t.Fatalf("unexpected results: %v", results)
	}

	status := doJSON(t, http.MethodGet, base+"/game/"+pin+"/status", nil, http.StatusOK)
	if status["status"] != string(domain.StatusInProgress) {
		t.Fatalf("unexpected status: %v", status)
	}

	ended := doJSON(t, http.MethodPost, base+"/game/"+pin+"/end", nil, http.StatusOK)
	board, _ := ended["leaderboard"].([]any)
	if len(board) != 1 {
		t.Fatalf("unexpected leaderboard: %v", ended)
	}

	summary := doJSON(t, http.MethodGet, base+"/game/"+pin+"/results", nil, http.StatusOK)
	if summary["totalQuestions"] != float64(2) {
		t.Fatalf("unexpected summary: %v", summary)
	}
	if rows, _ := summary["players"].([]any); len(rows) != 1 {
		t.Fatalf("expected one player row: %v", summary)
	}

	final := doJSON(t, http.MethodGet, base+"/game/"+pin+"/leaderboard?final=true", nil, http.StatusOK)
	if finalBoard, _ := final["leaderboard"].([]any); len(finalBoard) != 1 {
		t.Fatalf("unexpected final leaderboard: %v", final)
	}

	cert := doJSON(t, http.MethodGet, base+"/game/"+pin+"/certificate/"+playerID, nil, http.StatusOK)
	if cert["eligible"] != true {
		t.Fatalf("expected eligibility with one correct of two at threshold 50: %v", cert)
	}
}

func TestRESTErrorMapping(t *testing.T) {
	server := newRESTServer(t)
	base := server.URL + "/api"

	// Unknown PIN -> 404.
	body := doJSON(t, http.MethodGet, base+"/game/ZZZZZZ/status", nil, http.StatusNotFound)
	if body["kind"] != "not_found" {
		t.Fatalf("unexpected error body: %v", body)
	}

	created := doJSON(t, http.MethodPost, base+"/game", map[string]any{
		"quizId":   "quiz-1",
		"hostName": "Host",
	}, http.StatusCreated)
	pin := created["pin"].(string)

	// Starting with no players -> 409.
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/start", nil, http.StatusConflict)

	// Joining with a blank name -> 422.
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/join", map[string]any{"name": "  "}, http.StatusUnprocessableEntity)

	player := doJSON(t, http.MethodPost, base+"/game/"+pin+"/join", map[string]any{"name": "Alice"}, http.StatusCreated)
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/start", nil, http.StatusOK)

	// Answering a non-current question -> 410.
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/answer", map[string]any{
		"playerId":   player["id"],
		"questionId": "q2",
		"answer":     "Madrid",
	}, http.StatusGone)

	// Final leaderboard before the game ends -> 409.
	doJSON(t, http.MethodGet, base+"/game/"+pin+"/leaderboard?final=true", nil, http.StatusConflict)
}

func TestRESTCreateQuiz(t *testing.T) {
	server := newRESTServer(t)
	base := server.URL + "/api"

	quiz := doJSON(t, http.MethodPost, base+"/quiz", map[string]any{
		"title":     "Arithmetic",
		"createdBy": "teacher",
		"questions": []map[string]any{
			{"text": "2+2?", "options": []string{"3", "4"}, "correctAnswer": "4"},
		},
	}, http.StatusCreated)
	quizID, _ := quiz["id"].(string)
	if quizID == "" {
		t.Fatalf("quiz id not assigned: %v", quiz)
	}

	// The authored quiz is immediately hostable.
	doJSON(t, http.MethodPost, base+"/game", map[string]any{
		"quizId":   quizID,
		"hostName": "Host",
	}, http.StatusCreated)

	// Malformed quizzes are rejected.
	doJSON(t, http.MethodPost, base+"/quiz", map[string]any{
		"title":     "Broken",
		"createdBy": "teacher",
		"questions": []map[string]any{
			{"text": "2+2?", "options": []string{"3", "4"}, "correctAnswer": "5"},
		},
	}, http.StatusUnprocessableEntity)

	// Generation without a configured generator is unavailable.
	doJSON(t, http.MethodPost, base+"/quiz/generate", map[string]any{"topic": "space"}, http.StatusServiceUnavailable)
}

func TestRESTHistory(t *testing.T) {
	server := newRESTServer(t)
	base := server.URL + "/api"

	created := doJSON(t, http.MethodPost, base+"/game", map[string]any{
		"quizId":   "quiz-1",
		"hostName": "Archivist",
	}, http.StatusCreated)
	pin := created["pin"].(string)
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/join", map[string]any{"name": "Alice"}, http.StatusCreated)
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/start", nil, http.StatusOK)
	doJSON(t, http.MethodPost, base+"/game/"+pin+"/end", nil, http.StatusOK)

	// The archive write is asynchronous; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(base + "/game/history?host=Archivist")
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		var records []domain.GameRecord
		err = json.NewDecoder(resp.Body).Decode(&records)
		resp.Body.Close()
		if err == nil && len(records) == 1 {
			if records[0].PIN != pin {
				t.Fatalf("unexpected record: %+v", records[0])
			}
			doJSON(t, http.MethodDelete, base+"/game/history/"+records[0].ID+"?host=Archivist", nil, http.StatusOK)
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("archived record never appeared")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
