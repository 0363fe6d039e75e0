package server

import (
	"fmt"
	"net/http"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/coordinator"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleList)
	mux.HandleFunc("GET /sessions", s.handleList)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /create", s.handleCreate)
	mux.HandleFunc("POST /create", s.handleCreate)
	mux.HandleFunc("GET /{id}/join", s.handleJoinForm)
	mux.HandleFunc("POST /{id}/join", s.handleJoin)
	mux.HandleFunc("GET /{id}/start", s.handleStart)
	mux.HandleFunc("GET /{id}/lobby", s.handleLobby)
	mux.HandleFunc("GET /{id}/get_player_count", s.handleLobby)
	mux.HandleFunc("GET /{id}/check_ready", s.handleCheckReady)
	mux.HandleFunc("GET /{id}/check_progress", s.handleCheckProgress)
	mux.HandleFunc("GET /{id}/play", s.handleQuestion)
	mux.HandleFunc("POST /{id}/play", s.handleAnswer)
	mux.HandleFunc("GET /{id}/results", s.handleResults)
	mux.HandleFunc("GET /{id}/end", s.handleEnd)
	mux.HandleFunc("GET /{id}/qr", s.handleQR)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.co.List(r.Context())})
}

// afterJoin sends the player to the start page once the roster is full.
func afterJoin(w http.ResponseWriter, r *http.Request, snap session.Snapshot, player string) {
	setPlayer(w, snap.ID, player)
	if snap.Started {
		redirect(w, r, "/"+snap.ID+"/start")
		return
	}
	redirect(w, r, "/"+snap.ID+"/lobby")
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	player := playerOf(r)
	if r.Method == http.MethodGet && player == "" {
		writeJSON(w, http.StatusOK, map[string]any{"defaults": s.co.Defaults()})
		return
	}

	req := coordinator.CreateRequest{Player: player, Category: r.FormValue("category")}
	var err error
	fields := []struct {
		name string
		dst  *int
	}{
		{"players", &req.NumberOfPlayers},
		{"questions", &req.NumberOfQuestions},
		{"answer_time_limit", &req.AnswerTimeLimit},
		{"start_time_limit", &req.StartTimeLimit},
		{"result_time_limit", &req.ResultTimeLimit},
	}
	for _, f := range fields {
		if *f.dst, err = intParam(r, f.name, 0); err != nil {
			writeError(w, r, err)
			return
		}
	}

	snap, err := s.co.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, _ := coordinator.ValidatePlayerName(player)
	afterJoin(w, r, snap, name)
}

func (s *Server) handleJoinForm(w http.ResponseWriter, r *http.Request) {
	snap, err := s.co.Snapshot(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	player := playerOf(r)
	snap, err := s.co.Join(r.Context(), id, player)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name, _ := coordinator.ValidatePlayerName(player)
	afterJoin(w, r, snap, name)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	snap, err := s.co.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	view, err := s.co.Lobby(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCheckReady(w http.ResponseWriter, r *http.Request) {
	view, err := s.co.CheckReady(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCheckProgress(w http.ResponseWriter, r *http.Request) {
	question, err := intParam(r, "question", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.co.CheckProgress(r.Context(), r.PathValue("id"), question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	view, err := s.co.FetchQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	question, err := intParam(r, "question", -1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	player := playerOf(r)
	if player == "" {
		writeError(w, r, &coordinator.ValidationError{Field: "player", Reason: "join the session first"})
		return
	}
	ack, err := s.co.SubmitAnswer(r.Context(), coordinator.AnswerRequest{
		SessionID: id,
		Player:    player,
		Question:  question,
		Choice:    r.FormValue("choice"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	redirect(w, r, fmt.Sprintf("/%s/results?question=%d", id, ack.Question))
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fallback := 0
	if snap, err := s.co.Snapshot(id); err == nil {
		fallback = snap.CurrentQuestion
	}
	question, err := intParam(r, "question", fallback)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.co.Results(r.Context(), id, question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	view, err := s.co.End(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.qr == nil || !s.qr.Exists(id) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, s.qr.Path(id))
}
