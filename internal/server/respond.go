package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/coordinator"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
)

const playerCookie = "trivia_player"

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnF("Fail to encode response, details: %v", err)
	}
}

// statusOf maps coordinator and gateway errors onto HTTP status codes.
func statusOf(err error) int {
	var verr *coordinator.ValidationError
	var rejected *gateway.RejectedError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case coordinator.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, coordinator.ErrSessionFull),
		errors.Is(err, coordinator.ErrAnswersClosed),
		errors.Is(err, coordinator.ErrAwaitingPlayers):
		return http.StatusConflict
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coordinator.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, gateway.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}

	var verr *coordinator.ValidationError
	var rejected *gateway.RejectedError
	switch {
	case errors.As(err, &verr):
		body.Error = verr.Error()
		body.Field = verr.Field
	case errors.As(err, &rejected):
		body.Error = rejected.Message
	case status == http.StatusInternalServerError:
		body.Error = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorF("[%s] %s %s failed, details: %v", requestID(r), r.Method, r.URL.Path, err)
	} else {
		logger.DebugF("[%s] %s %s refused, details: %v", requestID(r), r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, body)
}

func setPlayer(w http.ResponseWriter, sessionID, player string) {
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookie,
		Value:    player,
		Path:     "/" + sessionID,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// playerOf reads the player identity from the form first, then the cookie.
func playerOf(r *http.Request) string {
	for _, field := range []string{"player", "username"} {
		if v := strings.TrimSpace(r.FormValue(field)); v != "" {
			return v
		}
	}
	if c, err := r.Cookie(playerCookie); err == nil {
		return c.Value
	}
	return ""
}

// intParam parses an optional integer form or query value.
func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &coordinator.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return v, nil
}

func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}
