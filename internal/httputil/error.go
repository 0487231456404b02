package httputil

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	http.Error(w, msg, http.StatusNotFound)
}

type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	MatchID string `json:"match_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// WriteError maps the domain error taxonomy onto HTTP statuses. Anything it
// does not recognise is a 500 and gets logged.
func WriteError(w http.ResponseWriter, msg string, err error) {
	status, body := Classify(err)
	switch {
	case status >= http.StatusInternalServerError:
		slog.Error(msg, "error", err)
		body.Error = "internal server error"
		if bracket.IsStructural(err) {
			body.Error = err.Error()
		}
	case status == http.StatusConflict:
		slog.Info(msg, "error", err)
	default:
		slog.Warn(msg, "error", err)
	}
	WriteJSON(w, status, body)
}

func Classify(err error) (int, ErrorBody) {
	var correction *bracket.CorrectionConflictError
	switch {
	case errors.As(err, &correction):
		return http.StatusConflict, ErrorBody{Error: err.Error(), Code: "operator_action_required", MatchID: correction.MatchID.String()}
	case bracket.IsValidation(err):
		return http.StatusBadRequest, ErrorBody{Error: err.Error(), Code: "validation_failed"}
	case bracket.IsStateConflict(err):
		return http.StatusConflict, ErrorBody{Error: err.Error(), Code: "state_conflict"}
	case bracket.IsStructural(err):
		return http.StatusInternalServerError, ErrorBody{Error: err.Error(), Code: "invalid_structure"}
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, ErrorBody{Error: "not found", Code: "not_found"}
	}
	return http.StatusInternalServerError, ErrorBody{Error: err.Error(), Code: "internal"}
}
