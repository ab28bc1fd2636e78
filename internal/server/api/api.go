// Package api provides the HTTP handlers for arm control and pose sequences.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/handservo/internal/app"
	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/transport"
)

// Controller is the arm-facing surface the handlers drive. *app.App implements it.
type Controller interface {
	Snapshot() app.Snapshot
	LastSent() map[servo.Index]servo.Angle
	IsEnabled() bool
	SetEnabled(enabled bool)
	Playing() bool
	Home(ctx context.Context) error
	SendServo(idx servo.Index, angle servo.Angle) error
	SendPose(ctx context.Context, pose servo.Pose) error
	PlaySequence(ctx context.Context, poses []servo.Pose, delay time.Duration) error
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeCommandError maps a send failure to a status code.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transport.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, "Arm not connected")
	case errors.Is(err, app.ErrBusy):
		writeError(w, http.StatusConflict, "Sequence playback in progress")
	case errors.Is(err, controller.ErrEmptySequence):
		writeError(w, http.StatusBadRequest, "Sequence has no poses")
	case errors.Is(err, transport.ErrWriteFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusRequestTimeout, "Cancelled")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
