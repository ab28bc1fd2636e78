package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/handservo/internal/app"
	"github.com/ayusman/handservo/internal/protocol"
	"github.com/ayusman/handservo/internal/servo"
)

// ControlHandler serves status, homing and manual servo commands.
//
// Routes:
//
//	GET  /api/status
//	PUT  /api/enabled
//	POST /api/home
//	PUT  /api/servos/{n}
//	POST /api/pose
type ControlHandler struct {
	ctrl Controller
}

// NewControlHandler creates a ControlHandler driving ctrl.
func NewControlHandler(ctrl Controller) *ControlHandler {
	return &ControlHandler{ctrl: ctrl}
}

// Register adds the control routes to mux.
func (h *ControlHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.status)
	mux.HandleFunc("/api/enabled", h.enabled)
	mux.HandleFunc("/api/home", h.home)
	mux.HandleFunc("/api/servos", h.servos)
	mux.HandleFunc("/api/servos/", h.servos)
	mux.HandleFunc("/api/pose", h.pose)
}

type servoInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	LastSent *int   `json:"last_sent"`
}

type statusResponse struct {
	Snapshot app.Snapshot `json:"snapshot"`
	Enabled  bool         `json:"enabled"`
	Playing  bool         `json:"playing"`
	Servos   []servoInfo  `json:"servos"`
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

type servoRequest struct {
	Angle *int `json:"angle"`
}

type poseRequest struct {
	Angles []int `json:"angles"`
}

type commandResponse struct {
	Sent []string `json:"sent"`
}

func (h *ControlHandler) servoTable() []servoInfo {
	recorded := h.ctrl.LastSent()
	out := make([]servoInfo, 0, servo.Count)
	for _, idx := range servo.All() {
		info := servoInfo{Index: int(idx), Name: idx.Name()}
		if a, ok := recorded[idx]; ok {
			v := int(a)
			info.LastSent = &v
		}
		out = append(out, info)
	}
	return out
}

// status handles GET /api/status.
func (h *ControlHandler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Snapshot: h.ctrl.Snapshot(),
		Enabled:  h.ctrl.IsEnabled(),
		Playing:  h.ctrl.Playing(),
		Servos:   h.servoTable(),
	})
}

// enabled handles PUT /api/enabled and toggles hand control.
func (h *ControlHandler) enabled(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, enabledRequest{Enabled: h.ctrl.IsEnabled()})
	case http.MethodPut:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		h.ctrl.SetEnabled(req.Enabled)
		writeJSON(w, http.StatusOK, enabledRequest{Enabled: h.ctrl.IsEnabled()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// home handles POST /api/home.
func (h *ControlHandler) home(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.ctrl.Home(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Snapshot: h.ctrl.Snapshot(),
		Enabled:  h.ctrl.IsEnabled(),
		Playing:  h.ctrl.Playing(),
		Servos:   h.servoTable(),
	})
}

// servos handles GET /api/servos and PUT /api/servos/{n}.
func (h *ControlHandler) servos(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/servos")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.servoTable())
		return
	}

	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n, err := strconv.Atoi(path)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown servo")
		return
	}
	idx, err := servo.ParseIndex(n)
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown servo")
		return
	}

	var req servoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Angle == nil {
		writeError(w, http.StatusBadRequest, "Angle is required")
		return
	}

	angle := servo.Angle(*req.Angle).Clamp()
	if err := h.ctrl.SendServo(idx, angle); err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		Sent: []string{protocol.Command{Servo: idx, Angle: angle}.String()},
	})
}

// pose handles POST /api/pose and sends all six angles.
func (h *ControlHandler) pose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req poseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Angles) != servo.Count {
		writeError(w, http.StatusBadRequest, "Pose needs exactly 6 angles")
		return
	}

	var pose servo.Pose
	for i, a := range req.Angles {
		pose[i] = servo.Angle(a)
	}
	pose = pose.Clamp()

	if err := h.ctrl.SendPose(r.Context(), pose); err != nil {
		writeCommandError(w, err)
		return
	}

	sent := make([]string, 0, servo.Count)
	for _, idx := range servo.All() {
		sent = append(sent, protocol.Command{Servo: idx, Angle: pose[idx.Slot()]}.String())
	}
	writeJSON(w, http.StatusOK, commandResponse{Sent: sent})
}
