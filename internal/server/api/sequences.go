package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/store"
)

// maxImportSize bounds the body of a sequence import.
const maxImportSize = 1 << 20

// SequenceHandler handles HTTP requests for pose sequence resources.
type SequenceHandler struct {
	store *store.Store
	ctrl  Controller
}

// NewSequenceHandler creates a new SequenceHandler. ctrl may be nil, in
// which case the run endpoint reports the arm as unavailable.
func NewSequenceHandler(s *store.Store, ctrl Controller) *SequenceHandler {
	return &SequenceHandler{store: s, ctrl: ctrl}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SequenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/sequences, /api/sequences/import,
	// /api/sequences/{id}, /api/sequences/{id}/run, /api/sequences/{id}/export
	path := strings.TrimPrefix(r.URL.Path, "/api/sequences")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "import" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.importSequence(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 2 {
		switch {
		case parts[1] == "run" && r.Method == http.MethodPost:
			h.run(w, r, id)
		case parts[1] == "export" && r.Method == http.MethodGet:
			h.export(w, r, id)
		case parts[1] == "run" || parts[1] == "export":
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		default:
			writeError(w, http.StatusNotFound, "Not found")
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request and response types

type sequenceRequest struct {
	Name    string          `json:"name"`
	DelayMS *int64          `json:"delay_ms"`
	Poses   json.RawMessage `json:"poses"`
}

type sequenceResponse struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	DelayMS   int64        `json:"delay_ms"`
	Poses     []servo.Pose `json:"poses"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
}

type listSequencesResponse struct {
	Sequences []sequenceResponse `json:"sequences"`
}

type runResponse struct {
	ID    string `json:"id"`
	Poses int    `json:"poses"`
}

// toResponse converts a store.Sequence to a sequenceResponse.
func toResponse(seq *store.Sequence) sequenceResponse {
	poses := seq.Poses
	if poses == nil {
		poses = []servo.Pose{}
	}
	return sequenceResponse{
		ID:        seq.ID,
		Name:      seq.Name,
		DelayMS:   seq.Delay.Milliseconds(),
		Poses:     poses,
		CreatedAt: seq.CreatedAt.Format(time.RFC3339),
		UpdatedAt: seq.UpdatedAt.Format(time.RFC3339),
	}
}

func parseDelay(ms *int64) (time.Duration, error) {
	if ms == nil {
		return controller.DefaultPoseDelay, nil
	}
	if *ms < 0 {
		return 0, errors.New("delay_ms must not be negative")
	}
	return time.Duration(*ms) * time.Millisecond, nil
}

// list handles GET /api/sequences and returns all sequences.
func (h *SequenceHandler) list(w http.ResponseWriter, r *http.Request) {
	sequences, err := h.store.Sequences().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sequences")
		return
	}

	response := listSequencesResponse{
		Sequences: make([]sequenceResponse, 0, len(sequences)),
	}
	for _, seq := range sequences {
		response.Sequences = append(response.Sequences, toResponse(seq))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sequences/{id}.
func (h *SequenceHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	seq, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(seq))
}

// create handles POST /api/sequences.
func (h *SequenceHandler) create(w http.ResponseWriter, r *http.Request) {
	var req sequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	delay, err := parseDelay(req.DelayMS)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	poses := []servo.Pose{}
	if len(req.Poses) > 0 {
		if poses, err = servo.DecodeSequence(req.Poses); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	h.save(w, &store.Sequence{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Poses: poses,
		Delay: delay,
	})
}

// importSequence handles POST /api/sequences/import. The body is a bare
// list of six-angle lists; name and delay_ms come from the query string.
func (h *SequenceHandler) importSequence(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	poses, err := servo.DecodeSequence(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	name := query.Get("name")
	if name == "" {
		name = fmt.Sprintf("imported-%s", time.Now().Format("20060102-150405"))
	}

	var delayMS *int64
	if v := query.Get("delay_ms"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "delay_ms must be an integer")
			return
		}
		delayMS = &ms
	}
	delay, err := parseDelay(delayMS)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.save(w, &store.Sequence{
		ID:    uuid.New().String(),
		Name:  name,
		Poses: poses,
		Delay: delay,
	})
}

func (h *SequenceHandler) save(w http.ResponseWriter, seq *store.Sequence) {
	if _, err := h.store.Sequences().GetByName(seq.Name); err == nil {
		writeError(w, http.StatusConflict, "Sequence name already exists")
		return
	}

	if err := h.store.Sequences().Create(seq); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sequence")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(seq))
}

// update handles PUT /api/sequences/{id}. Omitted fields are left unchanged.
func (h *SequenceHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	seq, ok := h.lookup(w, id)
	if !ok {
		return
	}

	var req sequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		seq.Name = req.Name
	}
	if req.DelayMS != nil {
		delay, err := parseDelay(req.DelayMS)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		seq.Delay = delay
	}
	if len(req.Poses) > 0 {
		poses, err := servo.DecodeSequence(req.Poses)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		seq.Poses = poses
	}

	if err := h.store.Sequences().Update(seq); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update sequence")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(seq))
}

// delete handles DELETE /api/sequences/{id}.
func (h *SequenceHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sequences().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sequence not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sequence")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// export handles GET /api/sequences/{id}/export and returns the bare pose list.
func (h *SequenceHandler) export(w http.ResponseWriter, r *http.Request, id string) {
	seq, ok := h.lookup(w, id)
	if !ok {
		return
	}

	data, err := servo.EncodeSequence(seq.Poses)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode sequence")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", seq.Name+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// run handles POST /api/sequences/{id}/run. It blocks until playback ends
// or the client goes away.
func (h *SequenceHandler) run(w http.ResponseWriter, r *http.Request, id string) {
	seq, ok := h.lookup(w, id)
	if !ok {
		return
	}

	if h.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "Arm not connected")
		return
	}

	if err := h.ctrl.PlaySequence(r.Context(), seq.Poses, seq.Delay); err != nil {
		writeCommandError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, runResponse{ID: seq.ID, Poses: len(seq.Poses)})
}

func (h *SequenceHandler) lookup(w http.ResponseWriter, id string) (*store.Sequence, bool) {
	seq, err := h.store.Sequences().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sequence not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sequence")
		return nil, false
	}
	return seq, true
}
