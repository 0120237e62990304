package control

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mercator-hq/wiretap/pkg/traffic"
)

// MaxMessageBytes bounds the size of a control request body.
const MaxMessageBytes = 1 << 20

// Handler exposes a Dispatcher over HTTP.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler creates an HTTP handler for d.
func NewHandler(d *Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// Routes returns the control API router, meant to be mounted at /api/v1.
//
//	POST   /control      any Message
//	GET    /logs         GET_LOGS
//	DELETE /logs         CLEAR_LOGS
//	GET    /recording    GET_RECORDING
//	PUT    /recording    SET_RECORDING {"enabled": bool}
//	GET    /override     GET_OVERRIDE
//	PUT    /override     SET_REQUEST_HEADERS {"url": ..., "headers": [...]}
//	DELETE /override     CLEAR_REQUEST_HEADERS
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/control", h.message(""))
	r.Get("/logs", h.command(TypeGetLogs))
	r.Delete("/logs", h.command(TypeClearLogs))
	r.Get("/recording", h.command(TypeGetRecording))
	r.Put("/recording", h.message(TypeSetRecording))
	r.Get("/override", h.command(TypeGetOverride))
	r.Put("/override", h.message(TypeSetRequestHeaders))
	r.Delete("/override", h.command(TypeClearRequestHeaders))
	return r
}

// command serves a message type that carries no body.
func (h *Handler) command(t MessageType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, &Message{Type: t})
	}
}

// message decodes the body as a Message. A non-empty t fixes the type.
func (h *Handler) message(t MessageType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxMessageBytes))
		if err := dec.Decode(&msg); err != nil {
			cerr := traffic.NewControlError(string(t), "invalid JSON body", err)
			writeResponse(w, http.StatusBadRequest, failure(cerr))
			return
		}
		if t != "" {
			msg.Type = t
		}
		h.serve(w, r, &msg)
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, msg *Message) {
	resp, err := h.dispatcher.execute(r.Context(), msg)
	writeResponse(w, statusFor(err), resp)
}

// statusFor maps a dispatch failure to an HTTP status.
func statusFor(err error) int {
	var (
		controlErr *traffic.ControlError
		ruleErr    *traffic.RuleError
		storageErr *traffic.StorageError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &controlErr), errors.As(err, &ruleErr):
		return http.StatusBadRequest
	case errors.As(err, &storageErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeResponse(w http.ResponseWriter, code int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
