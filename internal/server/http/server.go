package internalhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/medfolio/calendar/internal/app"
	"github.com/medfolio/calendar/internal/storage"
	log "github.com/sirupsen/logrus"
)

const (
	userIDHeader       = "X-User-Id"
	errMissingIdentity = "user identity is not provided"
)

type Config struct {
	Host string
	Port int
}

type Server struct {
	srv  *http.Server
	app  *app.App
	addr string
}

func NewServer(config Config, app *app.App) *Server {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	return &Server{
		addr: addr,
		app:  app,
		srv:  &http.Server{Addr: addr},
	}
}

func (s *Server) Start(_ context.Context) error {
	mux := runtime.NewServeMux()
	mux.HandlePath("GET", "/healthz", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		w.Write([]byte("OK"))
	})
	mux.HandlePath("GET", "/events", s.authorized(s.listEvents))
	mux.HandlePath("POST", "/events", s.authorized(s.createEvent))
	mux.HandlePath("PUT", "/events/{id}", s.authorized(s.updateEvent))
	mux.HandlePath("DELETE", "/events/{id}", s.authorized(s.deleteEvent))
	mux.HandlePath("POST", "/events/{id}/invite", s.authorized(s.inviteAttendees))
	mux.HandlePath("POST", "/events/{id}/attendees/{attendeeId}/respond", s.authorized(s.respondToInvite))
	s.srv.Handler = loggingMiddleware(mux)

	log.Printf("starting http server on %s", s.addr)
	err := s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string, pathParams map[string]string)

// Authentication is performed upstream; the proxy passes the verified
// identity in a header.
func (s *Server) authorized(next userHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, errors.New(errMissingIdentity))
			return
		}
		next(w, r, userID, pathParams)
	}
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, userID string, _ map[string]string) {
	filter := storage.EventFilter{
		StartDate: r.URL.Query().Get("startDate"),
		EndDate:   r.URL.Query().Get("endDate"),
		Type:      r.URL.Query().Get("type"),
	}
	events, err := s.app.ListEvents(r.Context(), userID, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, events)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request, userID string, _ map[string]string) {
	var e storage.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse event: %w", err))
		return
	}
	created, err := s.app.CreateEvent(r.Context(), userID, e)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, created)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, userID string, pathParams map[string]string) {
	var patch storage.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse event patch: %w", err))
		return
	}
	updated, err := s.app.UpdateEvent(r.Context(), pathParams["id"], userID, patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, updated)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request, userID string, pathParams map[string]string) {
	if err := s.app.RemoveEvent(r.Context(), pathParams["id"], userID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) inviteAttendees(w http.ResponseWriter, r *http.Request, userID string, pathParams map[string]string) {
	var body struct {
		Attendees []app.Invite `json:"attendees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse invite request: %w", err))
		return
	}
	event, err := s.app.InviteAttendees(r.Context(), pathParams["id"], userID, body.Attendees)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, event)
}

func (s *Server) respondToInvite(w http.ResponseWriter, r *http.Request, _ string, pathParams map[string]string) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse response request: %w", err))
		return
	}
	err := s.app.RespondToInvite(r.Context(), pathParams["id"], pathParams["attendeeId"], body.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, storage.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, storage.ErrNotFoundEvent), errors.Is(err, storage.ErrNotFoundAttendee):
		writeError(w, http.StatusNotFound, err)
	default:
		log.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]interface{}{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func getIP(req *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}

	if parsed := net.ParseIP(ip); parsed == nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}
	return ip, nil
}
