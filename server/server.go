package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/romulo94/poc-healthcare-appointment-chatbot/chat/orchestrator"
)

// TurnHandler is the orchestrator surface the server needs.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID, text string) (orchestrator.TurnResult, error)
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	Message       string `json:"message"`
	SessionID     string `json:"session_id"`
	Authenticated bool   `json:"authenticated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the JSON front end over the conversation orchestrator.
type Server struct {
	handler TurnHandler
	mux     *http.ServeMux
}

func New(handler TurnHandler) *Server {
	s := &Server{
		handler: handler,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks serving the API on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("chat server listening")
	return srv.ListenAndServe()
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.handler.HandleTurn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInvalidMessage):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		case errors.Is(err, orchestrator.ErrStoreUnavailable):
			log.Error().Err(err).Msg("turn failed: store unavailable")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable"})
		default:
			log.Error().Err(err).Msg("turn failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message:       result.Reply,
		SessionID:     result.SessionID,
		Authenticated: result.Authenticated,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response failed")
	}
}
