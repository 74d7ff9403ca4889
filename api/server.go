// Package api exposes the question-answering pipeline over HTTP along
// with an embedded web chat page.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/devkaluri/rag-chat/chat"
	"github.com/devkaluri/rag-chat/errs"
)

const (
	apiVersion = "1.0.0"

	maxBatchSize        = 10
	maxBatchConcurrency = 4

	statusSuccess = "success"
	statusError   = "error"
)

// QA answers one question in the context of a session.
type QA interface {
	Ask(ctx context.Context, question, sessionID string) (chat.Result, error)
}

// Server routes HTTP traffic to the pipeline.
type Server struct {
	qa      QA
	logger  *log.Logger
	handler http.Handler
}

type queryRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string `json:"answer"`
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type chatbotResponse struct {
	Success   bool   `json:"success"`
	Question  string `json:"question,omitempty"`
	Answer    string `json:"answer,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
}

func New(qa QA, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{qa: qa, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat/batch", s.handleBatch)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.HandleFunc("/chatbot", s.handleChatbot)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: timestamp(),
		Version:   apiVersion,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	s.answer(r.Context(), w, req)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	req := queryRequest{
		Question:  r.URL.Query().Get("question"),
		SessionID: r.URL.Query().Get("session_id"),
	}
	s.answer(r.Context(), w, req)
}

// answer runs one question through the pipeline and writes the response
// in the shared shape used by /chat and /ask.
func (s *Server) answer(ctx context.Context, w http.ResponseWriter, req queryRequest) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, errs.InvalidInputf("question is required"))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	res, err := s.qa.Ask(ctx, req.Question, req.SessionID)
	if err != nil {
		s.writeError(w, statusForError(err), fmt.Errorf("answer question: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, queryResponse{
		Answer:    res.Answer,
		Question:  req.Question,
		SessionID: req.SessionID,
		Timestamp: timestamp(),
		Status:    statusSuccess,
	})
}

// handleBatch answers a sequence of questions, preserving input order in
// the response even though items are processed concurrently. A failed
// item becomes a status "error" entry instead of failing the batch.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var reqs []queryRequest
	if err := decodeJSON(r, &reqs); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(reqs) > maxBatchSize {
		s.writeError(w, http.StatusBadRequest, errs.InvalidInputf("batch size cannot exceed %d questions", maxBatchSize))
		return
	}

	responses := make([]queryResponse, len(reqs))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(maxBatchConcurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			responses[i] = s.answerOne(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	s.writeJSON(w, http.StatusOK, responses)
}

func (s *Server) answerOne(ctx context.Context, req queryRequest) queryResponse {
	req.Question = strings.TrimSpace(req.Question)
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	resp := queryResponse{
		Question:  req.Question,
		SessionID: req.SessionID,
		Timestamp: timestamp(),
	}

	if req.Question == "" {
		resp.Status = statusError
		resp.Error = "question is required"
		return resp
	}

	res, err := s.qa.Ask(ctx, req.Question, req.SessionID)
	if err != nil {
		s.logger.Printf("batch item failed: %v", err)
		resp.Status = statusError
		resp.Error = err.Error()
		return resp
	}

	resp.Answer = res.Answer
	resp.Status = statusSuccess
	return resp
}

// handleChatbot is the frontend-integration endpoint: it accepts both
// GET query parameters and a POST JSON body and always replies 200 with
// a success flag.
func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	switch r.Method {
	case http.MethodGet:
		req.Question = r.URL.Query().Get("question")
		req.SessionID = r.URL.Query().Get("session_id")
	case http.MethodPost:
		if err := decodeJSON(r, &req); err != nil {
			s.writeJSON(w, http.StatusOK, chatbotResponse{
				Success: false,
				Error:   "invalid request body",
				Message: "Please send JSON with a question field.",
			})
			return
		}
	default:
		s.methodNotAllowed(w, "GET, POST")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		s.writeJSON(w, http.StatusOK, chatbotResponse{
			Success: false,
			Error:   "question is required",
			Message: "Please provide a question to ask.",
		})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	res, err := s.qa.Ask(r.Context(), req.Question, req.SessionID)
	if err != nil {
		s.logger.Printf("chatbot endpoint error: %v", err)
		s.writeJSON(w, http.StatusOK, chatbotResponse{
			Success: false,
			Error:   "no response generated",
			Message: "Unable to generate a response. Please try again.",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, chatbotResponse{
		Success:   true,
		Question:  req.Question,
		Answer:    res.Answer,
		SessionID: req.SessionID,
		Timestamp: timestamp(),
	})
}

func statusForError(err error) int {
	switch {
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	case errs.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Timestamp: timestamp(),
		Status:    statusError,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON value")
	}

	return nil
}
