package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/devkaluri/rag-chat/errs"
	"github.com/devkaluri/rag-chat/llm"
	"github.com/devkaluri/rag-chat/session"
)

// Service orchestrates one question-answering cycle per call. It holds
// no per-request state; the session store is the only shared mutable
// collaborator and is written exactly once, after a successful answer.
type Service struct {
	retriever   *Retriever
	assembler   *Assembler
	llm         llm.Client
	sessions    *session.Store
	reformulate bool
	logger      *log.Logger
}

type Options struct {
	// Reformulate rewrites follow-up questions into standalone ones
	// before retrieval, using the session history.
	Reformulate bool
}

func NewService(retriever *Retriever, assembler *Assembler, llmClient llm.Client, sessions *session.Store, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		retriever:   retriever,
		assembler:   assembler,
		llm:         llmClient,
		sessions:    sessions,
		reformulate: opts.Reformulate,
		logger:      logger,
	}
}

// Ask runs the full cycle for one question. On any failure the returned
// Result reports StateFailed and the stage that errored; the session is
// left untouched. Cancellation between stages aborts the cycle without
// recording a turn.
func (s *Service) Ask(ctx context.Context, question, sessionID string) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return failed(StateReceived), errs.InvalidInputf("question cannot be empty")
	}
	if s.retriever == nil {
		return failed(StateReceived), fmt.Errorf("retriever is not configured")
	}
	if s.llm == nil {
		return failed(StateReceived), fmt.Errorf("llm client is not configured")
	}
	if s.sessions == nil {
		return failed(StateReceived), fmt.Errorf("session store is not configured")
	}

	history := s.sessions.History(sessionID)

	query := question
	if s.reformulate && len(history) > 0 {
		if standalone, err := s.standaloneQuestion(ctx, question, history); err != nil {
			s.logger.Printf("question reformulation failed, using original question: %v", err)
		} else {
			query = standalone
		}
	}

	chunks, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return failed(StateRetrieving), fmt.Errorf("retrieve context: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return failed(StateRetrieving), err
	}
	if len(chunks) == 0 {
		// The model is still called without context and answers from
		// the system instruction, which tells it to admit the gap.
		s.logger.Printf("no context retrieved for question, generating without context")
	}

	messages := s.assembler.Assemble(question, chunks, history)
	if err := ctx.Err(); err != nil {
		return failed(StateAssembling), err
	}

	answer, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return failed(StateGenerating), fmt.Errorf("generate answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return failed(StateGenerating), fmt.Errorf("model returned an empty answer")
	}
	if err := ctx.Err(); err != nil {
		return failed(StateGenerating), err
	}

	s.sessions.Append(sessionID, question, answer)
	return Result{Answer: answer, State: StateAnswered, Sources: chunks}, nil
}

func (s *Service) standaloneQuestion(ctx context.Context, question string, history []session.Turn) (string, error) {
	out, err := s.llm.Generate(ctx, reformulateMessages(question, history))
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("reformulation returned an empty question")
	}
	return out, nil
}

func failed(at State) Result {
	return Result{State: StateFailed, FailedAt: at}
}
