// Package chat asks questions against the RAG service.
//
// An ask streams the answer text into the session as it arrives, then
// fetches sources with a second, independent /ask request for the same
// question and appends the combined turn to history. The service may answer
// the two requests from different retrievals, so sources are not guaranteed
// to match the streamed text.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rag-chat/internal/history"
	"rag-chat/internal/ragapi"
	"rag-chat/internal/session"
)

// ErrEmptyQuestion is returned for blank input; no request is sent
var ErrEmptyQuestion = errors.New("question is empty")

// Backend is the part of the RAG service an ask needs
type Backend interface {
	OpenStream(ctx context.Context, question string) (*ragapi.AnswerStream, error)
	Ask(ctx context.Context, question string) (*ragapi.AskResponse, error)
}

// Asker runs asks against a backend and records them in the session
type Asker struct {
	backend Backend
	state   *session.State
	logger  zerolog.Logger
}

// NewAsker creates an asker
func NewAsker(backend Backend, state *session.State, logger zerolog.Logger) *Asker {
	return &Asker{
		backend: backend,
		state:   state,
		logger:  logger,
	}
}

// Ask streams the answer to question and finalizes it as a turn.
//
// If the stream cannot be opened the session error is set and the error
// returned; nothing is appended. If the stream breaks off midway, the text
// received so far becomes the answer. Asks are not serialized: two
// concurrent asks both finalize, but their live text overwrites the same
// InProgress field.
func (a *Asker) Ask(ctx context.Context, question string) (history.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return history.Turn{}, ErrEmptyQuestion
	}

	requestID := uuid.New().String()
	ctx = ragapi.WithRequestID(ctx, requestID)
	logger := a.logger.With().Str("request_id", requestID).Logger()

	a.state.BeginAsk(question)

	answer, err := a.consume(ctx, question, logger)
	if err != nil {
		a.state.FailAsk(err)
		return history.Turn{}, err
	}
	a.state.EndStream()

	sources := a.fetchSources(ctx, question, logger)

	turn := history.NewTurn(question, answer, sources)
	if err := a.state.FinishTurn(turn); err != nil {
		logger.Error().Err(err).Msg("failed to persist history")
	}
	logger.Info().Int("answer_len", len(answer)).Int("sources", len(sources)).Msg("turn finalized")
	return turn, nil
}

// consume reads the stream to its end, publishing the growing answer
// after every fragment.
func (a *Asker) consume(ctx context.Context, question string, logger zerolog.Logger) (string, error) {
	stream, err := a.backend.OpenStream(ctx, question)
	if err != nil {
		logger.Error().Err(err).Msg("stream open failed")
		return "", fmt.Errorf("failed to get answer: %w", err)
	}
	defer stream.Close()
	logger.Debug().Msg("stream opened")

	var answer strings.Builder
	for {
		fragment, err := stream.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Int("received", answer.Len()).Msg("stream interrupted, keeping partial answer")
			}
			break
		}
		answer.WriteString(fragment)
		a.state.SetInProgress(answer.String())
	}
	return answer.String(), nil
}

// fetchSources asks the metadata endpoint for the sources of question.
// Any failure yields no sources rather than an error.
func (a *Asker) fetchSources(ctx context.Context, question string, logger zerolog.Logger) []string {
	meta, err := a.backend.Ask(ctx, question)
	if err != nil {
		logger.Warn().Err(err).Msg("metadata request failed, finalizing without sources")
		return []string{}
	}
	if meta == nil || meta.Sources == nil {
		return []string{}
	}
	return meta.Sources
}

// AskOnce runs a non-streaming ask: one /ask request supplies both the
// answer and its sources.
func (a *Asker) AskOnce(ctx context.Context, question string) (history.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return history.Turn{}, ErrEmptyQuestion
	}

	requestID := uuid.New().String()
	ctx = ragapi.WithRequestID(ctx, requestID)
	logger := a.logger.With().Str("request_id", requestID).Logger()

	a.state.BeginAsk(question)

	resp, err := a.backend.Ask(ctx, question)
	if err != nil {
		logger.Error().Err(err).Msg("ask failed")
		err = fmt.Errorf("failed to get answer: %w", err)
		a.state.FailAsk(err)
		return history.Turn{}, err
	}
	a.state.SetInProgress(resp.Answer)
	a.state.EndStream()

	turn := history.NewTurn(question, resp.Answer, resp.Sources)
	if err := a.state.FinishTurn(turn); err != nil {
		logger.Error().Err(err).Msg("failed to persist history")
	}
	return turn, nil
}
