// Package upload sends a batch of local files to the ingestion service one
// at a time and tracks the outcome of each file independently.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rag-chat/internal/ragapi"
)

// ErrBatchInProgress is returned when a batch is started while another runs
var ErrBatchInProgress = errors.New("an upload batch is already in progress")

// Uploader sends one file and returns the raw response body
type Uploader interface {
	Upload(ctx context.Context, name string, content io.Reader) ([]byte, error)
}

// Pipeline uploads files strictly in order with at most one request in flight
type Pipeline struct {
	uploader Uploader
	tracker  *Tracker
	logger   zerolog.Logger
	running  atomic.Bool
}

// NewPipeline creates a pipeline publishing through tracker
func NewPipeline(uploader Uploader, tracker *Tracker, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		uploader: uploader,
		tracker:  tracker,
		logger:   logger,
	}
}

// Running reports whether a batch is active
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run uploads files in order. An empty selection does nothing.
// A failing file never stops the batch; its reason is recorded in the
// tracker and the next file starts.
func (p *Pipeline) Run(ctx context.Context, files []File) ([]FileStatus, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrBatchInProgress
	}
	defer p.running.Store(false)

	batchID := uuid.New().String()
	logger := p.logger.With().Str("batch", batchID).Logger()

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	p.tracker.Reset(names, Pending)
	p.tracker.Promote(Pending, Uploading)
	logger.Info().Int("files", len(files)).Msg("upload batch started")

	for i, f := range files {
		state, detail := p.uploadOne(ctx, f)
		p.tracker.Set(i, state, detail)

		event := logger.Info()
		if state == Failed {
			event = logger.Warn()
		}
		event.Int("index", i).Str("file", f.Name).Str("state", string(state)).Str("detail", detail).Msg("upload resolved")
	}

	return p.tracker.Statuses(), nil
}

func (p *Pipeline) uploadOne(ctx context.Context, f File) (State, string) {
	if f.Open == nil {
		return Failed, "no content"
	}
	content, err := f.Open()
	if err != nil {
		return Failed, err.Error()
	}
	defer content.Close()

	body, err := p.uploader.Upload(ctx, f.Name, content)
	if err != nil {
		return Failed, err.Error()
	}
	return ResolveResponse(body, p.logger)
}

// ResolveResponse interprets an /upload body.
// Bodies that are not JSON objects resolve to Failed("Invalid response").
func ResolveResponse(body []byte, logger zerolog.Logger) (State, string) {
	resp, err := ragapi.ParseUploadResponse(body)
	if err != nil {
		logger.Debug().Err(err).Str("body", ragapi.DescribeBody(body)).Msg("upload response is not JSON")
		return Failed, InvalidResponse
	}
	if resp.Message != "" {
		return Succeeded, fmt.Sprintf("%s (%s chunks)", resp.Filename, chunkCount(resp.Chunks))
	}
	if resp.Error != "" {
		return Failed, resp.Error
	}
	return Failed, UnknownError
}

func chunkCount(n string) string {
	if n == "" {
		return "?"
	}
	return n
}
