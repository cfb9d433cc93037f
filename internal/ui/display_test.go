package ui

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"rag-chat/internal/history"
	"rag-chat/internal/session"
	"rag-chat/internal/upload"
)

func TestLiveAnswerWritesOnlyNewText(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(&buf, true)

	d.OnSnapshot(session.Snapshot{Loading: true})
	d.OnSnapshot(session.Snapshot{Loading: true, InProgress: "Hel"})
	d.OnSnapshot(session.Snapshot{Loading: true, InProgress: "Hello, "})
	d.OnSnapshot(session.Snapshot{Loading: true, InProgress: "Hello, world"})
	d.OnSnapshot(session.Snapshot{InProgress: "Hello, world"})
	d.EndAnswer(history.NewTurn("q", "Hello, world", []string{"a.pdf", "b.pdf"}))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Hello, world"))
	assert.Contains(t, out, "Answer ·")
	assert.Contains(t, out, "Sources: a.pdf, b.pdf")
	assert.NotContains(t, out, "\033[", "no colour codes when not a terminal")
}

func TestUploadProgressLines(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(&buf, false)

	batch := []upload.FileStatus{{Name: "a.pdf", State: upload.Pending}, {Name: "b.pdf", State: upload.Pending}}
	d.OnSnapshot(session.Snapshot{Uploads: batch})
	assert.Contains(t, buf.String(), "Uploading 2 file(s)")

	batch = []upload.FileStatus{{Name: "a.pdf", State: upload.Uploading}, {Name: "b.pdf", State: upload.Uploading}}
	d.OnSnapshot(session.Snapshot{Uploads: batch})
	assert.Equal(t, 2, strings.Count(buf.String(), "Uploading..."))

	batch = []upload.FileStatus{{Name: "a.pdf", State: upload.Failed, Detail: "Timeout"}, {Name: "b.pdf", State: upload.Uploading}}
	buf.Reset()
	d.OnSnapshot(session.Snapshot{Uploads: batch})
	assert.Equal(t, "  1. "+fmt.Sprintf("%-30s", "a.pdf")+" ❌ Timeout\n", buf.String())

	buf.Reset()
	d.OnSnapshot(session.Snapshot{Uploads: batch})
	assert.Empty(t, buf.String(), "unchanged statuses are not reprinted")
}

func TestPrintHistoryAndErrors(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(&buf, false)

	d.PrintHistory(nil)
	assert.Contains(t, buf.String(), "No conversation history yet")

	buf.Reset()
	d.PrintHistory([]history.Turn{history.NewTurn("q1", "a1", nil), history.NewTurn("q2", "a2", []string{"s"})})
	out := buf.String()
	assert.Less(t, strings.Index(out, "[1] Q: q1"), strings.Index(out, "[2] Q: q2"))
	assert.Equal(t, 1, strings.Count(out, "Sources:"))

	buf.Reset()
	d.FailAnswer(errors.New("connection refused"))
	assert.Contains(t, buf.String(), "✗ Error: connection refused")
}

func TestPrintFiles(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(&buf, false)

	d.PrintFiles([]string{"a.pdf", "b.txt"}, map[string]int{"a.pdf": 3})
	assert.Contains(t, buf.String(), "a.pdf (3 chunks)")
	assert.Contains(t, buf.String(), "• b.txt\n")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}
