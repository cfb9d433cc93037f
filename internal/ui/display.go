package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"rag-chat/internal/history"
	"rag-chat/internal/session"
	"rag-chat/internal/upload"
)

// Display renders session state to a terminal
type Display struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	color    bool
	renderer *glamour.TermRenderer

	// live answer already written for the current ask
	printed   string
	startTime time.Time
	uploads   []upload.FileStatus
}

// NewDisplay creates a display writing to out.
// Markdown rendering and colours are only used when out is a terminal.
func NewDisplay(out io.Writer, renderMarkdown bool) *Display {
	width, isTTY := terminalWidth(out)

	d := &Display{
		out:   out,
		width: width,
		color: isTTY,
	}
	if renderMarkdown && isTTY {
		// Create markdown renderer
		d.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width-10),
		)
	}
	return d
}

// Color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func (d *Display) c(code string) string {
	if !d.color {
		return ""
	}
	return code
}

// PrintWelcome displays the welcome message
func (d *Display) PrintWelcome(baseURL string, turns int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(d.out, "%s%srag-chat · document Q&A%s\n", d.c(colorBold), d.c(colorCyan), d.c(colorReset))
	fmt.Fprintf(d.out, "%sService:%s %s\n", d.c(colorGray), d.c(colorReset), baseURL)
	if turns > 0 {
		fmt.Fprintf(d.out, "%sRestored %d previous turns (/history to show)%s\n", d.c(colorGray), turns, d.c(colorReset))
	}
	fmt.Fprintf(d.out, "%sCommands:%s /upload <path>... | /files | /history | /clear | /exit\n\n", d.c(colorGray), d.c(colorReset))
}

// PrintPrompt displays the user input prompt
func (d *Display) PrintPrompt() {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "\n%s%s❯%s ", d.c(colorBold), d.c(colorGreen), d.c(colorReset))
}

// OnSnapshot streams the live answer and upload progress.
// It is registered as a session subscriber.
func (d *Display) OnSnapshot(s session.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writeLiveAnswer(s)
	d.writeUploadChanges(s.Uploads)
}

func (d *Display) writeLiveAnswer(s session.Snapshot) {
	switch {
	case s.Loading && s.InProgress == "" && d.printed == "":
		if d.startTime.IsZero() {
			d.startTime = time.Now()
			fmt.Fprintf(d.out, "\n%s┌─ Answer · %s%s\n", d.c(colorGray), d.startTime.Format("15:04:05"), d.c(colorReset))
		}
	case s.InProgress == "":
		d.printed = ""
	case strings.HasPrefix(s.InProgress, d.printed):
		fmt.Fprint(d.out, s.InProgress[len(d.printed):])
		d.printed = s.InProgress
	default:
		// another ask overwrote the live answer
		fmt.Fprintf(d.out, "\n%s", s.InProgress)
		d.printed = s.InProgress
	}
}

func (d *Display) writeUploadChanges(statuses []upload.FileStatus) {
	if len(statuses) == 0 {
		return
	}
	if allPending(statuses) {
		fmt.Fprintf(d.out, "\n%s📤 Uploading %d file(s)%s\n", d.c(colorCyan), len(statuses), d.c(colorReset))
		d.uploads = append([]upload.FileStatus{}, statuses...)
		return
	}
	if len(d.uploads) != len(statuses) {
		d.uploads = make([]upload.FileStatus, len(statuses))
	}
	for i, st := range statuses {
		if d.uploads[i] == st {
			continue
		}
		fmt.Fprintf(d.out, "  %s\n", d.formatStatus(i, st))
	}
	d.uploads = append([]upload.FileStatus{}, statuses...)
}

func allPending(statuses []upload.FileStatus) bool {
	for _, st := range statuses {
		if st.State != upload.Pending {
			return false
		}
	}
	return true
}

func (d *Display) formatStatus(i int, st upload.FileStatus) string {
	color := colorGray
	switch st.State {
	case upload.Succeeded:
		color = colorGreen
	case upload.Failed:
		color = colorRed
	}
	return fmt.Sprintf("%d. %-30s %s%s%s", i+1, truncate(st.Name, 30), d.c(color), st.String(), d.c(colorReset))
}

// EndAnswer closes the live answer block with the sources of the turn
func (d *Display) EndAnswer(turn history.Turn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	duration := time.Duration(0)
	if !d.startTime.IsZero() {
		duration = time.Since(d.startTime)
	}
	d.startTime = time.Time{}
	d.printed = ""

	fmt.Fprintln(d.out)
	if d.renderer != nil && turn.Answer != "" {
		if rendered, err := d.renderer.Render(turn.Answer); err == nil {
			fmt.Fprintf(d.out, "%s│ Rendered:%s\n", d.c(colorGray), d.c(colorReset))
			for _, line := range strings.Split(strings.TrimRight(rendered, "\n"), "\n") {
				fmt.Fprintf(d.out, "%s│%s %s\n", d.c(colorGray), d.c(colorReset), line)
			}
		}
	}
	d.writeSources(turn.Sources)
	fmt.Fprintf(d.out, "%s└ %s%s\n", d.c(colorGray), formatDuration(duration), d.c(colorReset))
}

// FailAnswer closes the live answer block with an error
func (d *Display) FailAnswer(err error) {
	d.mu.Lock()
	d.startTime = time.Time{}
	d.printed = ""
	d.mu.Unlock()

	d.PrintError(err)
}

func (d *Display) writeSources(sources []string) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintf(d.out, "%s│ 📚 Sources: %s%s\n", d.c(colorGray), strings.Join(sources, ", "), d.c(colorReset))
}

// PrintTurn prints a finished turn
func (d *Display) PrintTurn(i int, turn history.Turn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(d.out, "\n%s[%d] Q: %s%s\n", d.c(colorGray), i+1, turn.Question, d.c(colorReset))
	answer := turn.Answer
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(answer); err == nil {
			answer = strings.TrimRight(rendered, "\n")
		}
	}
	fmt.Fprintln(d.out, answer)
	d.writeSources(turn.Sources)
}

// PrintHistory prints every turn in order
func (d *Display) PrintHistory(turns []history.Turn) {
	if len(turns) == 0 {
		d.PrintInfo("No conversation history yet")
		return
	}
	d.PrintSeparator()
	for i, turn := range turns {
		d.PrintTurn(i, turn)
	}
	d.PrintSeparator()
}

// PrintFiles lists ingested documents with their chunk counts
func (d *Display) PrintFiles(names []string, chunks map[string]int) {
	if len(names) == 0 {
		d.PrintInfo("No documents ingested yet")
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "%s📚 %d document(s):%s\n", d.c(colorCyan), len(names), d.c(colorReset))
	for _, name := range names {
		if n, ok := chunks[name]; ok {
			fmt.Fprintf(d.out, "  • %s %s(%d chunks)%s\n", name, d.c(colorGray), n, d.c(colorReset))
		} else {
			fmt.Fprintf(d.out, "  • %s\n", name)
		}
	}
}

// PrintSeparator prints a visual separator
func (d *Display) PrintSeparator() {
	d.mu.Lock()
	defer d.mu.Unlock()
	line := strings.Repeat("─", min(d.width, 80))
	fmt.Fprintf(d.out, "%s%s%s\n", d.c(colorDim), line, d.c(colorReset))
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	d.line(colorCyan, "ℹ "+msg)
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	d.line(colorYellow, "⚠ "+msg)
}

// PrintError displays error message
func (d *Display) PrintError(err error) {
	d.line(colorRed, fmt.Sprintf("✗ Error: %v", err))
}

// PrintSuccess displays success message
func (d *Display) PrintSuccess(msg string) {
	d.line(colorGreen, "✓ "+msg)
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	d.line(colorCyan, "Goodbye! 👋")
}

func (d *Display) line(color, msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "%s%s%s\n", d.c(color), msg, d.c(colorReset))
}

// Helper functions

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func terminalWidth(out io.Writer) (int, bool) {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 80, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 20 {
		return 80, true
	}
	return width, true
}
