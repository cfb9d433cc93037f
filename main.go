package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"rag-chat/internal/chat"
	"rag-chat/internal/config"
	"rag-chat/internal/history"
	"rag-chat/internal/logging"
	"rag-chat/internal/ragapi"
	"rag-chat/internal/session"
	"rag-chat/internal/storage"
	"rag-chat/internal/terminal"
	"rag-chat/internal/ui"
	"rag-chat/internal/upload"
	"rag-chat/internal/watcher"
)

func main() {
	// Set the GetEnv function for config
	config.GetEnv = os.Getenv

	// Optional .env next to the binary's working directory
	_ = godotenv.Load()

	// Parse command-line flags
	cfg, noStream := parseFlags()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	display := ui.NewDisplay(os.Stdout, cfg.RenderMarkdown)

	logger, logCloser, err := logging.New(cfg.LogPath, cfg.Verbose)
	if err != nil {
		display.PrintWarning(fmt.Sprintf("Logging disabled: %v", err))
	}
	defer logCloser.Close()

	store, err := openStore(cfg)
	if err != nil {
		display.PrintError(err)
		os.Exit(1)
	}
	defer store.Close()

	// Load conversation history
	historyMgr := history.NewManager(store, cfg.HistoryKey, logging.Component(logger, "history"))
	historyMgr.Load()

	state := session.New(historyMgr)
	state.Subscribe(display.OnSnapshot)

	client := ragapi.NewClient(cfg.BaseURL, cfg.RequestTimeout, cfg.StreamTimeout)
	asker := chat.NewAsker(client, state, logging.Component(logger, "chat"))
	tracker := upload.NewTracker(state.SetUploads)
	pipeline := upload.NewPipeline(client, tracker, logging.Component(logger, "upload"))

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		display.PrintInfo("\nShutting down gracefully...")
		cancel()
		store.Close()
		logCloser.Close()
		os.Exit(0)
	}()

	// Service check (non-fatal)
	checkService(ctx, client, display)

	if cfg.WatchDir != "" {
		startWatcher(ctx, cfg, pipeline, display, logging.Component(logger, "watcher"))
	}

	display.PrintWelcome(cfg.BaseURL, historyMgr.Len())

	input := terminal.NewInput(os.Stdin)

	// Main conversation loop
	for {
		display.PrintPrompt()
		line, err := input.ReadLine()
		if err != nil {
			break
		}

		if cmd, ok := terminal.ParseCommand(line); ok {
			if cmd.Name == "exit" || cmd.Name == "quit" {
				break
			}
			runCommand(ctx, cmd, state, client, pipeline, display)
			continue
		}

		state.SetQuestion(line)
		ask := asker.Ask
		if noStream {
			ask = asker.AskOnce
		}
		turn, err := ask(ctx, line)
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion):
			continue
		case err != nil:
			display.FailAnswer(err)
		default:
			display.EndAnswer(turn)
		}
	}

	// Print goodbye message
	display.PrintGoodbye()
}

// parseFlags parses command-line flags on top of defaults and environment
func parseFlags() (*config.Config, bool) {
	cfg := config.NewConfig()
	cfg.ApplyEnv()

	flag.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "RAG service base URL")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Timeout for /ask and /upload requests")
	flag.DurationVar(&cfg.StreamTimeout, "stream-timeout", cfg.StreamTimeout, "Timeout for a whole answer stream (0 = none)")
	flag.StringVar(&cfg.HistoryBackend, "history-backend", cfg.HistoryBackend, "History storage: file or bolt")
	flag.StringVar(&cfg.HistoryPath, "history-path", cfg.HistoryPath, "History storage location")
	flag.StringVar(&cfg.WatchDir, "watch", cfg.WatchDir, "Upload documents dropped into this directory")
	flag.DurationVar(&cfg.WatchDebounce, "watch-debounce", cfg.WatchDebounce, "Quiet period before a watched batch is uploaded")
	flag.BoolVar(&cfg.RenderMarkdown, "markdown", cfg.RenderMarkdown, "Render finished answers as markdown")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable debug logging")
	flag.StringVar(&cfg.LogPath, "log", cfg.LogPath, "Diagnostic log file (empty disables)")

	noStream := flag.Bool("no-stream", false, "Fetch whole answers from /ask instead of streaming")

	flag.Parse()

	cfg.HistoryPath = config.ExpandHome(cfg.HistoryPath)
	cfg.WatchDir = config.ExpandHome(cfg.WatchDir)
	cfg.LogPath = config.ExpandHome(cfg.LogPath)

	return cfg, *noStream
}

// openStore opens the configured history backend
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.HistoryBackend {
	case config.BackendBolt:
		return storage.NewBoltStore(filepath.Join(cfg.HistoryPath, "history.db"))
	default:
		return storage.NewFileStore(cfg.HistoryPath)
	}
}

// checkService warns when the service cannot be reached
func checkService(ctx context.Context, client *ragapi.Client, display *ui.Display) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.ListFiles(ctx); err != nil {
		display.PrintWarning(fmt.Sprintf("RAG service check failed: %v", err))
		display.PrintInfo("Questions and uploads will fail until the service at " + client.BaseURL() + " is reachable.")
	}
}

// runCommand handles slash commands
func runCommand(ctx context.Context, cmd terminal.Command, state *session.State, client *ragapi.Client, pipeline *upload.Pipeline, display *ui.Display) {
	switch cmd.Name {
	case "clear":
		if err := state.ClearHistory(); err != nil {
			display.PrintError(err)
			return
		}
		display.PrintSuccess("Conversation history cleared")
	case "history":
		display.PrintHistory(state.Snapshot().History)
	case "files":
		listFiles(ctx, client, display)
	case "upload":
		uploadFiles(ctx, cmd.Args, pipeline, display)
	default:
		display.PrintWarning(fmt.Sprintf("Unknown command /%s", cmd.Name))
	}
}

// listFiles shows the documents the service has ingested
func listFiles(ctx context.Context, client *ragapi.Client, display *ui.Display) {
	names, err := client.ListFiles(ctx)
	if err != nil {
		display.PrintError(err)
		return
	}

	chunks := map[string]int{}
	details, err := client.FileDetails(ctx)
	if err != nil {
		display.PrintWarning(fmt.Sprintf("Chunk counts unavailable: %v", err))
	}
	for _, d := range details {
		chunks[d.Filename] = d.Chunks
	}
	display.PrintFiles(names, chunks)
}

// uploadFiles runs one batch and prints a summary
func uploadFiles(ctx context.Context, paths []string, pipeline *upload.Pipeline, display *ui.Display) {
	if len(paths) == 0 {
		display.PrintInfo("Usage: /upload <file or directory>...")
		return
	}
	for i, p := range paths {
		paths[i] = config.ExpandHome(p)
	}

	files, err := upload.ExpandPaths(paths)
	if err != nil {
		display.PrintError(err)
		return
	}
	if len(files) == 0 {
		display.PrintInfo("No files to upload")
		return
	}

	statuses, err := pipeline.Run(ctx, files)
	if err != nil {
		display.PrintWarning(err.Error())
		return
	}

	succeeded := 0
	for _, st := range statuses {
		if st.State == upload.Succeeded {
			succeeded++
		}
	}
	if succeeded == len(statuses) {
		display.PrintSuccess(fmt.Sprintf("Uploaded %d file(s)", succeeded))
	} else {
		display.PrintWarning(fmt.Sprintf("Uploaded %d of %d file(s)", succeeded, len(statuses)))
	}
}

// startWatcher uploads documents dropped into the watch directory
func startWatcher(ctx context.Context, cfg *config.Config, pipeline *upload.Pipeline, display *ui.Display, logger zerolog.Logger) {
	w, err := watcher.New(pipeline, cfg.WatchExtensions, cfg.WatchDebounce, logger)
	if err != nil {
		display.PrintWarning(fmt.Sprintf("Folder watch disabled: %v", err))
		return
	}
	go func() {
		defer w.Stop()
		if err := w.Watch(ctx, cfg.WatchDir); err != nil {
			display.PrintWarning(fmt.Sprintf("Folder watch stopped: %v", err))
		}
	}()
	display.PrintInfo("Watching " + cfg.WatchDir + " for new documents")
}
