package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/librarian/internal/async"
	"github.com/Aman-CERP/librarian/internal/config"
	"github.com/Aman-CERP/librarian/internal/index"
	"github.com/Aman-CERP/librarian/internal/search"
	"github.com/Aman-CERP/librarian/internal/ui"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat: type a query, get matching books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
	}
}

// chatSession holds the state of one interactive session. Indexing
// started with /index-bg runs in a supervised background worker; the
// session polls its status events between prompts.
type chatSession struct {
	cfg     *config.Config
	printer *ui.Printer
	sup     *async.Supervisor
	out     io.Writer
}

func runChat(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s := &chatSession{
		cfg:     cfg,
		printer: ui.NewPrinter(cmd.OutOrStdout()),
		sup:     async.NewSupervisor(),
		out:     cmd.OutOrStdout(),
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(filepath.Dir(cfg.Store.Path), "history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err == nil {
			if f, err := os.Create(historyPath); err == nil {
				_, _ = line.WriteHistory(f)
				_ = f.Close()
			}
		}
	}()

	fmt.Fprintln(s.out, "Welcome to the librarian. Ask about your books, or /help for commands.")

	for {
		s.drainEvents()

		input, err := line.Prompt(s.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			s.shutdown()
			return nil
		}
		if err != nil {
			s.shutdown()
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := s.command(cmd.Context(), input); quit {
				s.shutdown()
				return nil
			}
			continue
		}

		s.query(cmd.Context(), input)
	}
}

// prompt marks the prompt while a background indexing job is alive.
func (s *chatSession) prompt() string {
	if s.sup.IsRunning() {
		return "librarian [indexing]> "
	}
	return "librarian> "
}

// drainEvents prints every buffered background-indexing event.
func (s *chatSession) drainEvents() {
	for _, ev := range s.sup.Drain() {
		s.printer.Event(ev)
	}
}

// command dispatches a slash command. It returns true when the session
// should end.
func (s *chatSession) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return true

	case "/help":
		s.help()

	case "/index":
		if len(args) == 0 {
			s.printer.Info("Usage: /index <path>")
			return false
		}
		s.indexForeground(ctx, strings.Join(args, " "))

	case "/index-bg":
		if len(args) == 0 {
			s.printer.Info("Usage: /index-bg <path>")
			return false
		}
		path := strings.Join(args, " ")
		if !s.sup.Start(path, s.cfg.Store.Path) {
			s.printer.Info("An indexing job is already running. /index-status to watch it.")
			return false
		}
		s.printer.Info("Indexing started in the background. /index-status to watch it.")

	case "/index-status":
		s.indexStatus()

	case "/stats":
		s.stats(ctx)

	default:
		s.printer.Info(fmt.Sprintf("Unknown command %s. /help lists the commands.", name))
	}
	return false
}

func (s *chatSession) help() {
	fmt.Fprint(s.out, `Commands:
  /index <path>      Index a book or directory (waits for completion)
  /index-bg <path>   Index in the background while you keep searching
  /index-status      Show background indexing progress
  /stats             Show library statistics
  /quit              Leave the chat

Anything else is treated as a search query.
`)
}

// query searches the library and prints fused per-book results.
func (s *chatSession) query(ctx context.Context, text string) {
	st, err := openStore(ctx, s.cfg, s.printer)
	if err != nil {
		s.printer.Error(err)
		return
	}
	defer func() { _ = st.Close() }()

	limit := s.cfg.Search.MaxResults
	hits, err := st.Query(ctx, text, limit*search.OverFetchFactor)
	if err != nil {
		s.printer.Error(err)
		return
	}

	s.printer.Results(text, search.Fuse(hits, limit))
}

// indexForeground indexes path in this process, holding the prompt until
// the run finishes.
func (s *chatSession) indexForeground(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		s.printer.Error(err)
		return
	}

	st, err := openStore(ctx, s.cfg, s.printer)
	if err != nil {
		s.printer.Error(err)
		return
	}
	defer func() { _ = st.Close() }()

	runner := index.NewRunner(st)
	runner.OnProgress = func(file string, done, total int) {
		s.printer.Info(fmt.Sprintf("  [%d/%d] %s", done, total, filepath.Base(file)))
	}

	var stats index.Stats
	if info.IsDir() {
		stats, err = runner.Directory(ctx, path)
		if err != nil {
			s.printer.Error(err)
			return
		}
	} else {
		if err := runner.File(ctx, path); err != nil {
			s.printer.Error(err)
			return
		}
		stats.Success = 1
	}

	s.printer.IndexSummary(stats)
}

func (s *chatSession) indexStatus() {
	s.drainEvents()
	if s.sup.IsRunning() {
		if elapsed, ok := s.sup.Elapsed(); ok {
			s.printer.Info(fmt.Sprintf("Indexing is running (%s elapsed).", elapsed.Round(time.Second)))
		} else {
			s.printer.Info("Indexing is running.")
		}
		return
	}
	s.printer.Info("No indexing job is running.")
}

func (s *chatSession) stats(ctx context.Context) {
	st, err := openStore(ctx, s.cfg, s.printer)
	if err != nil {
		s.printer.Error(err)
		return
	}
	defer func() { _ = st.Close() }()

	stats, err := st.Stats()
	if err != nil {
		s.printer.Error(err)
		return
	}
	docs, err := st.IndexedDocuments()
	if err != nil {
		s.printer.Error(err)
		return
	}
	s.printer.Stats(stats, docs)
}

// shutdown stops any background worker before the session exits, waiting
// the supervisor's grace period for a clean document boundary.
func (s *chatSession) shutdown() {
	if s.sup.IsRunning() {
		s.printer.Info("Stopping background indexing...")
		s.sup.Stop()
		s.drainEvents()
	}
	slog.Info("chat session ended")
	fmt.Fprintln(s.out, "Goodbye.")
}
