package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"minidb/internal/config"
	"minidb/internal/sql"
)

const (
	promptMain = "minidb> "
	promptCont = "   ...> "
)

// NewREPLCommand creates the interactive shell command.
func NewREPLCommand() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive shell",
		Long: `Start an interactive shell connected to a MiniDB server.

Statements end with a semicolon and may span several lines.
Type .help for shell commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := GetConfig(ctx)

			ex, banner, err := openExecutor(ctx, cfg, GetLogger(ctx), local)
			if err != nil {
				return err
			}
			defer func() { _ = ex.Close() }()

			r := &repl{
				exec:   ex,
				render: NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Client.Output),
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			}
			return r.loop(banner, historyFile(cfg))
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Open the data directory directly instead of connecting to a server")
	return cmd
}

func historyFile(cfg *config.Config) string {
	if cfg.Client.HistoryFile != "" {
		return cfg.Client.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".minidb_history")
}

// repl holds one shell session. Input is buffered until a statement is
// terminated by ';'.
type repl struct {
	exec   executor
	render *Renderer
	out    io.Writer
	errOut io.Writer
	buf    strings.Builder
}

func (r *repl) loop(banner, history string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptMain,
		HistoryFile:     history,
		AutoComplete:    newCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(r.out, banner)
	_, _ = fmt.Fprintln(r.out, "Type .help for commands, .quit to exit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			r.buf.Reset()
			rl.SetPrompt(promptMain)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		prompt, quit := r.handleLine(line)
		if quit {
			return nil
		}
		rl.SetPrompt(prompt)
	}
}

// handleLine consumes one input line and returns the next prompt. quit is
// true when the session should end.
func (r *repl) handleLine(line string) (prompt string, quit bool) {
	trimmed := strings.TrimSpace(line)
	if r.buf.Len() == 0 {
		if trimmed == "" {
			return promptMain, false
		}
		if strings.HasPrefix(trimmed, ".") {
			return promptMain, r.dotCommand(trimmed)
		}
		switch strings.ToLower(strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))) {
		case "exit", "quit":
			return promptMain, true
		}
	}

	r.buf.WriteString(line)
	r.buf.WriteByte('\n')
	if !sql.Terminated(r.buf.String()) {
		return promptCont, false
	}

	text := r.buf.String()
	r.buf.Reset()
	r.run(text)
	return promptMain, false
}

func (r *repl) run(text string) {
	resps, err := r.exec.ExecAll(text)
	for _, resp := range resps {
		if rerr := r.render.Render(resp); rerr != nil {
			_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", rerr)
		}
	}
	if err != nil {
		_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
	}
}

// dotCommand runs a shell command and reports whether to quit.
func (r *repl) dotCommand(line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(r.out)
	case ".tables":
		r.run("SHOW TABLES;")
	case ".databases":
		r.run("SHOW DATABASES;")
	case ".output":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(r.out, "output: %s\n", r.render.Mode())
			break
		}
		if !config.ValidOutput(parts[1]) {
			_, _ = fmt.Fprintf(r.errOut, "Unknown output mode %q (want auto|table|json|yaml)\n", parts[1])
			break
		}
		r.render.SetMode(parts[1])
	default:
		_, _ = fmt.Fprintf(r.errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .databases       List databases
  .tables          List tables in the current database
  .output [mode]   Show or set the output mode (auto|table|json|yaml)
  .quit / .exit    Exit the shell

Tips:
  - Statements must end with a semicolon (;) and may span lines
  - USE <database>; selects the database for this session
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

// newCompleter completes dot-commands and statement keywords.
func newCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, kw := range []string{
		"CREATE DATABASE", "CREATE TABLE", "DROP DATABASE", "DROP TABLE",
		"USE", "SHOW DATABASES;", "SHOW TABLES;", "DESCRIBE",
		"INSERT INTO", "SELECT", "UPDATE", "DELETE FROM",
	} {
		items = append(items, readline.PcItem(kw))
	}
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".databases"),
		readline.PcItem(".tables"),
		readline.PcItem(".output",
			readline.PcItem("auto"),
			readline.PcItem("table"),
			readline.PcItem("json"),
			readline.PcItem("yaml"),
		),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}
