// Package shell is the interactive console over the live store and
// engines. It exists for site supervisors poking at portfolio health
// without memorizing CLI flags.
package shell

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/orchestrator"
	"github.com/sitepulse/sitepulse/internal/storage"
)

// Shell represents the interactive console.
type Shell struct {
	cfg      *config.Config
	store    storage.Store
	analyzer *orchestrator.Analyzer
	rl       *readline.Instance
	ctx      context.Context
	commands map[string]CommandHandler
}

// CommandHandler handles a specific command.
type CommandHandler func(args []string) error

// Config holds shell configuration.
type Config struct {
	Cfg      *config.Config
	Store    storage.Store
	Analyzer *orchestrator.Analyzer
}

// New creates a new shell instance.
func New(cfg *Config) (*Shell, error) {
	if cfg.Cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	s := &Shell{
		cfg:      cfg.Cfg,
		store:    cfg.Store,
		analyzer: cfg.Analyzer,
		commands: make(map[string]CommandHandler),
	}
	s.registerCommands()

	return s, nil
}

// Run starts the shell loop.
func (s *Shell) Run(ctx context.Context) error {
	s.ctx = ctx

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("sitepulse> "),
		HistoryFile:       "",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	s.rl = rl
	s.printWelcome()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			} else if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := s.processInput(line); err != nil {
			if err == io.EOF {
				return nil
			}
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
		}
	}
}

// processInput dispatches a single line of input.
func (s *Shell) processInput(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := parts[0]
	args := parts[1:]

	if handler, ok := s.commands[command]; ok {
		return handler(args)
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s Unknown command %q. Type 'help' for available commands.\n", yellow("Note:"), command)
	return nil
}

// registerCommands registers all built-in commands.
func (s *Shell) registerCommands() {
	s.commands["help"] = s.cmdHelp
	s.commands["?"] = s.cmdHelp
	s.commands["status"] = s.cmdStatus
	s.commands["history"] = s.cmdHistory
	s.commands["analyze"] = s.cmdAnalyze
	s.commands["forecast"] = s.cmdForecast
	s.commands["velocity"] = s.cmdVelocity
	s.commands["risks"] = s.cmdRisks
	s.commands["health"] = s.cmdHealth
	s.commands["exit"] = s.cmdExit
	s.commands["quit"] = s.cmdExit
}

// printWelcome prints the welcome message.
func (s *Shell) printWelcome() {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("\n%s\n", cyan("SitePulse"))
	fmt.Println("Hybrid project-health console")
	fmt.Println()
	fmt.Printf("Tracking %d project(s). Type 'help' for commands, 'exit' to quit.\n", len(s.cfg.Projects))
	fmt.Println()
}

// cmdHelp shows help information.
func (s *Shell) cmdHelp(args []string) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s\n", cyan("Available Commands:"))
	fmt.Println()

	commands := []struct {
		name string
		desc string
	}{
		{"status [project]", "Latest fused health per project"},
		{"history <project> [n]", "Recent analysis cycles"},
		{"analyze [project]", "Run a fresh analysis cycle"},
		{"forecast <project>", "Velocity-based completion forecast"},
		{"velocity <project>", "Velocity trend summary"},
		{"risks <project>", "Delivery risk factors"},
		{"health", "Engine health metrics"},
		{"help, ?", "Show this help message"},
		{"exit, quit", "Exit the shell"},
	}

	for _, cmd := range commands {
		fmt.Printf("  %-24s %s\n", green(cmd.name), cmd.desc)
	}
	fmt.Println()

	return nil
}

// cmdExit exits the shell.
func (s *Shell) cmdExit(args []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("\n%s Goodbye!\n", green("✓"))
	if s.rl != nil {
		s.rl.Close()
	}
	return io.EOF // Signal to exit the loop
}
