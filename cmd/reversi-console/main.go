package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/dmmcquay/reversi-mcp/internal/config"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/reversi"
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// quitReader turns "quit" or "exit" into errQuit and Ctrl-C into io.EOF.
type quitReader struct {
	l *readline.Instance
}

func (q quitReader) Readline() (string, error) {
	line, err := q.l.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	switch strings.TrimSpace(line) {
	case "quit", "exit", "bye":
		return "", errQuit
	}
	return line, nil
}

func main() {
	var (
		color string
		depth int
	)
	flag.StringVar(&color, "color", "black", "Your color: black or white")
	flag.IntVar(&depth, "depth", -1, "Engine search depth (default: configured depth)")
	flag.Parse()

	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if depth < 0 {
		depth = cfg.Engine.SearchDepth
	}
	if depth > config.MaxSearchDepth {
		depth = config.MaxSearchDepth
	}

	human := reversi.Black
	switch strings.ToLower(color) {
	case "black", "b":
	case "white", "w":
		human = reversi.White
	default:
		fmt.Fprintf(os.Stderr, "Unknown color %q\n", color)
		os.Exit(2)
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:              "\033[32mreversi>\033[0m ",
		HistoryFile:         "/tmp/reversi-readline.tmp",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()

	logger := logging.NewLoggerWithWriter(l.Stderr(), &logging.Config{
		Level:  cfg.Logging.Level,
		Format: logging.FormatText,
	})
	g := &game{
		board:  reversi.InitialBoard(),
		human:  human,
		depth:  depth,
		in:     quitReader{l: l},
		out:    l.Stdout(),
		logger: logger,
	}
	fmt.Fprintf(g.out, "You play %s %s against depth %d. Type an index to move, quit to leave.\n",
		human.Glyph(), human, depth)

	if err := g.play(); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, io.EOF) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
