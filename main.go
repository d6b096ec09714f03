// Insight Lab: token probability visualizer and prompt analysis server.
// Entry point: the serve command wires all packages and starts the HTTP
// server; the other commands run the core offline in the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Offline commands write to out.
func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "insightlab",
		Usage:   "Token probability visualizer and prompt analysis lab",
		Version: Version,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			serveCmd(),
			simulateCmd(out),
			tokenizeCmd(out),
			analyzeCmd(out),
			shareCmd(out),
		},
	}
}
