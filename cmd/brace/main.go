// brace - inspect brace table documents
//
// Usage:
//
//	brace dump FILE...            Parse each file and pretty-print the table
//	brace check [-j N] FILE...    Parse files concurrently and report ok/FAIL
//
// Global flags:
//
//	--verbose         Log per-file parse details (BRACE_VERBOSE)
//	--no-color        Disable colored output (BRACE_NO_COLOR)
//	--escape CODE     Also accept \CODE as an escape for CODE; repeatable
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/uplang/brace"
)

const version = "0.1.0"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			code = ec.ExitCode()
		}
		os.Exit(code)
	}
}

// env is the state shared by all commands of one run.
type env struct {
	stdout  io.Writer
	stderr  io.Writer
	log     *zap.Logger
	parser  *brace.Parser
	noColor bool
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{stdout: stdout, stderr: stderr, log: zap.NewNop()}

	return &cli.App{
		Name:            "brace",
		Usage:           "inspect brace table documents",
		Version:         version,
		Writer:          stdout,
		ErrWriter:       stderr,
		HideHelpCommand: true,
		// main reports errors and picks the exit status
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "log per-file parse details",
				EnvVars: []string{"BRACE_VERBOSE"},
			},
			&cli.BoolFlag{
				Name:    "no-color",
				Usage:   "disable colored output",
				EnvVars: []string{"BRACE_NO_COLOR"},
			},
			&cli.StringSliceFlag{
				Name:  "escape",
				Usage: `also accept \CODE as an escape for CODE (e.g. --escape '\')`,
			},
		},
		Before: e.setup,
		After: func(*cli.Context) error {
			// stderr cannot always be synced; nothing to do about it
			_ = e.log.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "dump",
				Usage:     "parse each file and pretty-print the table",
				ArgsUsage: "FILE...",
				Action:    e.dump,
			},
			{
				Name:      "check",
				Usage:     "parse files concurrently and report ok/FAIL per file",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "jobs",
						Aliases: []string{"j"},
						Usage:   "number of files parsed at once",
						Value:   runtime.NumCPU(),
					},
				},
				Action: e.check,
			},
		},
	}
}

func (e *env) setup(c *cli.Context) error {
	e.noColor = c.Bool("no-color")

	e.log = newLogger(e.stderr, c.Bool("verbose"))

	p, err := newParser(c.StringSlice("escape"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	e.parser = p
	return nil
}

// newParser builds a parser that also accepts each of codes as an escape
// decoding to itself.
func newParser(codes []string) (*brace.Parser, error) {
	p := brace.NewParser()
	for _, code := range codes {
		if len(code) != 1 {
			return nil, fmt.Errorf("escape code must be a single byte, got %q", code)
		}
		p.WithEscape(code[0], code)
	}
	return p, nil
}
