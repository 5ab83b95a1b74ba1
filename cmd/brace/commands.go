package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uplang/brace"
)

// dump parses each file and pretty-prints the result. A file that fails to
// parse is reported and skipped.
func (e *env) dump(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("dump: no files given", 2)
	}

	printer := pp.New()
	printer.SetOutput(e.stdout)
	printer.SetColoringEnabled(e.colored())

	failed := 0
	for _, path := range c.Args().Slice() {
		table, err := e.parseFile(path)
		if err != nil {
			fmt.Fprintf(e.stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(e.stdout, "%s:\n", path)
		if _, err := printer.Println(table); err != nil {
			return fmt.Errorf("print %s: %w", path, err)
		}
	}

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed to parse", failed, c.NArg()), 1)
	}
	return nil
}

// check parses files concurrently and reports each result in argument order.
func (e *env) check(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("check: no files given", 2)
	}
	jobs := c.Int("jobs")
	if jobs < 1 {
		return cli.Exit(fmt.Sprintf("check: --jobs must be at least 1, got %d", jobs), 2)
	}

	paths := c.Args().Slice()
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			_, errs[i] = e.parseFile(path)
			return nil
		})
	}
	// failures are collected per file, never returned
	_ = g.Wait()

	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed, color.Bold)
	if !e.colored() {
		ok.DisableColor()
		fail.DisableColor()
	}

	failed := 0
	for i, path := range paths {
		if errs[i] != nil {
			failed++
			fmt.Fprintf(e.stdout, "%s %s: %v\n", fail.Sprint("FAIL"), path, errs[i])
			continue
		}
		fmt.Fprintf(e.stdout, "%s   %s\n", ok.Sprint("ok"), path)
	}

	e.log.Debug("check finished", zap.Int("files", len(paths)), zap.Int("failed", failed), zap.Int("jobs", jobs))
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed to parse", failed, len(paths)), 1)
	}
	return nil
}

// parseFile reads and parses a whole file.
func (e *env) parseFile(path string) (brace.Table, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table, err := e.parser.ParseReader(f)
	e.log.Debug("parsed file",
		zap.String("file", path),
		zap.Int("entries", len(table)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	return table, err
}

func (e *env) colored() bool {
	return !e.noColor && !color.NoColor
}
