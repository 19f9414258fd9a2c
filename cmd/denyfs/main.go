package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/denyfs/denyfs/orchestrator"
)

const exitCodeSIGINT = 130

func main() {
	// Hidden-role dispatch must happen before any flag parsing: nsinit and
	// cmdinit are re-exec'd copies of this same binary and never see the
	// ordinary CLI surface (mirrors cmd/agent-sandbox/run.go's argv0-based
	// multicall dispatch, adapted to a leading hidden argument instead of a
	// borrowed argv0).
	if handled, code := orchestrator.Dispatch(os.Args); handled {
		os.Exit(code)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, sigCh))
}

// Run is the supervisor CLI entry point, isolated from process globals so
// it can be driven by tests (same shape as cmd/agent-sandbox/run.go's Run).
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, sigCh <-chan os.Signal) int {
	flags := flag.NewFlagSet("denyfs", flag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.Usage = func() {}
	flags.SetOutput(&strings.Builder{})

	flagHelp := flags.BoolP("help", "h", false, "Show help")
	flagQuiet := flags.Bool("quiet", false, "Suppress denial lines on stderr")
	flagLogFile := flags.String("log-file", "", "Append denial events to `file`")
	flagCwd := flags.StringP("cwd", "C", "", "Run as if started in `dir`")

	if err := flags.Parse(args[1:]); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	commandAndArgs := flags.Args()

	if *flagHelp || len(commandAndArgs) == 0 {
		printUsage(stdout)
		return 0
	}

	cwd := *flagCwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(stderr, "denyfs:", err)
			return 1
		}

		cwd = wd
	}

	ruleTexts, err := LoadDenyRules(cwd)
	if err != nil {
		fmt.Fprintln(stderr, "denyfs:", err)
		return 1
	}

	killCtx, kill := context.WithCancel(context.Background())
	defer kill()

	type result struct {
		code int
		err  error
	}

	done := make(chan result, 1)

	go func() {
		code, runErr := orchestrator.Supervise(killCtx, orchestrator.Config{
			RuleTexts:  ruleTexts,
			Cwd:        cwd,
			TargetArgv: commandAndArgs,
			Quiet:      *flagQuiet,
			LogFile:    *flagLogFile,
			Stdin:      stdin,
			Stdout:     stdout,
			Stderr:     stderr,
		})
		done <- result{code: code, err: runErr}
	}()

	if sigCh == nil {
		r := <-done
		if r.err != nil {
			fmt.Fprintln(stderr, "denyfs:", r.err)
			return 1
		}

		return r.code
	}

	select {
	case r := <-done:
		if r.err != nil {
			fmt.Fprintln(stderr, "denyfs:", r.err)
			return 1
		}

		return r.code
	case <-sigCh:
		kill()
		r := <-done

		if r.err != nil {
			fmt.Fprintln(stderr, "denyfs:", r.err)
		}

		return exitCodeSIGINT
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: denyfs [--quiet] [--log-file file] [-C dir] <command> [args...]")
}
