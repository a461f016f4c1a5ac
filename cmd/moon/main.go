// Command moon is the CLI entrypoint: a dispatch loop over a fixed
// command table, grounded on main.go's command interface and its
// flag.FlagSet-per-subcommand registration.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/moonerr"
)

var (
	verbose  = flag.Bool("v", false, "enable verbose logging")
	quiet    = flag.Bool("q", false, "suppress non-error output")
	trace    = flag.Bool("trace", false, "render verbose error traces")
	dryRun   = flag.Bool("dry-run", false, "print commands instead of running them")
	dirFlag  = flag.String("C", "", "run as if moon was invoked in this directory")
	targetDirFlag = flag.String("target-dir", "", "override the project's target directory")
	coverage = flag.Bool("enable-coverage", false, "instrument packages for coverage tracking")
)

// command is one CLI subcommand.
type command interface {
	Name() string
	Args() string
	ShortHelp() string
	LongHelp() string
	Register(*flag.FlagSet)
	Hidden() bool
	Run(ctx *moonctx.Ctx, args []string) error
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	commands := []command{
		&buildCommand{},
		&checkCommand{},
		&runCommand{},
		&testCommand{},
		&benchCommand{},
		&bundleCommand{},
		&infoCommand{},
		&cleanCommand{},
	}

	usage := func() {
		fmt.Fprintln(os.Stderr, "Usage: moon <command> [flags] [args]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr)
		w := tabwriter.NewWriter(os.Stderr, 0, 4, 2, ' ', 0)
		for _, c := range commands {
			if !c.Hidden() {
				fmt.Fprintf(w, "\t%s\t%s\n", c.Name(), c.ShortHelp())
			}
		}
		w.Flush()
		fmt.Fprintln(os.Stderr)
	}

	if len(args) == 0 || strings.ToLower(args[0]) == "-h" || strings.ToLower(args[0]) == "help" {
		usage()
		return 1
	}

	for _, c := range commands {
		if c.Name() != args[0] {
			continue
		}

		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		registerGlobalFlags(fs)
		c.Register(fs)
		resetUsage(fs, c.Name(), c.Args(), c.LongHelp())

		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		moonCtx, err := moonctx.NewContext()
		if err != nil {
			fmt.Fprintf(os.Stderr, "moon: %s\n", formatErr(err))
			return 1
		}

		if err := c.Run(moonCtx, fs.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "moon: %s\n", formatErr(err))
			return exitCodeFor(err)
		}
		return 0
	}

	fmt.Fprintf(os.Stderr, "moon: no such command %q\n", args[0])
	usage()
	return 2
}

// formatErr renders err for the top-level error line, expanding to the full
// verbose trace when -trace is set.
func formatErr(err error) string {
	if *trace {
		return moonerr.TraceString(err)
	}
	return err.Error()
}

func registerGlobalFlags(fs *flag.FlagSet) {
	fs.BoolVar(verbose, "v", false, "enable verbose logging")
	fs.BoolVar(quiet, "q", false, "suppress non-error output")
	fs.BoolVar(trace, "trace", false, "render verbose error traces")
	fs.BoolVar(dryRun, "dry-run", false, "print commands instead of running them")
	fs.StringVar(dirFlag, "C", "", "run as if moon was invoked in this directory")
	fs.StringVar(targetDirFlag, "target-dir", "", "override the project's target directory")
	fs.BoolVar(coverage, "enable-coverage", false, "instrument packages for coverage tracking")
}

func resetUsage(fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		format := "\t-%s=%s"
		if f.DefValue == "true" || f.DefValue == "false" {
			format = "\t-%s\t%s"
		}
		fmt.Fprintf(flagWriter, format+"\n", f.Name, f.Usage)
	})
	flagWriter.Flush()

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: moon %s %s\n", name, args)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, longHelp)
		if hasFlags {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, "Flags:")
			fmt.Fprintln(os.Stderr)
			fmt.Fprint(os.Stderr, flagBlock.String())
		}
	}
}

func exitCodeFor(err error) int {
	if ue, ok := err.(usageError); ok && ue.IsUsageError() {
		return 2
	}
	return 1
}

// usageError is implemented by errors that should map to exit code 2.
type usageError interface {
	IsUsageError() bool
}
