// Package clirun implements cmd/nightjar's single verb: run <path>. It
// mirrors the teacher's maincmd package (flag parsing via mainer.Parser,
// a Cmd struct driving a mainer.ExitCode) trimmed to the one command
// this repo's out-of-scope-compiler constraint leaves meaningful (§9.4).
package clirun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mna/mainer"
	"github.com/nightjar-lang/nightjar/internal/runtimecfg"
	"github.com/nightjar-lang/nightjar/lang/asm"
	"github.com/nightjar-lang/nightjar/lang/machine"
)

const binName = "nightjar"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] run <path>
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] run <path>
       %[1]s -h|--help
       %[1]s -v|--version

Runs an assembled bytecode program against the nightjar runtime.

The <command> is:
       run <path>                Load and run the program at path.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       --verbose                 Log GC, module-load, and panic
                                 diagnostics to stderr.

More information: see the module's README.
`, binName)
)

// Cmd holds the flags mainer.Parser populates and the build metadata
// main.go's linker-injected version/buildDate vars feed in, exactly as
// the teacher's Cmd struct does.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Verbose bool `flag:"verbose"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}
	if c.args[0] != "run" {
		return fmt.Errorf("unknown command: %s", c.args[0])
	}
	if len(c.args) < 2 {
		return errors.New("run: a path argument is required")
	}
	return nil
}

// Main parses args and dispatches to the run verb, returning the process
// exit code mainer expects (§9.4).
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio, c.args[1]); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}

// run constructs a VM from the layered manifest/env config and executes
// path, printing its final value to stdout (§6.2, §9.3, §9.4).
func (c *Cmd) run(_ context.Context, stdio mainer.Stdio, path string) error {
	cfg, err := runtimecfg.FromManifest("nightjar.yaml")
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	vm := machine.NewVM(cfg.MaxMemoryBytes)
	vm.SetImportRoots(cfg.ImportRoots)
	vm.SetCompiler(asm.LoaderFor(vm))
	vm.SetArgs(c.args[2:])

	if c.Verbose {
		vm.SetLogger(slog.New(slog.NewTextHandler(stdio.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	result, err := vm.ExecPath(path)
	if err != nil {
		var rerr *machine.RuntimeError
		if errors.As(err, &rerr) && rerr.Exit {
			os.Exit(rerr.Code)
		}
		return err
	}
	if !result.IsNull() {
		fmt.Fprintln(stdio.Stdout, result.DebugString())
	}
	return nil
}
