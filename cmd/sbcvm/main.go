// Command sbcvm is the CLI surface named by spec §6: load a module, verify
// it (unless told not to), and execute its entry method. Grounded on
// cmd/wazero/wazero.go's doMain(stdOut, stdErr) int separation, which
// keeps main itself a one-line os.Exit wrapper and lets tests drive doMain
// directly.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sbc-lang/sbcvm"
	"github.com/sbc-lang/sbcvm/internal/engine"
	"github.com/sbc-lang/sbcvm/internal/loader"
	"github.com/sbc-lang/sbcvm/internal/verifier"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr))
}

func doMain(stdOut, stdErr io.Writer) int {
	flag.CommandLine.SetOutput(stdErr)

	noVerify := flag.Bool("no-verify", false, "Skip verification and execute the module as-is.")
	jit := flag.Bool("jit", false, "Enable the tiered compiled-entry engine.")
	verbose := flag.Bool("v", false, "Log lifecycle events (load, verify, tier promotion) to stderr.")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(stdErr, "usage: sbcvm <module.sbc> [--no-verify] [--jit] [-v]")
		return 1
	}

	path := flag.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(stdErr, "load failed: %v\n", err)
		return 1
	}
	defer f.Close()

	var logger *sbcvm.Logger
	if *verbose {
		logger = sbcvm.NewLogger(stdErr, sbcvm.LevelDebug, sbcvm.LogScopeAll)
	}

	m, err := loader.Load(f)
	if err != nil {
		fmt.Fprintf(stdErr, "load failed: %v\n", err)
		return 1
	}
	logger.ModuleLoaded(m.Header.EntryMethodID, len(m.Functions))

	cfg := sbcvm.NewConfig().WithJIT(*jit).WithLogger(logger)
	host := newCLIHost(stdOut, stdErr)

	var result sbcvm.ExecResult
	if *noVerify {
		result = sbcvm.ExecuteVerified(m, sbcvm.BareVerifyResult(m), cfg, host)
	} else {
		vr := verifier.VerifyLogged(m, logger)
		if !vr.OK {
			fmt.Fprintf(stdErr, "verify failed: %s\n", vr.Error)
			return 1
		}
		result = sbcvm.ExecuteVerified(m, vr, cfg, host)
	}

	if result.Status == engine.StatusTrapped {
		fmt.Fprintf(stdErr, "runtime trap: %s\n", result.Error)
		return 1
	}

	if result.ExitCode != 0 {
		return 1
	}
	return 0
}

type cliHost struct {
	stdOut, stdErr io.Writer
	start          time.Time
}

func newCLIHost(stdOut, stdErr io.Writer) *cliHost {
	return &cliHost{stdOut: stdOut, stdErr: stdErr, start: timeNow()}
}

func (h *cliHost) WriteStdout(s string) { fmt.Fprint(h.stdOut, s) }
func (h *cliHost) WriteStderr(s string) { fmt.Fprint(h.stdErr, s) }
func (h *cliHost) Log(s string)         { fmt.Fprintln(h.stdErr, s) }
func (h *cliHost) MonoNs() int64        { return int64(timeNow().Sub(h.start)) }
func (h *cliHost) WallNs() int64        { return timeNow().UnixNano() }
func (h *cliHost) RandU32() uint32      { return uint32(timeNow().UnixNano()) }
func (h *cliHost) RandU64() uint64      { return uint64(timeNow().UnixNano()) }
func (h *cliHost) DlCall(name, args string) (int64, float64, error) {
	return 0, 0, fmt.Errorf("sbcvm: dynamic call %q not supported by the CLI host", name)
}

func timeNow() time.Time { return time.Now() }
