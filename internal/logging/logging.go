// Package logging carries the lifecycle diagnostics the error-handling
// design asks for independently of the three error-data layers: module
// load, verification, and tier-promotion events, never program
// stdout/stderr (that belongs to intrinsic.Host). It stays a thin
// Logger writing to an io.Writer rather than a structured-logging dependency,
// mirroring the teacher's own internal/logging package: wazero carries no
// third-party logging library anywhere in its require block, only
// hand-rolled, scope-gated write-to-io.Writer helpers.
package logging

import (
	"fmt"
	"io"
	"strings"
)

// LogScopes is a bitset of the lifecycle areas a Logger reports on,
// mirroring internal/logging's own LogScopes bitmask (there, WASI import
// categories; here, this repo's own three lifecycle stages).
type LogScopes uint64

const (
	LogScopeNone    = LogScopes(0)
	LogScopeLoad    LogScopes = 1 << iota
	LogScopeVerify
	LogScopeEngine
	LogScopeAll = LogScopes(0xffffffffffffffff)
)

func scopeName(s LogScopes) string {
	switch s {
	case LogScopeLoad:
		return "load"
	case LogScopeVerify:
		return "verify"
	case LogScopeEngine:
		return "engine"
	default:
		return fmt.Sprintf("<unknown=%d>", s)
	}
}

// IsEnabled returns true if scope (or any bit in a group of scopes) is set.
func (f LogScopes) IsEnabled(scope LogScopes) bool {
	return f&scope != 0
}

// String implements fmt.Stringer by listing each enabled scope.
func (f LogScopes) String() string {
	if f == LogScopeAll {
		return "all"
	}
	var b strings.Builder
	for i := 0; i <= 63; i++ {
		target := LogScopes(1 << i)
		if f.IsEnabled(target) {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(scopeName(target))
		}
	}
	return b.String()
}

// Level orders the diagnostic events this package emits. There is no
// Warn/Fatal split: lifecycle events are either routine (Debug), notable
// (Info), or a verification/load failure (Error).
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Logger writes leveled, scope-gated lines to a single io.Writer. A nil
// *Logger is valid and every method on it is a no-op, so callers that
// never opt into logging (the common case) pay nothing but a nil check.
type Logger struct {
	out    io.Writer
	level  Level
	scopes LogScopes
}

// New returns a Logger writing lines at level and above, for any scope in
// scopes, to out. Passing a nil out is equivalent to io.Discard.
func New(out io.Writer, level Level, scopes LogScopes) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, level: level, scopes: scopes}
}

func (l *Logger) log(scope LogScopes, level Level, format string, args ...any) {
	if l == nil || level < l.level || !l.scopes.IsEnabled(scope) {
		return
	}
	fmt.Fprintf(l.out, "sbcvm: %s: "+format+"\n", append([]any{level}, args...)...)
}

// ModuleLoaded logs a successful module load. The loader package itself
// never depends on this one (spec places the loader outside this
// module's scope); a caller such as the CLI logs after Load returns.
func (l *Logger) ModuleLoaded(entryMethodID uint32, numFunctions int) {
	l.log(LogScopeLoad, LevelInfo, "module loaded: entry method %d, %d functions", entryMethodID, numFunctions)
}

func (l *Logger) LoadFailed(err error) {
	l.log(LogScopeLoad, LevelError, "module load failed: %v", err)
}

// VerifyStart/VerifyResult log the verifier's lifecycle.
func (l *Logger) VerifyStart(numFunctions int) {
	l.log(LogScopeVerify, LevelDebug, "verification started: %d functions", numFunctions)
}

func (l *Logger) VerifyResult(ok bool, errMsg string) {
	if ok {
		l.log(LogScopeVerify, LevelInfo, "verification succeeded")
		return
	}
	l.log(LogScopeVerify, LevelError, "verification failed: %s", errMsg)
}

// TierChange logs a function's promotion from one tier to another.
func (l *Logger) TierChange(funcIdx int, from, to string) {
	l.log(LogScopeEngine, LevelInfo, "function %d promoted: %s -> %s", funcIdx, from, to)
}

// Bailout logs a compiled entry ceding control back to the interpreter.
func (l *Logger) Bailout(funcIdx int, route string, persistent bool) {
	l.log(LogScopeEngine, LevelDebug, "function %d bailed out of %s (persistent=%t)", funcIdx, route, persistent)
}
