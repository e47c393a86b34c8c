// Package sbcvm is the public entry point to the verifier and tiered
// execution engine: Verify a loaded module, then Execute it under a
// Config. Grounded on tetratelabs-wazero's RuntimeConfig pattern
// (config.go): an immutable, clonable config built up through With*
// methods rather than mutated in place.
package sbcvm

import (
	"io"

	"github.com/sbc-lang/sbcvm/internal/engine"
	"github.com/sbc-lang/sbcvm/internal/intrinsic"
	"github.com/sbc-lang/sbcvm/internal/logging"
	"github.com/sbc-lang/sbcvm/internal/sbc"
	"github.com/sbc-lang/sbcvm/internal/verifier"
)

// Logger re-exports internal/logging's lifecycle logger so callers never
// need to import internal/... directly.
type Logger = logging.Logger

// LogScopes and its levels re-export internal/logging's scope/level
// vocabulary for NewLogger.
type LogScopes = logging.LogScopes

const (
	LogScopeLoad   = logging.LogScopeLoad
	LogScopeVerify = logging.LogScopeVerify
	LogScopeEngine = logging.LogScopeEngine
	LogScopeAll    = logging.LogScopeAll
)

const (
	LevelDebug = logging.LevelDebug
	LevelInfo  = logging.LevelInfo
	LevelError = logging.LevelError
)

// NewLogger builds a Logger writing to out at level, for the given scopes.
func NewLogger(out io.Writer, level logging.Level, scopes LogScopes) *Logger {
	return logging.New(out, level, scopes)
}

// Module is the loaded module shape a loader (external to this repo, per
// spec §6) produces and Verify/Execute consume.
type Module = sbc.Module

// Host is the side-effecting intrinsic host: stdout/stderr, clock,
// randomness, and the dynamic-call ABI. See internal/intrinsic.Host.
type Host = intrinsic.Host

// VerifyResult is the artifact of Verify: per-function stack maps and
// local typings, consumed by Execute to skip re-deriving them.
type VerifyResult = verifier.VerifyResult

// ExecResult is the terminal outcome and full observability surface of
// Execute: status, exit code, and every per-function/per-opcode counter.
type ExecResult = engine.ExecResult

// Config controls Execute's behavior. The zero value is not usable;
// build one with NewConfig.
type Config struct {
	jitEnabled bool
	thresholds engine.Thresholds
	emitter    engine.Emitter
	logger     *logging.Logger
}

// defaultConfig mirrors wazero's engineLessConfig: a private base every
// exported constructor clones from, so defaults live in exactly one place.
var defaultConfig = &Config{
	jitEnabled: false,
	thresholds: engine.DefaultThresholds,
}

// NewConfig returns a Config with the tiered engine disabled: every call
// runs under the baseline interpreter (C5) alone.
func NewConfig() *Config {
	return defaultConfig.clone()
}

func (c *Config) clone() *Config {
	return &Config{jitEnabled: c.jitEnabled, thresholds: c.thresholds, emitter: c.emitter, logger: c.logger}
}

// WithLogger attaches a lifecycle logger (C11); nil disables logging.
func (c *Config) WithLogger(l *Logger) *Config {
	ret := c.clone()
	ret.logger = l
	return ret
}

// WithJIT enables the promotion controller (C6) against the reference
// compiled-entry backend (C7, see internal/engine.NewReferenceEmitter).
// Without a prior WithEmitter call, this repo's own ReferenceEmitter is
// used.
func (c *Config) WithJIT(enabled bool) *Config {
	ret := c.clone()
	ret.jitEnabled = enabled
	if enabled && ret.emitter == nil {
		ret.emitter = engine.NewReferenceEmitter()
	}
	return ret
}

// WithEmitter installs a custom Emitter (spec §6's external collaborator).
// Passing nil disables JIT regardless of a prior WithJIT(true).
func (c *Config) WithEmitter(e engine.Emitter) *Config {
	ret := c.clone()
	ret.emitter = e
	return ret
}

// WithThresholds overrides the default promotion gates (DESIGN.md's Open
// Question resolution for the undefined kJitTier0Threshold /
// kJitTier1Threshold / kJitOpcodeThreshold constants).
func (c *Config) WithThresholds(tier0Calls, tier1Calls, opcodeThreshold int) *Config {
	ret := c.clone()
	ret.thresholds = engine.Thresholds{
		Tier0CallCount:  tier0Calls,
		Tier1CallCount:  tier1Calls,
		OpcodeThreshold: opcodeThreshold,
	}
	return ret
}

// Verify runs the static verifier (C4) over m, in isolation from any
// execution.
func Verify(m *Module) VerifyResult {
	return verifier.Verify(m)
}

// BareVerifyResult builds the minimal per-function shape Execute needs
// when verification is explicitly skipped (the CLI's --no-verify flag).
// It provides none of the verifier's safety guarantees.
func BareVerifyResult(m *Module) VerifyResult {
	return verifier.Bare(m)
}

// Execute verifies m and, if verification succeeds, runs its entry
// method to completion under cfg. host supplies the side-effecting
// intrinsics; it may be nil if the module calls none.
func Execute(m *Module, cfg *Config, host Host) ExecResult {
	if cfg == nil {
		cfg = NewConfig()
	}
	vr := verifier.VerifyLogged(m, cfg.logger)
	if !vr.OK {
		return ExecResult{Status: engine.StatusTrapped, Error: "verify failed: " + vr.Error}
	}
	return ExecuteVerified(m, vr, cfg, host)
}

// ExecuteVerified runs m's entry method using an already-computed
// VerifyResult, skipping re-verification. Used by callers (e.g. the CLI)
// that need to report a verify failure distinctly from a runtime trap.
func ExecuteVerified(m *Module, vr VerifyResult, cfg *Config, host Host) ExecResult {
	if cfg == nil {
		cfg = NewConfig()
	}
	return engine.Execute(m, vr, host, cfg.thresholds, cfg.jitEnabled, cfg.emitter, cfg.logger)
}
