// Package timeouts classifies debugger commands into timeout buckets and
// generates staged heartbeat text for long operations. It is pure and
// stateless; the buckets themselves come from configuration.
package timeouts

import (
	"strings"
	"time"

	"github.com/npratt/debugq/internal/config"
)

// longRunningTokens mark commands that routinely run for many minutes:
// full dump analysis, heap walks, pool and VM scans.
var longRunningTokens = []string{
	"!analyze", "!heap", "!poolused", "!verifier", "!locks", "!deadlock",
	"!process", "!thread", "!handle", "!vm", "!vadump", "!memusage",
}

// complexTokens mark commands that are heavier than simple register or
// module queries but normally finish within minutes.
var complexTokens = []string{
	"!stack", "!clrstack", "!dumpheap", "!gcroot", "!finalizequeue",
	"!syncblk", "!threads", "!runaway", "!address", "!peb", "!teb",
}

// simplePrefixes cover short inspection commands (stack, modules, registers).
var simplePrefixes = []string{"k", "lm", "r"}

// Classify returns the timeout bucket for a command.
func Classify(text string, cfg config.TimeoutConfig) time.Duration {
	t := strings.ToLower(strings.TrimSpace(text))

	for _, token := range longRunningTokens {
		if strings.Contains(t, token) {
			return cfg.LongRunning
		}
	}
	for _, token := range complexTokens {
		if strings.Contains(t, token) {
			return cfg.Complex
		}
	}

	if len(t) < 10 {
		if t == "version" {
			return cfg.Simple
		}
		for _, p := range simplePrefixes {
			if strings.HasPrefix(t, p) {
				return cfg.Simple
			}
		}
	}

	return cfg.Default
}

// heartbeat phrase tables, indexed by elapsed-time bucket:
// <2m, <5m, <10m, beyond.
var heartbeatStages = []struct {
	token   string
	phrases [4]string
}{
	{"!analyze", [4]string{"initializing", "analyzing", "symbol resolution", "deep analysis"}},
	{"!dumpheap", [4]string{"enumerating objects", "walking managed heap", "resolving object types", "deep heap dump"}},
	{"!heap", [4]string{"enumerating heaps", "walking heap entries", "validating heap blocks", "deep heap analysis"}},
	{"!process", [4]string{"enumerating processes", "walking process data", "resolving process details", "deep process scan"}},
	{"!locks", [4]string{"collecting handles", "resolving lock owners", "analyzing wait chains", "deep lock analysis"}},
	{"!handle", [4]string{"collecting handles", "resolving lock owners", "analyzing wait chains", "deep lock analysis"}},
}

var genericStages = [4]string{"executing", "still executing", "long-running operation", "extended operation"}

// HeartbeatText returns a family-specific progress phrase for a command
// that has been executing for the given duration.
func HeartbeatText(text string, elapsed time.Duration) string {
	t := strings.ToLower(strings.TrimSpace(text))

	stage := stageIndex(elapsed)
	for _, family := range heartbeatStages {
		if strings.Contains(t, family.token) {
			return family.phrases[stage]
		}
	}
	return genericStages[stage]
}

func stageIndex(elapsed time.Duration) int {
	switch {
	case elapsed < 2*time.Minute:
		return 0
	case elapsed < 5*time.Minute:
		return 1
	case elapsed < 10*time.Minute:
		return 2
	default:
		return 3
	}
}
