// Package errs defines the typed error kinds used across the core, matching
// the error taxonomy in SPEC_FULL.md §7: ConfigurationError, IngressError,
// FlowError, PatternError, BudgetViolation and FatalShardError.
package errs

import "fmt"

// Kind classifies an error into one of the §7 families so adapters and
// metrics can branch without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindIngress
	KindFlow
	KindPattern
	KindBudget
	KindFatalShard
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "CONFIGURATION"
	case KindIngress:
		return "INGRESS"
	case KindFlow:
		return "FLOW"
	case KindPattern:
		return "PATTERN"
	case KindBudget:
		return "BUDGET"
	case KindFatalShard:
		return "FATAL_SHARD"
	default:
		return "UNKNOWN"
	}
}

// CoreError is the common shape for every typed error the core returns.
// Tag is the specific error name from §7 (e.g. "PatternBudgetExceeded").
type CoreError struct {
	Kind Kind
	Tag  string
	Msg  string
	err  error
}

func (e *CoreError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Tag)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Tag, e.Msg)
}

func (e *CoreError) Unwrap() error { return e.err }

func newErr(kind Kind, tag, msg string, wrapped error) *CoreError {
	return &CoreError{Kind: kind, Tag: tag, Msg: msg, err: wrapped}
}

// Configuration-time errors (§4.1, §7).
func PatternBudgetExceeded(msg string) error {
	return newErr(KindConfiguration, "PatternBudgetExceeded", msg, nil)
}
func InvalidBranchCount(msg string) error {
	return newErr(KindConfiguration, "InvalidBranchCount", msg, nil)
}
func TimeoutExceedsBudget(msg string) error {
	return newErr(KindConfiguration, "TimeoutExceedsBudget", msg, nil)
}
func CompositionBudgetExceeded(msg string) error {
	return newErr(KindConfiguration, "CompositionBudgetExceeded", msg, nil)
}
func DuplicatePredicate(msg string) error {
	return newErr(KindConfiguration, "DuplicatePredicate", msg, nil)
}
func GuardNonDeterministic(msg string) error {
	return newErr(KindConfiguration, "GuardNonDeterministic", msg, nil)
}

// Ingress errors (TRANSFORM, §7).
func SchemaViolation(msg string) error {
	return newErr(KindIngress, "SchemaViolation", msg, nil)
}
func UnknownPredicate(msg string) error {
	return newErr(KindIngress, "UnknownPredicate", msg, nil)
}

// Flow (hot-path) errors — always result in a park, never kill the fiber.
func RingBusy(msg string) error {
	return newErr(KindFlow, "RingBusy", msg, nil)
}
func PoolStarved(msg string) error {
	return newErr(KindFlow, "PoolStarved", msg, nil)
}
func RunOverlength(msg string) error {
	return newErr(KindFlow, "RunOverlength", msg, nil)
}

// Pattern (kernel) errors — surfaced on the receipt, execution continues.
func MergeContention(msg string) error {
	return newErr(KindPattern, "MergeContention", msg, nil)
}
func DiscriminatorReset(msg string) error {
	return newErr(KindPattern, "DiscriminatorReset", msg, nil)
}
func MIBoundExceeded(msg string) error {
	return newErr(KindPattern, "MIBoundExceeded", msg, nil)
}

// BudgetViolation: elapsed ticks exceeded the Chatman Constant.
func BudgetViolation(msg string) error {
	return newErr(KindBudget, "BudgetViolation", msg, nil)
}

// FatalShardError: MissingHook or a malformed run past the bounds check.
func MissingHook(msg string) error {
	return newErr(KindFatalShard, "MissingHook", msg, nil)
}
func MalformedRun(msg string) error {
	return newErr(KindFatalShard, "MalformedRun", msg, nil)
}

// As reports whether err is a *CoreError and returns it.
func As(err error) (*CoreError, bool) {
	ce, ok := err.(*CoreError)
	return ce, ok
}
