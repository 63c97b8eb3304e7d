package dispatch

import (
	"regexp"
	"strings"

	"bitbucket.org/creachadair/stringset"

	"uwizard/internal/catalog"
)

// metacharPattern matches shell-chaining or substitution metacharacters:
// ; && || | ` $( > >> < and newline. Anchored against the raw input, not
// just the head token, since chaining can appear anywhere.
var metacharPattern = regexp.MustCompile("[;|`\\n<>]|&&|\\$\\(")

// dangerousPatterns are explicit blocklist regexes checked independently
// of the metachar scan (some, like a bare `rm -rf`, use no metacharacter).
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-rf\b`),
	regexp.MustCompile(`>\s*/dev/`),
	regexp.MustCompile(`\$\(`),
	regexp.MustCompile("`[^`]*`"),
}

// builtinSafeHeads is the built-in read-only set used when no allowlist is
// configured.
var builtinSafeHeads = stringset.New(
	"ls", "cat", "pwd", "whoami", "echo", "grep", "find", "head", "tail",
	"wc", "date", "df", "du", "ps", "uname", "which", "env",
)

// shellResult is C4's contract: validate(input) → {safe, reason, payload?}.
type shellResult struct {
	Safe    bool
	Reason  string
	Payload *ShellPayload
}

// ShellPolicy configures C4's allowlist/blocklist behavior. A nil or
// zero-value policy falls back to builtinSafeHeads.
type ShellPolicy struct {
	Allowlist stringset.Set // if non-empty, the head must be a member
	Blocklist stringset.Set // heads always rejected regardless of allowlist
}

func validateStage2(policy ShellPolicy, input string) shellResult {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return shellResult{Safe: false, Reason: "empty_input"}
	}

	if metacharPattern.MatchString(input) {
		return shellResult{Safe: false, Reason: "metachar_chain"}
	}
	for _, p := range dangerousPatterns {
		if p.MatchString(input) {
			return shellResult{Safe: false, Reason: "dangerous_pattern"}
		}
	}

	tokens := tokenize(trimmed)
	head := tokens[0]
	args := tokens[1:]

	allowlistEnabled := policy.Allowlist.Len() > 0
	blocklistEnabled := policy.Blocklist.Len() > 0

	if blocklistEnabled && policy.Blocklist.Contains(head) {
		return shellResult{Safe: false, Reason: "blocklisted_command"}
	}

	var reason string
	if allowlistEnabled {
		if !policy.Allowlist.Contains(head) {
			return shellResult{Safe: false, Reason: "not_in_allowlist"}
		}
		reason = "allowlisted"
	} else {
		if !builtinSafeHeads.Contains(head) {
			return shellResult{Safe: false, Reason: "not_in_builtin_safe_set"}
		}
		reason = "builtin_safe_set"
	}

	requiresConfirmation := !isReadOnlyShellHead(head, allowlistEnabled)

	return shellResult{
		Safe:   true,
		Reason: reason,
		Payload: &ShellPayload{
			Command:              head,
			Args:                 args,
			Raw:                  input,
			ValidationReason:     reason,
			AllowlistEnabled:     allowlistEnabled,
			BlocklistEnabled:     blocklistEnabled,
			RequiresConfirmation: requiresConfirmation,
		},
	}
}

// isReadOnlyShellHead decides the confirmation-gate classification for a
// validated shell head. Heads in the built-in safe set are read-only by
// construction; heads admitted only via an explicit allowlist are treated
// as non-read-only (mutating) unless they also appear in the built-in safe
// set, since an allowlist may admit write-capable commands.
func isReadOnlyShellHead(head string, allowlistEnabled bool) bool {
	if builtinSafeHeads.Contains(head) {
		return true
	}
	return false
}

// kindOfShellHead exposes the same classification keyed by canonical-style
// Kind, for callers (e.g. session log) that want the same vocabulary C2
// uses for ucode commands.
func kindOfShellHead(head string) catalog.Kind {
	if builtinSafeHeads.Contains(head) {
		return catalog.ReadOnly
	}
	return catalog.Mutating
}
