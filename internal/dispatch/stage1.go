package dispatch

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	"uwizard/internal/catalog"
	"uwizard/internal/logging"
)

// fuzzyFloor is the minimum normalized-similarity score for a fuzzy match
// to be accepted.
const fuzzyFloor = 0.8

// matchResult is C3's contract: match(input) → {command?, args?, confidence, reason}.
type matchResult struct {
	Command    string
	Args       []string
	Confidence float64
	Reason     string
}

// tokenize splits on whitespace while preserving quoted substrings (single
// or double quotes) as one token with the quotes stripped.
func tokenize(input string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range input {
		switch {
		case inQuote:
			if r == quote {
				inQuote = false
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = true
			quote = r
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// normalizedSimilarity returns 1 - (edit distance / max length), in [0,1].
func normalizedSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// matchStage1 implements C3: tokenize, canonical check, alias check, then
// bounded fuzzy fallback restricted to alphabetic heads of length >= 4.
func matchStage1(cat *catalog.Catalog, input string) matchResult {
	log := logging.Get(logging.CategoryStage1)

	tokens := tokenize(input)
	if len(tokens) == 0 {
		return matchResult{Confidence: 0, Reason: "no_match"}
	}

	head := strings.ToUpper(tokens[0])
	args := tokens[1:]

	if len(tokens) >= 2 {
		twoWordHead := head + " " + strings.ToUpper(tokens[1])
		if cat.IsCanonical(twoWordHead) {
			log.Debug("stage1 canonical match head=%s", twoWordHead)
			return matchResult{Command: twoWordHead, Args: tokens[2:], Confidence: 1.0, Reason: "canonical"}
		}
		if target, ok := cat.ResolveAlias(twoWordHead); ok {
			log.Debug("stage1 alias match head=%s target=%s", twoWordHead, target)
			return matchResult{Command: target, Args: tokens[2:], Confidence: 1.0, Reason: "alias"}
		}
	}

	if cat.IsCanonical(head) {
		log.Debug("stage1 canonical match head=%s", head)
		return matchResult{Command: head, Args: args, Confidence: 1.0, Reason: "canonical"}
	}

	if target, ok := cat.ResolveAlias(head); ok {
		log.Debug("stage1 alias match head=%s target=%s", head, target)
		return matchResult{Command: target, Args: args, Confidence: 1.0, Reason: "alias"}
	}

	if isAlphabetic(head) && len(head) >= 4 {
		best := matchResult{Confidence: 0, Reason: "no_match"}
		var bestName string
		for _, entry := range cat.Entries() {
			sim := normalizedSimilarity(head, entry.Name)
			if sim >= fuzzyFloor && sim > best.Confidence {
				best = matchResult{Command: entry.Name, Args: args, Confidence: sim, Reason: "fuzzy"}
				bestName = entry.Name
			}
		}
		if bestName != "" {
			log.Debug("stage1 fuzzy match head=%s -> %s confidence=%.2f", head, bestName, best.Confidence)
			return best
		}
	}

	return matchResult{Confidence: 0, Reason: "no_match"}
}
