package consistency

import (
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/quillan/formfill-api/internal/domain"
)

// DefaultThreshold is the minimum similarity for a text answer to be
// considered consistent with a prior answer.
const DefaultThreshold = 0.6

// Validator cross-checks newly generated answers against previously accepted
// answers for the same question, rejecting answers that drift too far from
// prior responses. History is scoped to the validator's lifetime; it resets
// on restart.
type Validator struct {
	threshold float64
	logger    *slog.Logger

	mu      sync.Mutex
	history map[string][]string
}

// New creates a Validator. A threshold outside (0, 1] falls back to
// DefaultThreshold.
func New(threshold float64, logger *slog.Logger) *Validator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Validator{
		threshold: threshold,
		logger:    logger,
		history:   make(map[string][]string),
	}
}

// CheckConsistency reports whether answer agrees with the prior accepted
// answers for a question. An empty history always agrees. Choice questions
// require an exact match against a prior answer; text questions accept when
// the maximum similarity against any prior answer reaches the threshold.
func (v *Validator) CheckConsistency(qtype domain.QuestionType, question, answer string, prior []string) bool {
	if len(prior) == 0 {
		return true
	}

	if qtype.IsChoice() {
		for _, p := range prior {
			if answer == p {
				return true
			}
		}
		return false
	}

	maxSim := 0.0
	for _, p := range prior {
		if sim := similarity(answer, p); sim > maxSim {
			maxSim = sim
		}
	}

	v.logger.Debug("answer similarity computed",
		"question", question,
		"max_similarity", maxSim,
		"threshold", v.threshold)

	return maxSim >= v.threshold
}

// ValidateAndStore validates answer against the stored history for
// (qtype, question), appending it when accepted. An empty answer is always
// rejected. Rejections are logged; the caller decides whether to surface or
// drop the answer.
func (v *Validator) ValidateAndStore(qtype domain.QuestionType, question, answer string) bool {
	if answer == "" {
		return false
	}

	key := string(qtype) + ":" + question

	v.mu.Lock()
	defer v.mu.Unlock()

	prior := v.history[key]
	if len(prior) == 0 {
		v.history[key] = []string{answer}
		return true
	}

	if v.CheckConsistency(qtype, question, answer, prior) {
		v.history[key] = append(prior, answer)
		return true
	}

	v.logger.Warn("inconsistent answer rejected",
		"question", question,
		"question_type", qtype,
		"prior_count", len(prior))
	return false
}

// similarity combines token-set overlap and character-level alignment,
// taking whichever is higher: either a word-overlap match or a close
// character sequence is enough to count as consistent.
func similarity(a, b string) float64 {
	jaccard := jaccardSimilarity(tokenize(a), tokenize(b))
	sequence := sequenceRatio(a, b)
	if jaccard > sequence {
		return jaccard
	}
	return sequence
}

// jaccardSimilarity is intersection size over union size of two token sets.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// sequenceRatio is a longest-common-subsequence-based ratio in [0, 1] over
// the rune sequences of both strings.
func sequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(runesOf(a), runesOf(b)).Ratio()
}

func runesOf(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// tokenize segments text into a token set: each CJK rune is its own token,
// while runs of other letters and digits form word tokens (lowercased).
// This keeps jaccard meaningful for Chinese answers without an external
// segmenter.
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens[strings.ToLower(word.String())] = struct{}{}
			word.Reset()
		}
	}

	for _, r := range s {
		switch {
		case isCJK(r):
			flush()
			tokens[string(r)] = struct{}{}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
