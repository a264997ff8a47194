package services

import (
	"regexp"
	"strings"
	"sync"

	"tile-event-system/models"
)

// VerifierService evaluates a submission's OCR text against a tile's unlock
// rule and the event's required keyword, then combines the result with the
// vision pipeline's confidence score into a verdict.
type VerifierService struct {
	// Confidence floors. At or above AutoApprove with a keyword match the
	// verdict is approved without review; below Review it is forced to
	// pending even when keywords match.
	AutoApprove float64
	Review      float64
}

func NewVerifierService(autoApprove, review float64) *VerifierService {
	return &VerifierService{AutoApprove: autoApprove, Review: review}
}

// Verdict is the outcome for one submission. The sub-checks are kept because
// announcement templates reference them individually.
type Verdict struct {
	Status           models.SubmissionStatus
	EventKeywordPass bool
	TileKeywordPass  bool
}

// unlockRule is a parsed tile rule. Keywords match whole words
// case-insensitively; phrases (exact:) match as literal substrings. RequireAll
// flips the rule from any-of to all-of.
type unlockRule struct {
	Keywords   []string
	Phrases    []string
	RequireAll bool
}

func parseUnlockRule(raw string) unlockRule {
	var rule unlockRule
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if lower := strings.ToLower(part); strings.HasPrefix(lower, "all:") {
			rule.RequireAll = true
			part = strings.TrimSpace(part[len("all:"):])
		} else if strings.HasPrefix(lower, "exact:") {
			phrase := strings.TrimSpace(part[len("exact:"):])
			if phrase != "" {
				rule.Phrases = append(rule.Phrases, phrase)
			}
			continue
		}
		if part != "" {
			rule.Keywords = append(rule.Keywords, part)
		}
	}
	return rule
}

func (r unlockRule) empty() bool {
	return len(r.Keywords) == 0 && len(r.Phrases) == 0
}

// matches evaluates the rule against text. An empty rule never matches: a tile
// without a usable rule cannot auto-approve.
func (r unlockRule) matches(text string) bool {
	if r.empty() {
		return false
	}
	if r.RequireAll {
		for _, kw := range r.Keywords {
			if !containsWholeWord(text, kw) {
				return false
			}
		}
		for _, ph := range r.Phrases {
			if !containsPhrase(text, ph) {
				return false
			}
		}
		return true
	}
	for _, kw := range r.Keywords {
		if containsWholeWord(text, kw) {
			return true
		}
	}
	for _, ph := range r.Phrases {
		if containsPhrase(text, ph) {
			return true
		}
	}
	return false
}

var (
	wordRegexMu sync.Mutex
	wordRegexes = map[string]*regexp.Regexp{}
)

// containsWholeWord reports whether word occurs in text as a whole word,
// case-insensitively. "pet" matches "a pet!" but not "predator".
func containsWholeWord(text, word string) bool {
	word = strings.TrimSpace(word)
	if word == "" {
		return false
	}
	wordRegexMu.Lock()
	re, ok := wordRegexes[word]
	if !ok {
		re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`)
		wordRegexes[word] = re
	}
	wordRegexMu.Unlock()
	return re.MatchString(text)
}

// containsPhrase is a case-insensitive literal substring check.
func containsPhrase(text, phrase string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

// Verify produces the verdict for one submission.
//
//  1. A configured event keyword missing from the OCR text rejects outright
//     (wrong-event screenshot), whatever the tile rule or confidence says.
//  2. The tile rule is evaluated against the OCR text.
//  3. Confidence gates the final status: a match at or above AutoApprove is
//     approved; below Review everything waits for a human; the rest is
//     pending for admin triage.
func (s *VerifierService) Verify(sub *models.Submission, tile *models.Tile, event *models.Event) Verdict {
	v := Verdict{Status: models.SubmissionPending, EventKeywordPass: true}

	if event.RequiredKeyword != "" {
		v.EventKeywordPass = containsWholeWord(sub.OCRText, event.RequiredKeyword)
		if !v.EventKeywordPass {
			v.Status = models.SubmissionRejected
			return v
		}
	}

	rule := parseUnlockRule(tile.UnlockRule)
	v.TileKeywordPass = rule.matches(sub.OCRText)

	switch {
	case !v.TileKeywordPass:
		// No rule match: triage manually.
	case sub.AIConfidence < s.Review:
		// Matched but the vision pipeline wasn't sure enough to trust.
	case sub.AIConfidence >= s.AutoApprove:
		v.Status = models.SubmissionApproved
	}
	return v
}
