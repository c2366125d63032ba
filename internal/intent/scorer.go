// internal/intent/scorer.go
package intent

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// minSubstringRunes is the shortest token that earns substring containment credit.
const minSubstringRunes = 3

// IntentScore is the scored evidence for one intent against one query.
type IntentScore struct {
	Intent          string   `json:"intent"`
	Confidence      float64  `json:"confidence"`
	KeywordScore    float64  `json:"keyword_score"`
	PatternScore    float64  `json:"pattern_score"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// scorer ranks every intent in a table for a query.
type scorer struct {
	cfg ScoringConfig
}

// rank scores every intent and returns them best first. Intents with no
// evidence at all are omitted.
func (s scorer) rank(t *Table, tokens []string) []IntentScore {
	if len(tokens) == 0 || t.Len() == 0 {
		return nil
	}
	query := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		query[tok] = struct{}{}
	}

	scores := make([]IntentScore, 0, t.Len())
	for _, name := range t.names {
		rec := t.records[name]
		kw, matched := s.keywordScore(rec, tokens)
		pattern := s.patternScore(rec, query)
		if kw == 0 && pattern == 0 {
			continue
		}
		scores = append(scores, IntentScore{
			Intent:          name,
			Confidence:      clamp01(s.cfg.KeywordWeight*kw + s.cfg.PatternWeight*pattern),
			KeywordScore:    kw,
			PatternScore:    pattern,
			MatchedKeywords: matched,
		})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.KeywordScore != b.KeywordScore {
			return a.KeywordScore > b.KeywordScore
		}
		return a.Intent < b.Intent
	})
	return scores
}

// keywordScore is the share of query tokens that are keywords of the intent,
// lifted to the match boost once any keyword hits.
func (s scorer) keywordScore(rec *IntentRecord, tokens []string) (float64, []string) {
	matched := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if rec.HasKeyword(tok) {
			matched = append(matched, tok)
		}
	}
	if len(matched) == 0 {
		return 0, matched
	}
	ratio := float64(len(matched)) / float64(len(tokens))
	return math.Max(ratio, s.cfg.KeywordMatchBoost), matched
}

// patternScore is the best similarity between the query and any sample phrase.
func (s scorer) patternScore(rec *IntentRecord, query map[string]struct{}) float64 {
	limit := len(rec.phraseTokens)
	if s.cfg.MaxPatternsPerIntent > 0 && limit > s.cfg.MaxPatternsPerIntent {
		limit = s.cfg.MaxPatternsPerIntent
	}
	best := 0.0
	for _, phrase := range rec.phraseTokens[:limit] {
		if sim := s.similarity(query, phrase); sim > best {
			best = sim
			if best >= 1 {
				break
			}
		}
	}
	return best
}

// similarity is a Jaccard overlap where a token pair that only contains one
// another counts fractionally, scaled by their length ratio.
func (s scorer) similarity(query, phrase map[string]struct{}) float64 {
	if len(query) == 0 || len(phrase) == 0 {
		return 0
	}
	overlap := 0.0
	exact := 0
	for q := range query {
		if _, ok := phrase[q]; ok {
			overlap++
			exact++
			continue
		}
		overlap += s.substringCredit(q, phrase)
	}
	union := float64(len(query) + len(phrase) - exact)
	if union <= 0 {
		return 0
	}
	return clamp01(overlap / union)
}

func (s scorer) substringCredit(q string, phrase map[string]struct{}) float64 {
	qn := utf8.RuneCountInString(q)
	if qn < minSubstringRunes {
		return 0
	}
	best := 0.0
	for p := range phrase {
		pn := utf8.RuneCountInString(p)
		if pn < minSubstringRunes {
			continue
		}
		if !strings.Contains(p, q) && !strings.Contains(q, p) {
			continue
		}
		shorter, longer := qn, pn
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if credit := float64(shorter) / float64(longer) * s.cfg.SubstringCredit; credit > best {
			best = credit
		}
	}
	return best
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
