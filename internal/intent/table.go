// internal/intent/table.go
package intent

import (
	"sort"
	"strings"
)

// LanguageTag classifies the script mix of a training row.
type LanguageTag string

const (
	LanguageHindi   LanguageTag = "hi"
	LanguageEnglish LanguageTag = "en"
	LanguageMixed   LanguageTag = "mixed"
)

// Row is one training example: free-text query and its intent label.
type Row struct {
	Query string
	Label string
}

// IntentRecord aggregates every training row sharing one intent label.
// Records are immutable once the table that owns them is built.
type IntentRecord struct {
	Name          string
	Keywords      map[string]struct{}
	SamplePhrases []string
	LanguageTags  map[LanguageTag]struct{}
	SampleCount   int

	// phraseTokens holds the content-token set of each sample phrase, aligned
	// with SamplePhrases.
	phraseTokens []map[string]struct{}
}

// HasKeyword reports whether tok (already normalized) is a keyword of the intent.
func (r *IntentRecord) HasKeyword(tok string) bool {
	_, ok := r.Keywords[tok]
	return ok
}

// KeywordList returns the keywords sorted for stable output.
func (r *IntentRecord) KeywordList() []string {
	out := make([]string, 0, len(r.Keywords))
	for k := range r.Keywords {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Languages returns the language tags sorted for stable output.
func (r *IntentRecord) Languages() []LanguageTag {
	out := make([]LanguageTag, 0, len(r.LanguageTags))
	for t := range r.LanguageTags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Table is the read-only intent index the detector scores against.
type Table struct {
	records map[string]*IntentRecord
	names   []string
}

// BuildOptions controls how rows are folded into a Table.
type BuildOptions struct {
	// Aliases maps raw CSV labels onto canonical intent names.
	Aliases map[string]string
}

// RowStats counts what happened to the rows offered to a build or load.
type RowStats struct {
	Accepted int
	Skipped  int
}

// BuildTable folds rows into a new Table. Rows with an empty query or label are
// skipped. Keyword sets are unions, so row order does not change them.
func BuildTable(rows []Row, opts BuildOptions) (*Table, RowStats) {
	aliases := make(map[string]string, len(opts.Aliases))
	for raw, canonical := range opts.Aliases {
		if key := normalizeLabel(raw); key != "" {
			aliases[key] = normalizeLabel(canonical)
		}
	}

	t := &Table{records: make(map[string]*IntentRecord)}
	var stats RowStats
	for _, row := range rows {
		label := normalizeLabel(row.Label)
		normalized := Normalize(row.Query)
		if label == "" || normalized == "" {
			stats.Skipped++
			continue
		}
		if canonical, ok := aliases[label]; ok && canonical != "" {
			label = canonical
		}

		rec, ok := t.records[label]
		if !ok {
			rec = &IntentRecord{
				Name:         label,
				Keywords:     make(map[string]struct{}),
				LanguageTags: make(map[LanguageTag]struct{}),
			}
			t.records[label] = rec
		}

		tokens := filterTokens(strings.Fields(normalized))
		set := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			rec.Keywords[tok] = struct{}{}
			set[tok] = struct{}{}
		}
		rec.SamplePhrases = append(rec.SamplePhrases, normalized)
		rec.phraseTokens = append(rec.phraseTokens, set)
		rec.LanguageTags[languageOf(normalized)] = struct{}{}
		rec.SampleCount++
		stats.Accepted++
	}

	t.names = make([]string, 0, len(t.records))
	for name := range t.records {
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, stats
}

// EmptyTable returns a table with no intents; every query falls back.
func EmptyTable() *Table {
	return &Table{records: map[string]*IntentRecord{}}
}

// Record looks up one intent by name.
func (t *Table) Record(name string) (*IntentRecord, bool) {
	rec, ok := t.records[name]
	return rec, ok
}

// Names returns the intent names in lexicographic order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

func (t *Table) Len() int {
	return len(t.records)
}

// TableStats summarizes a table for logs, metrics and readiness checks.
type TableStats struct {
	Intents  int `json:"intents"`
	Samples  int `json:"samples"`
	Keywords int `json:"keywords"`
}

func (t *Table) Stats() TableStats {
	var s TableStats
	s.Intents = len(t.records)
	for _, rec := range t.records {
		s.Samples += rec.SampleCount
		s.Keywords += len(rec.Keywords)
	}
	return s
}

func languageOf(normalized string) LanguageTag {
	hi, en := hasDevanagari(normalized), hasLatin(normalized)
	switch {
	case hi && en:
		return LanguageMixed
	case hi:
		return LanguageHindi
	default:
		return LanguageEnglish
	}
}
