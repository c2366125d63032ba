// internal/intent/entities.go
package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// EntityCategory names one independently extracted entity kind.
type EntityCategory string

const (
	CategoryCrops      EntityCategory = "crops"
	CategoryQuantities EntityCategory = "quantities"
	CategoryTimeRefs   EntityCategory = "time_refs"
	CategorySeasons    EntityCategory = "seasons"
)

// Quantity is a number with a canonical unit.
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// EntityBag holds every entity found in one query. Slices are never nil and
// never hold the same canonical value twice.
type EntityBag struct {
	Crops      []string   `json:"crops"`
	Quantities []Quantity `json:"quantities"`
	TimeRefs   []string   `json:"time_refs"`
	Seasons    []string   `json:"seasons"`
}

func newEntityBag() EntityBag {
	return EntityBag{
		Crops:      []string{},
		Quantities: []Quantity{},
		TimeRefs:   []string{},
		Seasons:    []string{},
	}
}

// IsEmpty reports whether no entity of any category was found.
func (b EntityBag) IsEmpty() bool {
	return len(b.Crops) == 0 && len(b.Quantities) == 0 && len(b.TimeRefs) == 0 && len(b.Seasons) == 0
}

func (b *EntityBag) reset(c EntityCategory) {
	switch c {
	case CategoryCrops:
		b.Crops = []string{}
	case CategoryQuantities:
		b.Quantities = []Quantity{}
	case CategoryTimeRefs:
		b.TimeRefs = []string{}
	case CategorySeasons:
		b.Seasons = []string{}
	}
}

// unitAliases maps every accepted unit spelling to its canonical unit.
var unitAliases = normalizeKeys(map[string]string{
	"kg": "kg", "kgs": "kg", "kilo": "kg", "kilos": "kg", "kilogram": "kg", "kilograms": "kg", "किलो": "kg", "किलोग्राम": "kg",
	"quintal": "quintal", "quintals": "quintal", "qtl": "quintal", "क्विंटल": "quintal",
	"ton": "ton", "tons": "ton", "tonne": "ton", "tonnes": "ton", "टन": "ton",
	"acre": "acre", "acres": "acre", "एकड़": "acre",
	"hectare": "hectare", "hectares": "hectare", "ha": "hectare", "हेक्टेयर": "hectare",
	"bigha": "bigha", "bighas": "bigha", "बीघा": "bigha",
})

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[normalizeSurface(k)] = v
	}
	return out
}

// timePhrases are the relative time expressions recognised in queries.
var timePhrases = []string{
	"today", "tomorrow", "yesterday", "tonight", "day after tomorrow", "now",
	"this week", "next week", "last week", "this month", "next month", "last month",
	"आज", "कल", "परसों", "अभी", "आज रात",
	"इस हफ्ते", "अगले हफ्ते", "पिछले हफ्ते", "अगले सप्ताह", "इस सप्ताह",
	"इस महीने", "अगले महीने", "पिछले महीने",
}

// entityRule is one declarative extractor: a pattern and the canonicalizer
// applied to each boundary-checked match. Rules run independently; a failing
// rule only empties its own category.
type entityRule struct {
	category     EntityCategory
	pattern      *regexp.Regexp
	canonicalize func(bag *EntityBag, match []string) error
}

// EntityExtractor pulls crops, quantities, time references and seasons out of a
// query. It holds no per-call state and is safe for concurrent use.
type EntityExtractor struct {
	rules []entityRule
}

// ExtractionWarning reports a category that failed and was returned empty.
type ExtractionWarning struct {
	Category EntityCategory
	Err      error
}

func (w ExtractionWarning) Error() string {
	return fmt.Sprintf("EXTRACTION_WARNING: %s: %v", w.Category, w.Err)
}

func (w ExtractionWarning) Unwrap() error { return w.Err }

// NewEntityExtractor builds the rule list for the given vocabularies.
func NewEntityExtractor(crops, seasons *Vocabulary) *EntityExtractor {
	return &EntityExtractor{rules: []entityRule{
		{category: CategoryCrops, pattern: crops.pattern, canonicalize: vocabularyCanonicalizer(crops, func(b *EntityBag) *[]string { return &b.Crops })},
		{category: CategoryQuantities, pattern: quantityPattern, canonicalize: canonicalQuantity},
		{category: CategoryTimeRefs, pattern: timePattern, canonicalize: canonicalTimeRef},
		{category: CategorySeasons, pattern: seasons.pattern, canonicalize: vocabularyCanonicalizer(seasons, func(b *EntityBag) *[]string { return &b.Seasons })},
	}}
}

var (
	quantityPattern = buildQuantityPattern()
	timePattern     = alternation(phraseSet(timePhrases))
)

func buildQuantityPattern() *regexp.Regexp {
	units := alternation(unitAliases).String()
	units = strings.TrimPrefix(units, "(?i)")
	// 1,500 and 1,00,000 style grouping before plain digits.
	return regexp.MustCompile(`(?i)(\d{1,3}(?:,\d{2,3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*(` + units + `)`)
}

func phraseSet(phrases []string) map[string]string {
	out := make(map[string]string, len(phrases))
	for _, p := range phrases {
		p = normalizeSurface(p)
		out[p] = p
	}
	return out
}

// Extract runs every rule. Failures are isolated per category and returned as
// warnings; the bag is always usable.
func (e *EntityExtractor) Extract(text string) (EntityBag, []ExtractionWarning) {
	bag := newEntityBag()
	prepared := prepareEntityText(text)
	if prepared == "" {
		return bag, nil
	}
	var warnings []ExtractionWarning
	for _, rule := range e.rules {
		if err := runRule(rule, prepared, &bag); err != nil {
			bag.reset(rule.category)
			warnings = append(warnings, ExtractionWarning{Category: rule.category, Err: err})
		}
	}
	return bag, warnings
}

func runRule(rule entityRule, text string, bag *EntityBag) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	if rule.pattern == nil {
		return nil
	}
	for _, match := range findBounded(rule.pattern, text) {
		if err := rule.canonicalize(bag, match); err != nil {
			return err
		}
	}
	return nil
}

// findBounded returns submatches whose edges sit on word boundaries. Go's \b
// only understands ASCII, so boundaries are checked on runes here. When a match
// is rejected the scan resumes one rune after its start.
func findBounded(re *regexp.Regexp, text string) [][]string {
	var out [][]string
	offset := 0
	for offset < len(text) {
		loc := re.FindStringSubmatchIndex(text[offset:])
		if loc == nil || loc[0] == loc[1] {
			break
		}
		loc = shiftLoc(loc, offset)
		if match, end, ok := boundedAt(re, text, loc); ok {
			out = append(out, match)
			offset = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[loc[0]:])
		offset = loc[0] + size
	}
	return out
}

// boundedAt accepts loc, or when its right edge runs into a word, the longest
// shorter match at the same start that ends on a boundary ("आज" in "आज रातों").
func boundedAt(re *regexp.Regexp, text string, loc []int) ([]string, int, bool) {
	start := loc[0]
	if !leftBoundary(text, start) {
		return nil, 0, false
	}
	for !rightBoundary(text, loc[1]) {
		limit := loc[1] - 1
		if limit <= start {
			return nil, 0, false
		}
		next := re.FindStringSubmatchIndex(text[start:limit])
		if next == nil || next[0] != 0 || next[1] == 0 {
			return nil, 0, false
		}
		loc = shiftLoc(next, start)
	}
	match := make([]string, len(loc)/2)
	for i := range match {
		if loc[2*i] >= 0 {
			match[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return match, loc[1], true
}

func shiftLoc(loc []int, offset int) []int {
	out := make([]int, len(loc))
	for i, v := range loc {
		out[i] = v
		if v >= 0 {
			out[i] = v + offset
		}
	}
	return out
}

// leftBoundary also rejects a start right after "5." or "1," so the tail of a
// decimal or a grouped number is never read as a number of its own.
func leftBoundary(text string, start int) bool {
	if start == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:start])
	if isWordRune(r) {
		return false
	}
	return !((r == '.' || r == ',') && start > 1 && isDigitBefore(text[:start-1]))
}

func rightBoundary(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isDigitBefore(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsDigit(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r)
}

func vocabularyCanonicalizer(v *Vocabulary, field func(*EntityBag) *[]string) func(*EntityBag, []string) error {
	return func(bag *EntityBag, match []string) error {
		id, ok := v.Lookup(match[0])
		if !ok {
			return fmt.Errorf("no canonical id for %q", match[0])
		}
		*field(bag) = appendUnique(*field(bag), id)
		return nil
	}
}

// canonicalQuantity skips numbers that do not parse rather than failing the category.
func canonicalQuantity(bag *EntityBag, match []string) error {
	if len(match) < 3 {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	unit, ok := unitAliases[normalizeSurface(match[2])]
	if !ok {
		return nil
	}
	q := Quantity{Value: value, Unit: unit}
	for _, existing := range bag.Quantities {
		if existing == q {
			return nil
		}
	}
	bag.Quantities = append(bag.Quantities, q)
	return nil
}

func canonicalTimeRef(bag *EntityBag, match []string) error {
	bag.TimeRefs = appendUnique(bag.TimeRefs, normalizeSurface(match[0]))
	return nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// prepareEntityText keeps punctuation so decimals survive, maps Devanagari
// digits to ASCII and collapses whitespace.
func prepareEntityText(text string) string {
	text = strings.TrimSpace(norm.NFKC.String(text))
	if text == "" {
		return ""
	}
	text = strings.Map(func(r rune) rune {
		if r >= '०' && r <= '९' {
			return '0' + (r - '०')
		}
		if isDevanagariPunct(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
