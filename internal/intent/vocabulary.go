// internal/intent/vocabulary.go
package intent

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Vocabulary maps bilingual surface forms onto canonical ids. It is built once
// and read-only afterwards.
type Vocabulary struct {
	forms   map[string]string
	ids     []string
	pattern *regexp.Regexp
}

// NewVocabulary builds a vocabulary from canonical id -> surface forms. The
// canonical id is always accepted as a surface form of itself.
func NewVocabulary(entries map[string][]string) *Vocabulary {
	v := &Vocabulary{forms: make(map[string]string)}
	for id, surfaces := range entries {
		canonical := normalizeSurface(id)
		if canonical == "" {
			continue
		}
		v.ids = append(v.ids, canonical)
		v.forms[canonical] = canonical
		for _, s := range surfaces {
			if form := normalizeSurface(s); form != "" {
				v.forms[form] = canonical
			}
		}
	}
	sort.Strings(v.ids)
	v.pattern = alternation(v.forms)
	return v
}

// Lookup returns the canonical id for a surface form.
func (v *Vocabulary) Lookup(surface string) (string, bool) {
	id, ok := v.forms[normalizeSurface(surface)]
	return id, ok
}

// IDs returns the canonical ids in lexicographic order.
func (v *Vocabulary) IDs() []string {
	return append([]string(nil), v.ids...)
}

// Merge returns a new vocabulary holding both entry sets.
func (v *Vocabulary) Merge(extra map[string][]string) *Vocabulary {
	entries := make(map[string][]string, len(v.ids)+len(extra))
	for form, id := range v.forms {
		entries[id] = append(entries[id], form)
	}
	for id, forms := range extra {
		entries[id] = append(entries[id], forms...)
	}
	return NewVocabulary(entries)
}

func (v *Vocabulary) Len() int {
	return len(v.ids)
}

// DefaultCropVocabulary covers the crops farmers ask about most.
func DefaultCropVocabulary() *Vocabulary {
	return NewVocabulary(map[string][]string{
		"wheat":     {"गेहूं", "गेहूँ", "gehun", "gehu"},
		"rice":      {"paddy", "धान", "चावल", "chawal", "dhan"},
		"maize":     {"corn", "मक्का", "makka"},
		"cotton":    {"कपास", "kapas"},
		"sugarcane": {"गन्ना", "ganna"},
		"potato":    {"potatoes", "आलू", "aloo", "aalu"},
		"tomato":    {"tomatoes", "टमाटर", "tamatar"},
		"onion":     {"onions", "प्याज", "pyaz", "pyaj"},
		"soybean":   {"soybeans", "soyabean", "soya", "सोयाबीन"},
		"mustard":   {"सरसों", "sarson"},
		"chickpea":  {"chana", "चना"},
		"bajra":     {"pearl millet", "बाजरा"},
	})
}

// DefaultSeasonVocabulary covers the three Indian cropping seasons.
func DefaultSeasonVocabulary() *Vocabulary {
	return NewVocabulary(map[string][]string{
		"kharif": {"खरीफ", "monsoon", "मानसून"},
		"rabi":   {"रबी", "winter", "सर्दी"},
		"zaid":   {"जायद", "summer", "गर्मी"},
	})
}

func normalizeSurface(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// alternation compiles a case-insensitive pattern matching any key of forms,
// longest first so multi-word forms win over their prefixes.
func alternation(forms map[string]string) *regexp.Regexp {
	if len(forms) == 0 {
		return nil
	}
	keys := make([]string, 0, len(forms))
	for k := range forms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}
