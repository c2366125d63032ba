// internal/intent/detector.go
package intent

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the structured logger the detector reports through.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Observer receives detection telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveDetection(intent string, confidence float64, fallback bool, elapsed time.Duration)
	ObserveExtractionWarning(category string)
	ObserveReload(intents int, err error)
}

// DetectionResult is the outcome of one Detect call.
type DetectionResult struct {
	Intent          string        `json:"intent"`
	Confidence      float64       `json:"confidence"`
	MatchedKeywords []string      `json:"matched_keywords"`
	Entities        EntityBag     `json:"entities"`
	IsConfident     bool          `json:"is_confident"`
	Category        string        `json:"category"`
	NormalizedQuery string        `json:"normalized_query"`
	Scores          []IntentScore `json:"scores"`
}

// Config describes where the detector's intents come from and how they are scored.
type Config struct {
	Sources []string
	Columns ColumnOptions
	Aliases map[string]string
	Scoring ScoringConfig
	// ExtraCrops adds canonical crop ids and surface forms to the default vocabulary.
	ExtraCrops map[string][]string
}

// Option customizes a Detector.
type Option func(*Detector)

func WithLogger(l Logger) Option {
	return func(d *Detector) { d.logger = l }
}

func WithObserver(o Observer) Option {
	return func(d *Detector) { d.observer = o }
}

func WithCropVocabulary(v *Vocabulary) Option {
	return func(d *Detector) { d.crops = v }
}

func WithSeasonVocabulary(v *Vocabulary) Option {
	return func(d *Detector) { d.seasons = v }
}

// Detector classifies farmer queries against an atomically swappable intent table.
type Detector struct {
	cfg      Config
	scoring  ScoringConfig
	table    atomic.Pointer[Table]
	crops    *Vocabulary
	seasons  *Vocabulary
	entities *EntityExtractor
	logger   Logger
	observer Observer

	reloadMu sync.Mutex
}

// New builds a detector and loads its sources. A load error is returned along
// with a usable detector: failed sources are skipped and, if nothing loads,
// every query maps to the fallback intent.
func New(cfg Config, opts ...Option) (*Detector, error) {
	d := newDetector(cfg, opts...)
	err := d.Reload()
	return d, err
}

// NewWithTable builds a detector over an already built table and loads nothing.
func NewWithTable(t *Table, scoring ScoringConfig, opts ...Option) *Detector {
	d := newDetector(Config{Scoring: scoring}, opts...)
	d.Swap(t)
	return d
}

func newDetector(cfg Config, opts ...Option) *Detector {
	d := &Detector{
		cfg:     cfg,
		scoring: cfg.Scoring.withDefaults(),
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.crops == nil {
		d.crops = DefaultCropVocabulary()
	}
	if len(cfg.ExtraCrops) > 0 {
		d.crops = d.crops.Merge(cfg.ExtraCrops)
	}
	if d.seasons == nil {
		d.seasons = DefaultSeasonVocabulary()
	}
	d.entities = NewEntityExtractor(d.crops, d.seasons)
	d.table.Store(EmptyTable())
	return d
}

// Detect classifies query. It never fails: an empty query, an empty table or a
// low score all produce the fallback intent.
func (d *Detector) Detect(query string) DetectionResult {
	start := time.Now()
	table := d.table.Load()

	normalized := Normalize(query)
	result := DetectionResult{
		Intent:          d.scoring.FallbackIntent,
		MatchedKeywords: []string{},
		NormalizedQuery: normalized,
		Scores:          []IntentScore{},
	}

	if normalized != "" {
		tokens := filterTokens(strings.Fields(normalized))
		ranked := scorer{cfg: d.scoring}.rank(table, tokens)
		if len(ranked) > 0 {
			best := ranked[0]
			result.Confidence = best.Confidence
			if best.Confidence >= d.scoring.Threshold {
				result.Intent = best.Intent
				result.IsConfident = true
				result.MatchedKeywords = append(result.MatchedKeywords, best.MatchedKeywords...)
				sort.Strings(result.MatchedKeywords)
			}
			if len(ranked) > d.scoring.TopCandidates {
				ranked = ranked[:d.scoring.TopCandidates]
			}
			result.Scores = ranked
		}
	}
	result.Category = CategoryOf(result.Intent)

	bag, warnings := d.entities.Extract(query)
	result.Entities = bag
	for _, w := range warnings {
		d.logger.Warn("Entity extraction failed", map[string]interface{}{
			"category": string(w.Category),
			"error":    w.Err.Error(),
		})
		if d.observer != nil {
			d.observer.ObserveExtractionWarning(string(w.Category))
		}
	}

	if d.observer != nil {
		d.observer.ObserveDetection(result.Intent, result.Confidence, !result.IsConfident, time.Since(start))
	}
	return result
}

// Reload rebuilds the table from the configured sources, or from sources when
// given, and swaps it in. The new table replaces the old one even when some
// sources fail; when every source fails the previous table is kept.
func (d *Detector) Reload(sources ...string) error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	if len(sources) == 0 {
		sources = d.cfg.Sources
	}
	aliases := DefaultLabelAliases()
	for raw, canonical := range d.cfg.Aliases {
		aliases[raw] = canonical
	}

	table, stats, err := LoadTable(sources, LoadOptions{
		Columns: d.cfg.Columns,
		Build:   BuildOptions{Aliases: aliases},
	})
	if err != nil {
		d.logger.Error("Failed to load intent sources", map[string]interface{}{
			"sources": sources,
			"error":   err.Error(),
		})
	}
	if err != nil && table.Len() == 0 && d.table.Load().Len() > 0 {
		if d.observer != nil {
			d.observer.ObserveReload(d.table.Load().Len(), err)
		}
		return err
	}

	d.table.Store(table)
	tableStats := table.Stats()
	d.logger.Info("Intent table loaded", map[string]interface{}{
		"sources":  len(sources),
		"intents":  tableStats.Intents,
		"samples":  tableStats.Samples,
		"keywords": tableStats.Keywords,
		"accepted": stats.Accepted,
		"skipped":  stats.Skipped,
	})
	if d.observer != nil {
		d.observer.ObserveReload(tableStats.Intents, err)
	}
	return err
}

// Swap installs t as the live table. In-flight Detect calls finish on the
// table they started with.
func (d *Detector) Swap(t *Table) {
	if t == nil {
		t = EmptyTable()
	}
	d.table.Store(t)
}

// Table returns the live table snapshot.
func (d *Detector) Table() *Table {
	return d.table.Load()
}

func (d *Detector) Stats() TableStats {
	return d.table.Load().Stats()
}

// Ready reports whether at least one intent is loaded.
func (d *Detector) Ready() bool {
	return d.table.Load().Len() > 0
}

// ScoringConfig returns the effective scoring constants.
func (d *Detector) ScoringConfig() ScoringConfig {
	return d.scoring
}

// Sources returns the configured CSV sources.
func (d *Detector) Sources() []string {
	return append([]string(nil), d.cfg.Sources...)
}

type nopLogger struct{}

func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}
