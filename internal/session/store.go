// Package session keeps a short, expiring log of detected turns per
// conversation in Redis and summarises it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"farmer-assistant-workers/internal/intent"
)

var (
	ErrMissingSessionID = errors.New("session id is required")
	ErrStore            = errors.New("SESSION_STORE_FAILED")
)

const (
	DefaultKeyPrefix = "farmer:session"
	DefaultTTL       = 24 * time.Hour
	DefaultMaxTurns  = 50
)

// Config controls key naming, expiry and the per-session turn cap.
type Config struct {
	KeyPrefix string
	TTL       time.Duration
	MaxTurns  int
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	return c
}

// Turn is one detected query within a conversation.
type Turn struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"sessionId"`
	Query       string           `json:"query"`
	Intent      string           `json:"intent"`
	Confidence  float64          `json:"confidence"`
	IsConfident bool             `json:"isConfident"`
	Entities    intent.EntityBag `json:"entities"`
	Response    string           `json:"response,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// TurnFromResult builds a turn from a detection result.
func TurnFromResult(sessionID, query string, res intent.DetectionResult) Turn {
	return Turn{
		SessionID:   sessionID,
		Query:       query,
		Intent:      res.Intent,
		Confidence:  res.Confidence,
		IsConfident: res.IsConfident,
		Entities:    res.Entities,
	}
}

// Summary aggregates the turns of one session.
type Summary struct {
	SessionID            string         `json:"sessionId"`
	TotalInteractions    int            `json:"totalInteractions"`
	IntentDistribution   map[string]int `json:"intentDistribution"`
	TopIntents           []string       `json:"topIntents"`
	AverageConfidence    float64        `json:"averageConfidence"`
	ConfidentPredictions int            `json:"confidentPredictions"`
	AccuracyRate         float64        `json:"accuracyRate"` // percent of confident turns
	Crops                []string       `json:"crops"`
}

// Store is a Redis list per session, newest turn last.
type Store struct {
	rdb redis.Cmdable
	cfg Config
	now func() time.Time
}

func NewStore(rdb redis.Cmdable, cfg Config) *Store {
	return &Store{rdb: rdb, cfg: cfg.withDefaults(), now: time.Now}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.cfg.KeyPrefix, sessionID)
}

// AppendTurn stores the turn, trims the list to MaxTurns and refreshes the TTL.
// The stored turn, with its generated id and timestamp, is returned.
func (s *Store) AppendTurn(ctx context.Context, turn Turn) (Turn, error) {
	if turn.SessionID == "" {
		return Turn{}, ErrMissingSessionID
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now().UTC()
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return Turn{}, fmt.Errorf("%w: encode turn: %v", ErrStore, err)
	}

	key := s.key(turn.SessionID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-s.cfg.MaxTurns), -1)
		pipe.Expire(ctx, key, s.cfg.TTL)
		return nil
	})
	if err != nil {
		return Turn{}, fmt.Errorf("%w: append turn: %v", ErrStore, err)
	}
	return turn, nil
}

// History returns up to limit most recent turns, oldest first. limit <= 0 returns all.
// Entries that fail to decode are skipped.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := s.rdb.LRange(ctx, s.key(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: read history: %v", ErrStore, err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Summary aggregates every stored turn of the session. An unknown session
// yields a zero summary, not an error.
func (s *Store) Summary(ctx context.Context, sessionID string) (Summary, error) {
	turns, err := s.History(ctx, sessionID, 0)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(sessionID, turns), nil
}

// Clear removes the session log.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSessionID
	}
	if err := s.rdb.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: clear session: %v", ErrStore, err)
	}
	return nil
}

// Summarize computes the summary of turns without touching Redis.
func Summarize(sessionID string, turns []Turn) Summary {
	sum := Summary{
		SessionID:          sessionID,
		IntentDistribution: map[string]int{},
		TopIntents:         []string{},
		Crops:              []string{},
	}
	if len(turns) == 0 {
		return sum
	}

	var total float64
	seenCrop := map[string]bool{}
	for _, t := range turns {
		sum.IntentDistribution[t.Intent]++
		total += t.Confidence
		if t.IsConfident {
			sum.ConfidentPredictions++
		}
		for _, c := range t.Entities.Crops {
			if !seenCrop[c] {
				seenCrop[c] = true
				sum.Crops = append(sum.Crops, c)
			}
		}
	}

	sum.TotalInteractions = len(turns)
	sum.AverageConfidence = total / float64(len(turns))
	sum.AccuracyRate = float64(sum.ConfidentPredictions) / float64(len(turns)) * 100

	for name := range sum.IntentDistribution {
		sum.TopIntents = append(sum.TopIntents, name)
	}
	sort.Slice(sum.TopIntents, func(i, j int) bool {
		a, b := sum.TopIntents[i], sum.TopIntents[j]
		if sum.IntentDistribution[a] != sum.IntentDistribution[b] {
			return sum.IntentDistribution[a] > sum.IntentDistribution[b]
		}
		return a < b
	})
	if len(sum.TopIntents) > 3 {
		sum.TopIntents = sum.TopIntents[:3]
	}
	return sum
}
