// internal/workers/ai-conversation/build-advice/handler.go
package buildadvice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "farmer-assistant-workers/internal/common/errors"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/intent"
)

const TaskType = "build-advice"

// TableSource is satisfied by *intent.Detector; it supplies per-intent sample counts.
type TableSource interface {
	Table() *intent.Table
}

type registryCacheEntry struct {
	registry *Registry
	loadedAt time.Time
}

type Handler struct {
	config     *Config
	table      TableSource
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler

	mu    sync.RWMutex
	cache *registryCacheEntry
}

// NewHandler wires the worker. table may be nil.
func NewHandler(config *Config, table TableSource, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		table:      table,
		logger:     l,
		errHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := inputSchema.Validate(input)
	if err != nil {
		return nil, apperrors.NewParseError(err)
	}
	if !res.Valid {
		return nil, apperrors.NewInputValidationFailedError(res.Error())
	}

	registry, err := h.loadRegistry()
	if err != nil {
		return nil, apperrors.NewConfigurationError(err)
	}

	lang := input.Language
	if lang == "" {
		lang = h.config.DefaultLanguage
	}

	advice := Advice{
		Intent:   input.Intent,
		Language: lang,
		Version:  registry.Version,
	}

	intentAdvice, known := registry.Intents[input.Intent]
	switch {
	case known:
		advice.Text, advice.Crop, advice.Source = pickText(intentAdvice, input.Entities.Crops, lang)
	case input.Intent == h.config.FallbackIntent || input.Intent == "unknown":
		advice.Text = registry.Unknown.get(lang)
		advice.Source = "fallback"
	default:
		return nil, apperrors.NewAdviceNotFoundError(input.Intent)
	}

	advice.Text = fillPlaceholders(advice.Text, placeholderValues(input))

	if h.table != nil && advice.Source != "fallback" {
		if rec, ok := h.table.Table().Record(input.Intent); ok {
			advice.SampleCount = rec.SampleCount
			if note := registry.Samples.get(lang); note != "" {
				advice.Text += "\n\n" + fillPlaceholders(note, map[string]string{
					"samples": fmt.Sprintf("%d", rec.SampleCount),
				})
			}
		}
	}

	if input.Confidence < h.config.ClarifyBelow {
		advice.LowConfidence = true
		if note := registry.Clarify.get(lang); note != "" {
			advice.Text += "\n\n" + note
		}
	}

	h.logger.Info("advice built", map[string]interface{}{
		"intent":        input.Intent,
		"crop":          advice.Crop,
		"source":        advice.Source,
		"lowConfidence": advice.LowConfidence,
	})

	return &Output{Advice: advice}, nil
}

// pickText prefers the first detected crop that has its own text.
func pickText(ia IntentAdvice, crops []string, lang string) (text, crop, source string) {
	for _, c := range crops {
		if t, ok := ia.Crops[c]; ok {
			return t.get(lang), c, "crop"
		}
	}
	return ia.Default.get(lang), "", "default"
}

// get falls back to Hindi, then to any language present.
func (lt LocalizedText) get(lang string) string {
	if t, ok := lt[lang]; ok {
		return t
	}
	if t, ok := lt["hi"]; ok {
		return t
	}
	for _, t := range lt {
		return t
	}
	return ""
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

func placeholderValues(input *Input) map[string]string {
	values := map[string]string{}
	if len(input.Entities.Crops) > 0 {
		values["crop"] = input.Entities.Crops[0]
	}
	if len(input.Entities.Quantities) > 0 {
		q := input.Entities.Quantities[0]
		values["quantity"] = strconv.FormatFloat(q.Value, 'f', -1, 64) + " " + q.Unit
	}
	if len(input.Entities.TimeRefs) > 0 {
		values["time"] = input.Entities.TimeRefs[0]
	}
	if len(input.Entities.Seasons) > 0 {
		values["season"] = input.Entities.Seasons[0]
	}
	return values
}

// fillPlaceholders replaces {{name}} markers; unknown markers are removed.
func fillPlaceholders(text string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholderPattern.FindStringSubmatch(m)[1]
		return values[key]
	})
}

func (h *Handler) loadRegistry() (*Registry, error) {
	h.mu.RLock()
	if h.cache != nil && time.Since(h.cache.loadedAt) < h.config.CacheTTL {
		reg := h.cache.registry
		h.mu.RUnlock()
		return reg, nil
	}
	h.mu.RUnlock()

	data, err := os.ReadFile(h.config.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("read advice templates: %w", err)
	}

	res, err := registrySchema.ValidateBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse advice templates: %w", err)
	}
	if !res.Valid {
		return nil, fmt.Errorf("invalid advice templates: %s", res.Error())
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse advice templates: %w", err)
	}

	h.mu.Lock()
	h.cache = &registryCacheEntry{registry: &reg, loadedAt: time.Now()}
	h.mu.Unlock()
	return &reg, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
	}
}
