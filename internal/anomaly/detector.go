// Package anomaly screens analysis results for implausible patterns that
// high confidence alone does not catch. Findings force a result into human
// review even when its confidence cleared the auto-verify threshold.
package anomaly

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"verity/internal/analysis"
	"verity/internal/audit"
	"verity/internal/config"
	"verity/internal/logging"
	"verity/internal/textmetrics"
)

// Rule names. These appear in verification method tags and audit details, so
// renaming one is a data migration.
const (
	RuleHighPIIDensity        = "high_pii_density"
	RuleTranscriptionLength   = "transcription_length_anomaly"
	RuleOCRGibberish          = "ocr_gibberish"
	RuleConfidenceInstability = "confidence_instability"
)

//go:embed words.txt
var dictionaryData string

var dictionary = func() map[string]struct{} {
	words := strings.Fields(dictionaryData)
	dict := make(map[string]struct{}, len(words))
	for _, word := range words {
		dict[word] = struct{}{}
	}
	return dict
}()

// Finding is one fired rule for one result.
type Finding struct {
	Rule   string
	Detail string
}

// Detector applies the rule set. Safe for concurrent use.
type Detector struct {
	cfg    config.Anomaly
	sink   audit.Sink
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*window
}

// New builds a detector from the configured rule thresholds. The sink
// receives analyzer-scoped instability events; pass nil to discard them.
func New(cfg *config.Config, sink audit.Sink, logger *slog.Logger) *Detector {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Detector{
		cfg:     cfg.Anomaly,
		sink:    sink,
		logger:  logging.NewComponentLogger(logger, "anomaly"),
		windows: make(map[string]*window),
	}
}

// Inspect evaluates all result-scoped rules and feeds the analyzer's
// confidence stream. Returned findings flag the result itself; confidence
// instability is an analyzer-level signal recorded against the analyzer's
// audit trail rather than returned.
func (d *Detector) Inspect(ctx context.Context, result *analysis.Result) []Finding {
	var findings []Finding

	if result.ContentType == analysis.ContentPII && d.cfg.MaxPIIEntities > 0 {
		if count := len(result.Entities); count > d.cfg.MaxPIIEntities {
			findings = append(findings, Finding{
				Rule:   RuleHighPIIDensity,
				Detail: fmt.Sprintf("%d entities exceeds limit %d", count, d.cfg.MaxPIIEntities),
			})
		}
	}

	if result.ContentType == analysis.ContentTranscription && result.AudioDurationSeconds > 0 && d.cfg.MaxCharsPerSecond > 0 {
		rate := float64(len([]rune(result.Value))) / result.AudioDurationSeconds
		if rate > d.cfg.MaxCharsPerSecond {
			findings = append(findings, Finding{
				Rule:   RuleTranscriptionLength,
				Detail: fmt.Sprintf("%.1f chars/sec exceeds limit %.1f", rate, d.cfg.MaxCharsPerSecond),
			})
		}
	}

	if result.ContentType == analysis.ContentOCR && strings.TrimSpace(result.Value) != "" && d.cfg.MinDictionaryRatio > 0 {
		ratio := textmetrics.DictionaryRatio(result.Value, dictionary)
		if ratio < d.cfg.MinDictionaryRatio {
			findings = append(findings, Finding{
				Rule:   RuleOCRGibberish,
				Detail: fmt.Sprintf("dictionary ratio %.2f below %.2f", ratio, d.cfg.MinDictionaryRatio),
			})
		}
	}

	d.observeConfidence(ctx, result)

	for _, finding := range findings {
		d.logger.Warn("anomaly flagged",
			logging.String(logging.FieldResultID, result.ID),
			logging.String(logging.FieldAnalyzerID, result.AnalyzerID),
			logging.String("rule", finding.Rule),
			logging.String("detail", finding.Detail))
	}
	return findings
}

// observeConfidence tracks raw confidence per analyzer and content type over
// a sliding window and warns when the spread turns erratic. The signal
// concerns the analyzer's stability, not any single result, so it never
// flags the result being inspected; instead each episode is recorded once
// against the analyzer's audit trail, alongside its calibration runs.
func (d *Detector) observeConfidence(ctx context.Context, result *analysis.Result) {
	if d.cfg.ConfidenceWindow <= 1 || d.cfg.ConfidenceStddev <= 0 {
		return
	}
	key := result.AnalyzerID + "|" + string(result.ContentType)

	d.mu.Lock()
	w, ok := d.windows[key]
	if !ok {
		w = newWindow(d.cfg.ConfidenceWindow)
		d.windows[key] = w
	}
	w.push(result.RawConfidence)
	stddev := w.stddev()
	tripped := w.full() && stddev > d.cfg.ConfidenceStddev
	rising := tripped && !w.unstable
	w.unstable = tripped
	d.mu.Unlock()

	if !tripped {
		return
	}
	d.logger.Warn("unstable analyzer confidence",
		logging.String(logging.FieldAnalyzerID, result.AnalyzerID),
		logging.String(logging.FieldContentType, string(result.ContentType)),
		logging.String("rule", RuleConfidenceInstability),
		logging.Float64("stddev", stddev),
		logging.Float64("limit", d.cfg.ConfidenceStddev))
	if !rising {
		return
	}
	if err := d.sink.Record(ctx, audit.Event{
		EntityType: audit.EntityAnalyzer,
		EntityID:   result.AnalyzerID,
		Action:     audit.ActionInstabilityFlagged,
		Details: map[string]any{
			"rule":         RuleConfidenceInstability,
			"content_type": string(result.ContentType),
			"stddev":       stddev,
			"limit":        d.cfg.ConfidenceStddev,
			"window":       d.cfg.ConfidenceWindow,
		},
	}); err != nil {
		d.logger.Warn("record instability event",
			logging.String(logging.FieldAnalyzerID, result.AnalyzerID),
			logging.Error(err))
	}
}
