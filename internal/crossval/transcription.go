package crossval

import (
	"context"
	"fmt"
	"strings"

	"verity/internal/analysis"
	"verity/internal/engines"
	"verity/internal/textmetrics"
)

// transcriptionValidator re-transcribes a sample segment from the middle of
// the audio with an independent engine and scores word error rate against
// the corresponding slice of the primary transcript. Words are assumed to be
// spread roughly uniformly over the recording when slicing the reference.
type transcriptionValidator struct {
	engine         engines.Transcriber
	sampleFraction float64
	maxWER         float64
}

// Very short recordings are sampled whole.
const minSampleSeconds = 5.0

func (v *transcriptionValidator) ContentType() analysis.ContentType {
	return analysis.ContentTranscription
}

func (v *transcriptionValidator) Validate(ctx context.Context, result *analysis.Result) (Outcome, error) {
	if v.engine == nil {
		return Outcome{}, fmt.Errorf("transcription: %w", engines.ErrUnavailable)
	}
	if result.AudioDurationSeconds <= 0 {
		return Outcome{}, fmt.Errorf("transcription: unknown audio duration: %w", engines.ErrUnavailable)
	}

	total := result.AudioDurationSeconds
	sample := total * v.sampleFraction
	if sample < minSampleSeconds {
		sample = minSampleSeconds
	}
	if sample > total {
		sample = total
	}
	offset := (total - sample) / 2

	hypothesis, err := v.engine.TranscribeSegment(ctx, result.ContentRef, offset, sample)
	if err != nil {
		return Outcome{}, engines.Wrap(v.engine.ID(), err)
	}

	reference := sliceByTime(result.Value, offset/total, (offset+sample)/total)
	wer := textmetrics.WER(reference, hypothesis)
	if wer <= v.maxWER {
		return Outcome{
			Disposition: analysis.DispositionAutoVerified,
			Method:      analysis.MethodCrossValidationAgreement,
			Detail:      fmt.Sprintf("wer %.3f via %s", wer, v.engine.ID()),
		}, nil
	}
	return Outcome{
		Disposition: analysis.DispositionPending,
		Method:      analysis.MethodHighWER,
		Priority:    analysis.PriorityHigh,
		NeedsReview: true,
		Detail:      fmt.Sprintf("wer %.3f above %.3f via %s", wer, v.maxWER, v.engine.ID()),
	}, nil
}

// sliceByTime returns the words of text between two fractional positions.
func sliceByTime(text string, from, to float64) string {
	words := textmetrics.Words(text)
	if len(words) == 0 {
		return ""
	}
	start := int(from * float64(len(words)))
	end := int(to*float64(len(words)) + 0.5)
	if start < 0 {
		start = 0
	}
	if end > len(words) {
		end = len(words)
	}
	if start >= end {
		return ""
	}
	return strings.Join(words[start:end], " ")
}
