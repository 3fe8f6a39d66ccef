package subtitles

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Segment is one timed-text cue: an index, a start/end timestamp and the
// text payload. Translation may only ever touch Text.
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// anomalousSegmentLength flags a transcript that parsed as a single giant
// cue, which is what a line-ending mis-parse looks like.
const anomalousSegmentLength = 2000

// ParseSRT parses SubRip text into segments. Malformed blocks are skipped;
// zero parseable segments is the caller's signal of a hard failure.
func ParseSRT(input string) []Segment {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	blocks := strings.Split(input, "\n\n")

	var segments []Segment
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		start, end, err := parseTimingLine(lines[1])
		if err != nil {
			continue
		}
		text := ""
		if len(lines) > 2 {
			text = strings.Join(lines[2:], "\n")
		}
		segments = append(segments, Segment{
			Index: idx,
			Start: start,
			End:   end,
			Text:  strings.TrimSpace(text),
		})
	}
	return segments
}

func parseTimingLine(line string) (time.Duration, time.Duration, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line: %q", line)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp reads "HH:MM:SS,mmm" (SubRip) with "." tolerated for ",".
func parseTimestamp(ts string) (time.Duration, error) {
	ts = strings.ReplaceAll(ts, ".", ",")
	var h, m, s, ms int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ms := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// FormatSRT serializes segments back to SubRip text. Indices are renumbered
// sequentially from 1, which players expect after any editing pass.
func FormatSRT(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", formatTimestamp(seg.Start), formatTimestamp(seg.End))
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// ValidateTranscript rejects transcripts that are empty or that collapsed
// into one anomalously large cue; both are format mis-parses, not content.
func ValidateTranscript(segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("transcription produced no parseable segments")
	}
	if len(segments) == 1 && len(segments[0].Text) > anomalousSegmentLength {
		return fmt.Errorf("transcription collapsed into a single %d-char segment, likely a format mis-parse", len(segments[0].Text))
	}
	return nil
}
