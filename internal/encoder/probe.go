package encoder

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/streamvault/media-pipeline/internal/runner"
)

type SourceInfo struct {
	Width    int
	Height   int
	Duration float64
	Codec    string
}

// DefaultSourceInfo is the safe fallback when probing fails: assume full HD
// so the whole ladder is attempted, and let the encode attempts sort out
// whatever is actually in the container.
func DefaultSourceInfo() *SourceInfo {
	return &SourceInfo{Width: 1920, Height: 1080, Duration: 0}
}

func probeStreamCommand(ffprobeBin, inputPath string) runner.Command {
	return runner.Command{
		Bin: ffprobeBin,
		Args: []string{
			"-v", "error",
			"-select_streams", "v:0",
			"-show_entries", "stream=width,height,codec_name",
			"-of", "csv=p=0",
			inputPath,
		},
	}
}

func probeDurationCommand(ffprobeBin, inputPath string) runner.Command {
	return runner.Command{
		Bin: ffprobeBin,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "csv=p=0",
			inputPath,
		},
	}
}

// Probe extracts width, height, codec and duration from the source. Errors
// are returned to the caller, which falls back to DefaultSourceInfo rather
// than failing the job: some playable output beats a hard failure.
func Probe(ctx context.Context, run runner.Runner, ffprobeBin, inputPath string) (*SourceInfo, error) {
	res, err := run.Run(ctx, probeStreamCommand(ffprobeBin, inputPath))
	if err != nil {
		return nil, fmt.Errorf("ffprobe stream query: %w", err)
	}

	out := strings.TrimSpace(res.Stdout)
	out = strings.TrimRight(out, ",")
	parts := strings.Split(out, ",")
	if len(parts) < 2 {
		return nil, fmt.Errorf("unexpected ffprobe output: %q", out)
	}

	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid height: %w", err)
	}
	info := &SourceInfo{Width: width, Height: height}
	if len(parts) > 2 {
		info.Codec = strings.TrimSpace(parts[2])
	}

	res, err = run.Run(ctx, probeDurationCommand(ffprobeBin, inputPath))
	if err != nil {
		return nil, fmt.Errorf("ffprobe duration query: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %w", err)
	}
	info.Duration = duration

	return info, nil
}
