package subtitles

import (
	"context"
	"fmt"
	"os"

	"github.com/streamvault/media-pipeline/internal/pipeline"
	"github.com/streamvault/media-pipeline/internal/runner"
	"github.com/streamvault/media-pipeline/pkg/logger"
)

// minAudioBytes rejects attempt outputs that are too small to contain real
// audio (a bare WAV header is 44 bytes; anything near that is garbage).
const minAudioBytes = 4096

// ExtractInput is the shared context for the audio-extraction fallback
// ladder: mono, fixed sample rate, capped duration to bound worker cost.
type ExtractInput struct {
	FFmpegBin  string
	SourcePath string
	OutputPath string
	SampleRate int
	MaxSeconds int
}

const (
	ExtractStandard      = "standard"
	ExtractErrorTolerant = "error-tolerant"
	ExtractResample      = "resample"
	ExtractSilent        = "silent-placeholder"
)

type ExtractStrategy struct {
	Name  string
	Build func(in ExtractInput) runner.Command
}

// ExtractStrategies mirrors the encode ladder's shape. The silent
// placeholder is last: transcribing silence yields an empty track downstream
// instead of hard-failing the whole pipeline on unreadable audio.
func ExtractStrategies() []ExtractStrategy {
	return []ExtractStrategy{
		{Name: ExtractStandard, Build: StandardExtractCommand},
		{Name: ExtractErrorTolerant, Build: ErrorTolerantExtractCommand},
		{Name: ExtractResample, Build: ResampleExtractCommand},
		{Name: ExtractSilent, Build: SilentExtractCommand},
	}
}

func outputArgs(in ExtractInput) []string {
	return []string{
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", in.SampleRate),
		"-t", fmt.Sprintf("%d", in.MaxSeconds),
		"-c:a", "pcm_s16le",
		"-y", in.OutputPath,
	}
}

func StandardExtractCommand(in ExtractInput) runner.Command {
	args := []string{"-hide_banner", "-i", in.SourcePath}
	args = append(args, outputArgs(in)...)
	return runner.Command{Bin: in.FFmpegBin, Args: args}
}

// ErrorTolerantExtractCommand skips corrupt packets and downmixes whatever
// channel layout is present to mono explicitly.
func ErrorTolerantExtractCommand(in ExtractInput) runner.Command {
	args := []string{
		"-hide_banner",
		"-err_detect", "ignore_err",
		"-fflags", "+genpts+discardcorrupt",
		"-max_error_rate", "1.0",
		"-i", in.SourcePath,
		"-af", "pan=mono|c0=0.5*FL+0.5*FR",
	}
	args = append(args, outputArgs(in)...)
	return runner.Command{Bin: in.FFmpegBin, Args: args}
}

// ResampleExtractCommand forces async resampling, recovering streams whose
// sample timestamps drift or jump.
func ResampleExtractCommand(in ExtractInput) runner.Command {
	args := []string{
		"-hide_banner",
		"-i", in.SourcePath,
		"-af", "aresample=async=1000:first_pts=0",
	}
	args = append(args, outputArgs(in)...)
	return runner.Command{Bin: in.FFmpegBin, Args: args}
}

// SilentExtractCommand synthesizes a short silent track as a last-resort
// placeholder.
func SilentExtractCommand(in ExtractInput) runner.Command {
	return runner.Command{
		Bin: in.FFmpegBin,
		Args: []string{
			"-hide_banner",
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=r=%d:cl=mono", in.SampleRate),
			"-t", "10",
			"-c:a", "pcm_s16le",
			"-y", in.OutputPath,
		},
	}
}

// ExtractAudio runs the fallback ladder until one attempt produces a file of
// at least minAudioBytes. Undersized outputs are removed and fall through.
func ExtractAudio(ctx context.Context, run runner.Runner, log logger.Logger, in ExtractInput) (string, error) {
	var strategies []pipeline.Strategy
	for _, s := range ExtractStrategies() {
		s := s
		strategies = append(strategies, pipeline.Strategy{
			Name: s.Name,
			Run: func(ctx context.Context) error {
				os.Remove(in.OutputPath)
				if _, err := run.Run(ctx, s.Build(in)); err != nil {
					return err
				}
				stat, err := os.Stat(in.OutputPath)
				if err != nil {
					return fmt.Errorf("no output produced: %w", err)
				}
				if stat.Size() < minAudioBytes {
					os.Remove(in.OutputPath)
					return fmt.Errorf("output too small: %d bytes", stat.Size())
				}
				return nil
			},
		})
	}
	return pipeline.TryEach(ctx, log, "audio extraction", strategies)
}
