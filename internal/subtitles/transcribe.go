package subtitles

import (
	"context"
	"fmt"
	"os"

	"github.com/streamvault/media-pipeline/internal/runner"
)

// TranscribeCommand builds the whisper.cpp invocation: SRT output next to
// the given prefix, declared source language or auto-detection.
func TranscribeCommand(whisperBin, modelPath, audioPath, outPrefix, language string) runner.Command {
	if language == "" {
		language = "auto"
	}
	return runner.Command{
		Bin: whisperBin,
		Args: []string{
			"-m", modelPath,
			"-f", audioPath,
			"-l", language,
			"-osrt",
			"-of", outPrefix,
		},
	}
}

// Transcribe runs speech-to-text over the extracted audio and parses the
// resulting SubRip file. An empty or collapsed transcript is a hard failure,
// never a silent pass-through.
func Transcribe(ctx context.Context, run runner.Runner, whisperBin, modelPath, audioPath, outPrefix, language string) ([]Segment, error) {
	if _, err := run.Run(ctx, TranscribeCommand(whisperBin, modelPath, audioPath, outPrefix, language)); err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	srtPath := outPrefix + ".srt"
	raw, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, fmt.Errorf("transcript %q not readable: %w", srtPath, err)
	}

	segments := ParseSRT(string(raw))
	if err := ValidateTranscript(segments); err != nil {
		return nil, err
	}
	return segments, nil
}
