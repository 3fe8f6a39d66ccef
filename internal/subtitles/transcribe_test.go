package subtitles

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribeCommand(t *testing.T) {
	cmd := TranscribeCommand("whisper-cli", "/models/ggml-base.bin", "/scratch/audio.wav", "/scratch/transcript", "es")

	assert.Equal(t, "whisper-cli", cmd.Bin)
	assert.Equal(t, []string{
		"-m", "/models/ggml-base.bin",
		"-f", "/scratch/audio.wav",
		"-l", "es",
		"-osrt",
		"-of", "/scratch/transcript",
	}, cmd.Args)
}

func TestTranscribeCommandDefaultsToAutoDetection(t *testing.T) {
	cmd := TranscribeCommand("whisper-cli", "m.bin", "a.wav", "out", "")
	assert.Contains(t, cmd.Args, "auto")
}

func TestTranscribeParsesOutput(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "transcript")
	run := &subtitleRunner{transcript: testTranscript}

	segments, err := Transcribe(context.Background(), run, "whisper-cli", "m.bin", "a.wav", prefix, "en")
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "The meeting starts now.", segments[0].Text)
}

func TestTranscribeRejectsEmptyTranscript(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "transcript")
	run := &subtitleRunner{transcript: ""}

	_, err := Transcribe(context.Background(), run, "whisper-cli", "m.bin", "a.wav", prefix, "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parseable segments")
}

func TestTranscribeMissingOutputFile(t *testing.T) {
	// A runner that succeeds without producing the SubRip file is a failure.
	run := &extractRunner{}
	_, err := Transcribe(context.Background(), run, "whisper-cli", "m.bin", "a.wav", filepath.Join(t.TempDir(), "transcript"), "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not readable")
}
