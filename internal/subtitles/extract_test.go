package subtitles

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamvault/media-pipeline/internal/runner"
)

func testExtractInput(t *testing.T) ExtractInput {
	t.Helper()
	return ExtractInput{
		FFmpegBin:  "ffmpeg",
		SourcePath: "/scratch/job-1/source.mp4",
		OutputPath: filepath.Join(t.TempDir(), "audio.wav"),
		SampleRate: 16000,
		MaxSeconds: 600,
	}
}

func TestExtractStrategyOrder(t *testing.T) {
	var names []string
	for _, s := range ExtractStrategies() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{ExtractStandard, ExtractErrorTolerant, ExtractResample, ExtractSilent}, names)
}

func TestStandardExtractCommand(t *testing.T) {
	in := testExtractInput(t)
	cmd := StandardExtractCommand(in)

	assert.Equal(t, "ffmpeg", cmd.Bin)
	assert.Contains(t, cmd.Args, "-vn")
	assert.Contains(t, cmd.Args, "16000")
	assert.Contains(t, cmd.Args, "600")
	assert.Contains(t, cmd.Args, "pcm_s16le")
	assert.Equal(t, in.OutputPath, cmd.Args[len(cmd.Args)-1])
}

func TestErrorTolerantExtractCommandDownmixes(t *testing.T) {
	cmd := ErrorTolerantExtractCommand(testExtractInput(t))

	assert.Contains(t, cmd.Args, "ignore_err")
	assert.Contains(t, cmd.Args, "pan=mono|c0=0.5*FL+0.5*FR")
}

func TestResampleExtractCommand(t *testing.T) {
	cmd := ResampleExtractCommand(testExtractInput(t))
	assert.Contains(t, cmd.Args, "aresample=async=1000:first_pts=0")
}

func TestSilentExtractCommandSynthesizes(t *testing.T) {
	cmd := SilentExtractCommand(testExtractInput(t))

	assert.Contains(t, cmd.Args, "lavfi")
	assert.Contains(t, cmd.Args, "anullsrc=r=16000:cl=mono")
	// The silent placeholder never reads the source.
	assert.NotContains(t, cmd.Args, "/scratch/job-1/source.mp4")
}

// extractRunner simulates ffmpeg audio extraction per strategy: a strategy can
// fail outright or produce an undersized file.
type extractRunner struct {
	sizes map[string]int
	fail  map[string]bool
	calls []string
}

func extractStrategyOf(args []string) string {
	for _, a := range args {
		switch {
		case a == "-err_detect":
			return ExtractErrorTolerant
		case a == "aresample=async=1000:first_pts=0":
			return ExtractResample
		case a == "lavfi":
			return ExtractSilent
		}
	}
	return ExtractStandard
}

func (f *extractRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	strategy := extractStrategyOf(cmd.Args)
	f.calls = append(f.calls, strategy)

	if f.fail[strategy] {
		return nil, &runner.ExitError{Cmd: cmd.Bin, Err: errors.New("exit status 1"), Stderr: "could not find codec parameters"}
	}

	size, ok := f.sizes[strategy]
	if !ok {
		size = minAudioBytes * 2
	}
	outPath := cmd.Args[len(cmd.Args)-1]
	if err := os.WriteFile(outPath, bytes.Repeat([]byte{0}, size), 0o644); err != nil {
		return nil, err
	}
	return &runner.Result{}, nil
}

func TestExtractAudioFirstStrategyWins(t *testing.T) {
	in := testExtractInput(t)
	run := &extractRunner{}

	winner, err := ExtractAudio(context.Background(), run, newTestLogger(t), in)
	require.NoError(t, err)
	assert.Equal(t, ExtractStandard, winner)
	assert.Equal(t, []string{ExtractStandard}, run.calls)
}

func TestExtractAudioUndersizedOutputFallsThrough(t *testing.T) {
	in := testExtractInput(t)
	run := &extractRunner{
		// A bare WAV header's worth of bytes is not audio.
		sizes: map[string]int{ExtractStandard: 44},
		fail:  map[string]bool{ExtractErrorTolerant: true},
	}

	winner, err := ExtractAudio(context.Background(), run, newTestLogger(t), in)
	require.NoError(t, err)
	assert.Equal(t, ExtractResample, winner)
	assert.Equal(t, []string{ExtractStandard, ExtractErrorTolerant, ExtractResample}, run.calls)

	stat, err := os.Stat(in.OutputPath)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stat.Size(), int64(minAudioBytes))
}

func TestExtractAudioExhaustion(t *testing.T) {
	in := testExtractInput(t)
	run := &extractRunner{fail: map[string]bool{
		ExtractStandard:      true,
		ExtractErrorTolerant: true,
		ExtractResample:      true,
		ExtractSilent:        true,
	}}

	_, err := ExtractAudio(context.Background(), run, newTestLogger(t), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 4 strategies exhausted")
	_, statErr := os.Stat(in.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "no output file may survive a failed extraction")
}
