package encoder

import (
	"fmt"
	"path/filepath"

	"github.com/streamvault/media-pipeline/internal/models"
	"github.com/streamvault/media-pipeline/internal/runner"
)

const (
	RungPlaylistName = "index.m3u8"
	segmentPattern   = "segment_%03d.ts"
)

// EncodeInput is the shared context one rung's fallback strategies build
// their argument vectors from.
type EncodeInput struct {
	FFmpegBin      string
	SourcePath     string
	OutputDir      string
	SegmentSeconds int
	Rung           models.QualityRung
}

// Strategy names double as log/error vocabulary, so keep them stable.
const (
	StrategyStandard      = "standard"
	StrategyErrorTolerant = "error-tolerant"
	StrategyAudioRebuild  = "audio-rebuild"
	StrategyVideoOnly     = "video-only"
)

type EncodeStrategy struct {
	Name  string
	Build func(in EncodeInput) runner.Command
}

// EncodeStrategies is the ordered fallback ladder for one quality rung.
// video-only is last and unconditional: dropping audio always succeeds on
// anything with a decodable video stream, which makes it the backstop.
func EncodeStrategies() []EncodeStrategy {
	return []EncodeStrategy{
		{Name: StrategyStandard, Build: StandardEncodeCommand},
		{Name: StrategyErrorTolerant, Build: ErrorTolerantEncodeCommand},
		{Name: StrategyAudioRebuild, Build: AudioRebuildEncodeCommand},
		{Name: StrategyVideoOnly, Build: VideoOnlyEncodeCommand},
	}
}

func scalePadFilter(rung models.QualityRung) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		rung.TargetWidth, rung.TargetHeight, rung.TargetWidth, rung.TargetHeight,
	)
}

func videoArgs(in EncodeInput) []string {
	return []string{
		"-vf", scalePadFilter(in.Rung),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "main",
		"-b:v", in.Rung.VideoBitrate,
		"-maxrate", in.Rung.VideoBitrate,
		"-g", "48",
		"-sc_threshold", "0",
	}
}

func audioArgs(in EncodeInput) []string {
	return []string{
		"-c:a", "aac",
		"-b:a", in.Rung.AudioBitrate,
		"-ac", "2",
		"-ar", "48000",
	}
}

func hlsArgs(in EncodeInput) []string {
	return []string{
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", in.SegmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(in.OutputDir, segmentPattern),
		filepath.Join(in.OutputDir, RungPlaylistName),
	}
}

// StandardEncodeCommand scales and pads to the rung target, re-encodes video
// and a normalized stereo audio track, and packages segmented HLS. Video is
// always re-encoded; stream-copy was deliberately ruled out for stability on
// malformed containers.
func StandardEncodeCommand(in EncodeInput) runner.Command {
	args := []string{"-hide_banner", "-y", "-i", in.SourcePath}
	args = append(args, videoArgs(in)...)
	args = append(args, audioArgs(in)...)
	args = append(args, hlsArgs(in)...)
	return runner.Command{Bin: in.FFmpegBin, Args: args}
}

// ErrorTolerantEncodeCommand maximizes input error tolerance: corrupt
// packets and broken indices are skipped instead of aborting the decode.
// Recovers most "valid video, glitchy audio" sources.
func ErrorTolerantEncodeCommand(in EncodeInput) runner.Command {
	args := []string{
		"-hide_banner", "-y",
		"-err_detect", "ignore_err",
		"-fflags", "+genpts+discardcorrupt",
		"-max_error_rate", "1.0",
		"-i", in.SourcePath,
	}
	args = append(args, videoArgs(in)...)
	args = append(args, audioArgs(in)...)
	args = append(args, hlsArgs(in)...)
	return runner.Command{Bin: in.FFmpegBin, Args: args}
}

// AudioRebuildEncodeCommand maps video and audio as explicit separate
// streams and renormalizes timestamps, recovering sources whose muxed a/v
// timestamps have diverged.
func AudioRebuildEncodeCommand(in EncodeInput) runner.Command {
	args := []string{
		"-hide_banner", "-y",
		"-fflags", "+genpts",
		"-i", in.SourcePath,
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-avoid_negative_ts", "make_zero",
	}
	args = append(args, videoArgs(in)...)
	args = append(args, audioArgs(in)...)
	args = append(args, "-af", "aresample=async=1:first_pts=0")
	args = append(args, hlsArgs(in)...)
	return runner.Command{Bin: in.FFmpegBin, Args: args}
}

// VideoOnlyEncodeCommand drops audio entirely. Attempted last and always,
// even when audio is present.
func VideoOnlyEncodeCommand(in EncodeInput) runner.Command {
	args := []string{"-hide_banner", "-y", "-i", in.SourcePath}
	args = append(args, videoArgs(in)...)
	args = append(args, "-an")
	args = append(args, hlsArgs(in)...)
	return runner.Command{Bin: in.FFmpegBin, Args: args}
}
