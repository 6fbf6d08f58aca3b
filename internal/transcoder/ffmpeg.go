package transcoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/mediagate/internal/infrastructure/metrics"
)

// FFmpegConfig holds configuration for the FFmpeg transcoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary.
	// If empty, "ffprobe" will be used.
	FFprobePath string

	// VideoCodec is the video codec to use.
	// Default: libx264
	VideoCodec string

	// VideoPreset controls the encoding speed/quality tradeoff.
	// Default: fast
	VideoPreset string

	// AudioCodec is the audio codec to use.
	// Default: aac
	AudioCodec string

	// HLSSegmentDuration is the target duration of each HLS segment in seconds.
	// Default: 10
	HLSSegmentDuration int

	// HLSPlaylistType sets the playlist type.
	// Use "vod" for Video on Demand (adds EXT-X-ENDLIST tag).
	// Default: vod
	HLSPlaylistType string

	// MaxParallel bounds how many renditions are encoded at once.
	// Zero or less means all renditions run together.
	MaxParallel int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:         "ffmpeg",
		FFprobePath:        "ffprobe",
		VideoCodec:         "libx264",
		VideoPreset:        "fast",
		AudioCodec:         "aac",
		HLSSegmentDuration: 10,
		HLSPlaylistType:    "vod",
		MaxParallel:        2,
	}
}

// FFmpegTranscoder implements Transcoder using the FFmpeg CLI.
type FFmpegTranscoder struct {
	config FFmpegConfig
	runner Runner
}

// Compile-time verification that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new FFmpeg-based transcoder.
// A nil runner runs processes with os/exec.
func NewFFmpegTranscoder(cfg FFmpegConfig, runner Runner) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &FFmpegTranscoder{
		config: cfg,
		runner: runner,
	}
}

// ProbeDuration reads the container duration with ffprobe.
func (t *FFmpegTranscoder) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	if err := t.validateInput(inputPath); err != nil {
		return 0, err
	}

	result, err := t.run(ctx, "probe", "", t.config.FFprobePath, buildProbeArgs(inputPath))
	if err != nil {
		return 0, err
	}

	seconds, err := parseDuration(string(result.Stdout))
	if err != nil {
		return 0, &TranscodeError{Op: "probe", Diagnostics: result.Stderr, Err: err}
	}
	return seconds, nil
}

// ProduceRenditions encodes renditions in parallel, each into its own
// subdirectory of outputDir.
func (t *FFmpegTranscoder) ProduceRenditions(ctx context.Context, inputPath, outputDir string, renditions []Rendition) ([]RenditionOutput, error) {
	if err := t.validateInput(inputPath); err != nil {
		return nil, err
	}

	if err := t.validateOutputDir(outputDir); err != nil {
		return nil, err
	}

	if len(renditions) == 0 {
		return nil, fmt.Errorf("at least one rendition is required")
	}

	for _, r := range renditions {
		if err := os.MkdirAll(filepath.Join(outputDir, r.Label), 0755); err != nil {
			return nil, fmt.Errorf("create rendition directory %s: %w", r.Label, err)
		}
	}

	outputs := make([]RenditionOutput, len(renditions))
	g, gctx := errgroup.WithContext(ctx)
	if t.config.MaxParallel > 0 {
		g.SetLimit(t.config.MaxParallel)
	}

	for i, r := range renditions {
		g.Go(func() error {
			output, err := t.produceRendition(gctx, inputPath, filepath.Join(outputDir, r.Label), r)
			if err != nil {
				return fmt.Errorf("produce rendition %s: %w", r.Label, err)
			}
			outputs[i] = *output
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// produceRendition encodes a single rendition.
func (t *FFmpegTranscoder) produceRendition(ctx context.Context, inputPath, renditionDir string, r Rendition) (*RenditionOutput, error) {
	playlistPath := filepath.Join(renditionDir, "playlist.m3u8")
	segmentPattern := filepath.Join(renditionDir, "segment_%03d.ts")

	args := t.buildRenditionArgs(inputPath, playlistPath, segmentPattern, r)

	result, err := t.run(ctx, "transcode", r.Label, t.config.FFmpegPath, args)
	if err != nil {
		return nil, err
	}

	slog.Debug("rendition produced",
		slog.String("rendition", r.Label),
		slog.Duration("elapsed", result.Duration),
	)

	segments, err := collectSegments(renditionDir)
	if err != nil {
		return nil, fmt.Errorf("collect segments: %w", err)
	}

	return &RenditionOutput{
		Rendition:    r,
		PlaylistPath: playlistPath,
		SegmentPaths: segments,
	}, nil
}

// ExtractThumbnail grabs one frame at offset as a JPEG.
func (t *FFmpegTranscoder) ExtractThumbnail(ctx context.Context, inputPath, outputPath string, offset time.Duration) error {
	if err := t.validateInput(inputPath); err != nil {
		return err
	}

	if _, err := t.run(ctx, "thumbnail", "", t.config.FFmpegPath, buildThumbnailArgs(inputPath, outputPath, offset)); err != nil {
		return err
	}

	if _, err := os.Stat(outputPath); err != nil {
		return &TranscodeError{Op: "thumbnail", Err: fmt.Errorf("no frame written: %w", err)}
	}
	return nil
}

// run executes one process and converts a failure into a *TranscodeError.
func (t *FFmpegTranscoder) run(ctx context.Context, op, label, name string, args []string) (ProcessResult, error) {
	result, err := t.runner.Run(ctx, name, args...)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("cancelled: %w", ctx.Err())
		}
		observeProcess(op, metrics.ProcessResultFailed, result.Duration)
		return result, &TranscodeError{Op: op, Label: label, ExitCode: -1, Diagnostics: result.Stderr, Err: err}
	}
	if result.ExitCode != 0 {
		observeProcess(op, metrics.ProcessResultFailed, result.Duration)
		return result, &TranscodeError{Op: op, Label: label, ExitCode: result.ExitCode, Diagnostics: result.Stderr}
	}
	observeProcess(op, metrics.ProcessResultSuccess, result.Duration)
	return result, nil
}

func observeProcess(op, result string, d time.Duration) {
	metrics.TranscodeProcessesTotal.WithLabelValues(op, result).Inc()
	metrics.TranscodeProcessDurationSeconds.WithLabelValues(op).Observe(d.Seconds())
}

// validateInput checks if the input file exists and is readable.
func (t *FFmpegTranscoder) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// validateOutputDir checks if the output directory exists.
func (t *FFmpegTranscoder) validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	return nil
}

// buildRenditionArgs constructs constant-bitrate FFmpeg arguments for a rendition.
func (t *FFmpegTranscoder) buildRenditionArgs(inputPath, playlistPath, segmentPattern string, r Rendition) []string {
	args := []string{"-i", inputPath}

	if r.AudioOnly {
		args = append(args,
			"-vn",
			"-c:a", t.config.AudioCodec,
			"-b:a", r.Bitrate,
		)
	} else {
		// -2 keeps the width divisible by 2
		args = append(args,
			"-vf", fmt.Sprintf("scale=-2:%d", r.Height),
			"-c:v", t.config.VideoCodec,
			"-preset", t.config.VideoPreset,
			"-b:v", r.Bitrate,
			"-minrate", r.Bitrate,
			"-maxrate", r.Bitrate,
			"-bufsize", r.Bitrate,
			"-c:a", t.config.AudioCodec,
		)
	}

	return append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(t.config.HLSSegmentDuration),
		"-hls_list_size", "0",
		"-hls_playlist_type", t.config.HLSPlaylistType,
		"-hls_segment_filename", segmentPattern,
		"-y",
		playlistPath,
	)
}

func buildProbeArgs(inputPath string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		inputPath,
	}
}

func buildThumbnailArgs(inputPath, outputPath string, offset time.Duration) []string {
	return []string{
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', -1, 64),
		"-i", inputPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	}
}

// parseDuration reads the single number ffprobe prints for format=duration.
func parseDuration(out string) (float64, error) {
	cleaned := strings.TrimSpace(out)
	if cleaned == "" || cleaned == "N/A" {
		return 0, errors.New("duration unavailable")
	}
	seconds, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", cleaned, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %q", cleaned)
	}
	return seconds, nil
}

// collectSegments finds all generated .ts segment files in a rendition directory.
func collectSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".ts") {
			segments = append(segments, filepath.Join(dir, entry.Name()))
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments generated in output directory")
	}

	return segments, nil
}
