package transcoder

import (
	"context"
	"time"

	"github.com/hszk-dev/mediagate/internal/domain/model"
)

// Rendition represents a single quality level of the HLS output.
type Rendition struct {
	// Label names the rendition and its output subdirectory (e.g., "720p", "128k").
	Label string
	// Height is the video height in pixels. Zero for audio-only renditions.
	Height int
	// Bitrate is the constant target bitrate in ffmpeg notation (e.g., "2500k").
	Bitrate string
	// AudioOnly drops the video stream.
	AudioOnly bool
}

// RenditionOutput contains the result for a single rendition.
type RenditionOutput struct {
	Rendition Rendition
	// PlaylistPath is the path to the rendition's playlist.m3u8 file.
	PlaylistPath string
	// SegmentPaths contains paths to all .ts segment files for this rendition.
	SegmentPaths []string
}

// DefaultVideoRenditions returns the renditions produced for the video family.
func DefaultVideoRenditions() []Rendition {
	return []Rendition{
		{Label: "480p", Height: 480, Bitrate: "1000k"},
		{Label: "720p", Height: 720, Bitrate: "2500k"},
	}
}

// DefaultAudioRenditions returns the renditions produced for the audio family.
func DefaultAudioRenditions() []Rendition {
	return []Rendition{
		{Label: "96k", Bitrate: "96k", AudioOnly: true},
		{Label: "128k", Bitrate: "128k", AudioOnly: true},
	}
}

// RenditionsFor returns the rendition set of a media family.
func RenditionsFor(family model.Family) []Rendition {
	if family == model.FamilyAudio {
		return DefaultAudioRenditions()
	}
	return DefaultVideoRenditions()
}

// Labels returns the labels of renditions in order.
func Labels(renditions []Rendition) []string {
	labels := make([]string, len(renditions))
	for i, r := range renditions {
		labels[i] = r.Label
	}
	return labels
}

// Transcoder defines the interface for media transcoding operations.
// Every operation spawns exactly one external process per unit of work.
type Transcoder interface {
	// ProbeDuration returns the duration of the input in seconds.
	ProbeDuration(ctx context.Context, inputPath string) (float64, error)

	// ProduceRenditions encodes every rendition into outputDir/{label}/.
	// The output directory must exist before calling this method.
	// A failure of any rendition fails the whole call.
	ProduceRenditions(ctx context.Context, inputPath, outputDir string, renditions []Rendition) ([]RenditionOutput, error)

	// ExtractThumbnail writes a single JPEG frame taken at offset.
	ExtractThumbnail(ctx context.Context, inputPath, outputPath string, offset time.Duration) error
}
