package config

import "time"

// Video Output Constants
const (
	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// AudioCodec is the audio encoding codec
	AudioCodec = "aac"

	// AudioBitrate is the audio quality bitrate
	AudioBitrate = "192k"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"

	// VideoEndPadding adds a delay at the end of the video in seconds
	VideoEndPadding = 0.5

	// MaxVideoDuration is the maximum allowed video length in seconds (3 minutes)
	MaxVideoDuration = 180.0
)

// Pipeline Constants
const (
	// DefaultStepTimeout bounds each pipeline step when no timeout is configured
	DefaultStepTimeout = 5 * time.Minute

	// MaxConcurrentRuns limits the number of pipeline runs processed simultaneously in batch mode
	MaxConcurrentRuns = 2

	// PlaceholderVoiceDuration is the nominal length of the silent developer-mode voice asset
	PlaceholderVoiceDuration = 3 * time.Second
)

// Directory Constants
const (
	// BackgroundsDir is the default root directory containing background style folders
	BackgroundsDir = "assets/backgrounds"

	// OutputDir is the default directory for run artifact folders
	OutputDir = "output"
)

// Subtitle Constants
const (
	// SubtitleFontSize is the ASS font size for rendered captions
	SubtitleFontSize = 64

	// SubtitleMaxWordsLine is the maximum number of words per caption line
	SubtitleMaxWordsLine = 6
)

// Title and Metadata Constants
const (
	// MaxTitleWords is the maximum number of words to use from the script for a title
	MaxTitleWords = 10

	// MaxTitleLength is the maximum character length for video titles
	MaxTitleLength = 100
)

// YouTube Constants
const (
	// YouTubeCategoryID for Science & Technology
	YouTubeCategoryID = "28"

	// YouTubePrivacyStatus sets video visibility
	YouTubePrivacyStatus = "public"
)
