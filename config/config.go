package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every knob the pipeline reads. It is loaded once at startup
// and passed by value into the orchestrator; nothing mutates it mid-run.
type Config struct {
	SubtitleStyle    string   `json:"subtitle_style"`
	BackgroundStyle  string   `json:"background_style"`
	BackgroundsPath  string   `json:"background_videos_path"`
	VideoExtensions  []string `json:"video_extensions"`
	Resolution       string   `json:"resolution"`
	WatermarkPath    string   `json:"watermark_path"`
	WatermarkOpacity float64  `json:"watermark_opacity"`
	WatermarkEnabled bool     `json:"watermark_enabled"`

	VoiceEngine    string `json:"voice_engine"`
	VoiceID        string `json:"default_voice_id"`
	LocalModelName string `json:"local_model_name"`
	ModelCacheDir  string `json:"model_cache_dir"`
	WhisperModel   string `json:"whisper_model"`

	FFmpegPath  string `json:"ffmpeg_path"`
	WhisperPath string `json:"whisper_path"`
	PiperPath   string `json:"piper_path"`

	OutputDir          string `json:"output_dir"`
	StepTimeoutSeconds int    `json:"step_timeout_seconds"`
	DeveloperMode      bool   `json:"developer_mode"`

	// Credentials come from the environment, never from the config file.
	ElevenLabsAPIKey string `json:"-"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		SubtitleStyle:      "simple",
		BackgroundStyle:    "minecraft",
		BackgroundsPath:    BackgroundsDir,
		VideoExtensions:    []string{".mp4", ".mov", ".mkv", ".webm"},
		Resolution:         "1080x1920",
		WatermarkOpacity:   1.0,
		WatermarkEnabled:   true,
		VoiceEngine:        "elevenlabs",
		LocalModelName:     "en_US-lessac-medium",
		WhisperModel:       "base",
		FFmpegPath:         "ffmpeg",
		WhisperPath:        "whisper",
		PiperPath:          "piper",
		OutputDir:          OutputDir,
		StepTimeoutSeconds: int(DefaultStepTimeout / time.Second),
	}
}

// Load reads the JSON config at path, applies defaults for missing fields,
// and overlays credentials from the environment (.env is honored if present).
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.ElevenLabsAPIKey = strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID")); v != "" && cfg.VoiceID == "" {
		cfg.VoiceID = v
	}
	if cfg.ModelCacheDir == "" {
		cacheRoot, err := os.UserCacheDir()
		if err != nil {
			cacheRoot = os.TempDir()
		}
		cfg.ModelCacheDir = filepath.Join(cacheRoot, "autocontent", "models")
	}
	return cfg, nil
}

// Save writes the config as indented JSON, creating parent directories.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// StepTimeout returns the per-step budget as a duration.
func (c Config) StepTimeout() time.Duration {
	if c.StepTimeoutSeconds <= 0 {
		return DefaultStepTimeout
	}
	return time.Duration(c.StepTimeoutSeconds) * time.Second
}

// Validate rejects configurations the pipeline cannot start with.
func (c Config) Validate() error {
	switch c.SubtitleStyle {
	case "karaoke", "progressive", "simple":
	default:
		return fmt.Errorf("unknown subtitle style %q", c.SubtitleStyle)
	}
	if _, _, err := ParseResolution(c.Resolution); err != nil {
		return err
	}
	if strings.TrimSpace(c.BackgroundsPath) == "" {
		return fmt.Errorf("background videos path is required")
	}
	if len(c.VideoExtensions) == 0 {
		return fmt.Errorf("at least one accepted video extension is required")
	}
	return nil
}

// ParseResolution splits a WxH string like "1080x1920".
func ParseResolution(res string) (width, height int, err error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(res)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("resolution %q is not WxH", res)
	}
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &width, &height); err != nil {
		return 0, 0, fmt.Errorf("resolution %q is not WxH: %w", res, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("resolution %q must be positive", res)
	}
	return width, height, nil
}
