package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/LaChance971123/NewAutoContent/config"
)

// VideoMetadata describes the listing of an uploaded video.
type VideoMetadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
}

// YouTube uploads finished videos as Shorts via a service account.
type YouTube struct {
	service *youtube.Service
	logger  *slog.Logger
}

// NewYouTube authenticates from a service-account JSON key file.
func NewYouTube(ctx context.Context, serviceAccountFile string, logger *slog.Logger) (*YouTube, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}
	jwtConfig, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}
	service, err := youtube.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTube{service: service, logger: logger}, nil
}

// Upload publishes the video file and returns the new video ID.
func (y *YouTube) Upload(ctx context.Context, videoPath string, metadata VideoMetadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat video file: %w", err)
	}
	y.logger.Info("uploading video", "path", videoPath, "size_mb", float64(info.Size())/(1024*1024))

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       metadata.Title,
			Description: metadata.Description,
			Tags:        metadata.Tags,
			CategoryId:  metadata.CategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           config.YouTubePrivacyStatus,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := y.service.Videos.Insert([]string{"snippet", "status"}, video).Media(file).Context(ctx)
	response, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	y.logger.Info("upload complete", "url", "https://youtube.com/shorts/"+response.Id)
	return response.Id, nil
}

// GenerateMetadata derives a listing from the script: first sentence as
// title, leading text as description.
func GenerateMetadata(scriptName, script string) VideoMetadata {
	title := titleFromScript(scriptName, script)
	description := clip(strings.TrimSpace(script), 400) + "\n\n#shorts"
	return VideoMetadata{
		Title:       title,
		Description: description,
		Tags:        []string{"shorts", "narration", "story"},
		CategoryID:  config.YouTubeCategoryID,
	}
}

func titleFromScript(scriptName, script string) string {
	title := firstSentence(script)
	if title == "" {
		title = scriptName
	}
	words := strings.Fields(title)
	if len(words) > config.MaxTitleWords {
		words = words[:config.MaxTitleWords]
		title = strings.Join(words, " ") + "..."
	}
	return clip(title, config.MaxTitleLength)
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(text[:i])
		}
	}
	return text
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
