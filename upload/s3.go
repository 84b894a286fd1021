// Package upload publishes finished run artifacts to S3 and YouTube.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config carries the optional overrides for the AWS config chain.
type S3Config struct {
	Region       string
	Profile      string
	Bucket       string
	UsePathStyle bool
}

// S3 wraps the AWS SDK v2 client with the narrow surface the pipeline needs.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 builds a client from the default AWS credential chain plus overrides.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// PutFile uploads a local file under key.
func (s *S3) PutFile(ctx context.Context, key, path, contentType string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return s.Put(ctx, key, file, contentType)
}

// Put uploads an object under key.
func (s *S3) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// Exists reports whether key is present (false on 404/NotFound).
func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, err
}

var archiveContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".json": "application/json",
	".zip":  "application/zip",
	".txt":  "text/plain",
	".log":  "text/plain",
}

// PutRunArtifacts uploads the named files from a run folder under runID/.
func (s *S3) PutRunArtifacts(ctx context.Context, runID string, paths []string) error {
	for _, path := range paths {
		key := runID + "/" + filepath.Base(path)
		ct := archiveContentTypes[filepath.Ext(path)]
		if err := s.PutFile(ctx, key, path, ct); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	return nil
}
