package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ml4e-club/ml4e-site-backend/config"
	"github.com/ml4e-club/ml4e-site-backend/errs"
)

//go:generate mockgen -destination=mocks/services.mock.go -package=mocks github.com/ml4e-club/ml4e-site-backend/services ImageHost,Notifier

// Asset is one uploaded file on its way to the image host.
type Asset struct {
	Folder      string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageHost stores an asset and returns the public URL it can be served from.
type ImageHost interface {
	Upload(ctx context.Context, asset Asset) (string, error)
}

// NewImageHost returns an S3 backed host when IMAGE_BUCKET is configured and a
// host that rejects every upload otherwise.
//
// Reads:
//   - IMAGE_BUCKET: target bucket
//   - IMAGE_REGION: bucket region (defaults to the AWS default chain)
//   - IMAGE_ENDPOINT: optional S3-compatible endpoint (R2, MinIO, ...)
//   - IMAGE_PUBLIC_BASE_URL: optional CDN/base URL used to build returned links
//   - IMAGE_PATH_STYLE: use path-style addressing
func NewImageHost(ctx context.Context, cfg map[string]string) (ImageHost, error) {
	bucket := config.GetString(cfg, "IMAGE_BUCKET", "")
	if bucket == "" {
		log.Warn().Msg("IMAGE_BUCKET not set, file attachments will be rejected")
		return NoImageHost(), nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := config.GetString(cfg, "IMAGE_REGION", ""); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errs.NewConfigError("IMAGE_REGION", err)
	}

	endpoint := config.GetString(cfg, "IMAGE_ENDPOINT", "")
	pathStyle := config.GetBool(cfg, "IMAGE_PATH_STYLE", false)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	baseURL := config.GetString(cfg, "IMAGE_PUBLIC_BASE_URL", "")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, awsCfg.Region)
	}

	return NewS3ImageHost(client, bucket, baseURL), nil
}

// s3PutObjectAPI is the slice of the S3 client the host needs.
type s3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3ImageHost struct {
	client  s3PutObjectAPI
	bucket  string
	baseURL string
}

func NewS3ImageHost(client s3PutObjectAPI, bucket, baseURL string) *S3ImageHost {
	return &S3ImageHost{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload stores the asset under <folder>/<uuid><ext> so names never collide.
func (h *S3ImageHost) Upload(ctx context.Context, asset Asset) (string, error) {
	key := objectKey(asset.Folder, asset.Filename)

	input := &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Body:   asset.Body,
	}
	if asset.ContentType != "" {
		input.ContentType = aws.String(asset.ContentType)
	}
	if asset.Size > 0 {
		input.ContentLength = aws.Int64(asset.Size)
	}

	if _, err := h.client.PutObject(ctx, input); err != nil {
		return "", errs.NewUploadError(asset.Filename, err)
	}

	url := h.baseURL + "/" + key
	log.Info().Str("key", key).Str("bucket", h.bucket).Msg("Uploaded image")
	return url, nil
}

func objectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	name := uuid.NewString() + ext
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

type disabledImageHost struct{}

func (disabledImageHost) Upload(context.Context, Asset) (string, error) {
	return "", errs.NewUploadUnavailableError()
}

// NoImageHost returns a host that rejects every upload.
func NoImageHost() ImageHost {
	return disabledImageHost{}
}
