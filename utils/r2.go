// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"bizquits/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// MaxProofImageSize caps proof uploads (10MB)
const MaxProofImageSize = 10 << 20

var allowedProofExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
}

// R2Client stores proof images in a Cloudflare R2 bucket.
type R2Client struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

// InitR2 builds an S3 client pointed at the account's R2 endpoint.
func InitR2(ctx context.Context, cfg config.R2Config) (*R2Client, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	cdnBaseURL := cfg.CDNBaseURL
	if cdnBaseURL == "" {
		cdnBaseURL = endpoint
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Client{
		client:     client,
		bucket:     cfg.Bucket,
		cdnBaseURL: strings.TrimRight(cdnBaseURL, "/"),
	}, nil
}

// ProofImageKey builds the object key: proofs/{participation}/{uuid}-{slug}{ext}.
// Returns an error for extensions that are not images.
func ProofImageKey(participationID, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedProofExts[ext]; !ok {
		return "", fmt.Errorf("unsupported proof image type %q", ext)
	}
	base := slug.Make(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "proof"
	}
	return fmt.Sprintf("proofs/%s/%s-%s%s", participationID, uuid.NewString(), base, ext), nil
}

// UploadProofImage uploads a multipart image and returns its public URL.
func (r *R2Client) UploadProofImage(ctx context.Context, fileHeader *multipart.FileHeader, participationID string) (string, error) {
	if fileHeader.Size > MaxProofImageSize {
		return "", fmt.Errorf("proof image exceeds %d bytes", MaxProofImageSize)
	}
	key, err := ProofImageKey(participationID, fileHeader.Filename)
	if err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = allowedProofExts[strings.ToLower(filepath.Ext(fileHeader.Filename))]
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        buf,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", r.cdnBaseURL, key), nil
}
