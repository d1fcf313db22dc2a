package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactStore archives scrape artifacts (downloaded monthly PDF reports,
// failure screenshots) to S3-compatible storage. A nil *ArtifactStore is a
// valid no-op receiver so callers never branch on configuration.
type ArtifactStore struct {
	client *s3.Client
	bucket string
}

type ArtifactConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // for DO Spaces, R2, MinIO, etc.
	AccessKeyID     string
	SecretAccessKey string
}

func NewArtifactStore(ctx context.Context, cfg ArtifactConfig) (*ArtifactStore, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	return &ArtifactStore{client: client, bucket: cfg.Bucket}, nil
}

// ArchiveReport stores a downloaded monthly report under
// reports/<city>/<year>-<month>.pdf.
func (a *ArtifactStore) ArchiveReport(ctx context.Context, city string, year, month int, data []byte) {
	if a == nil {
		return
	}
	key := fmt.Sprintf("reports/%s/%d-%02d.pdf", slug(city), year, month)
	a.put(ctx, key, data, "application/pdf")
}

// ArchiveScreenshot stores a failure screenshot under
// screenshots/<city>/<timestamp>.png.
func (a *ArtifactStore) ArchiveScreenshot(ctx context.Context, city string, data []byte) {
	if a == nil {
		return
	}
	key := fmt.Sprintf("screenshots/%s/%s.png", slug(city), time.Now().UTC().Format("20060102T150405"))
	a.put(ctx, key, data, "image/png")
}

func (a *ArtifactStore) put(ctx context.Context, key string, data []byte, contentType string) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		// Archiving is best effort; the scrape result stands on its own.
		log.Printf("Warning: failed to archive %s: %v", key, err)
	}
}

func slug(city string) string {
	out := make([]byte, 0, len(city))
	for i := 0; i < len(city); i++ {
		ch := city[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			out = append(out, ch-'A'+'a')
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
