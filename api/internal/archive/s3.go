package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"allergen-scan/api/internal/menu"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const defaultPrefix = "parse-failures"

// Putter is the slice of the S3 API the archiver needs.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver keeps unparseable model replies in an S3-compatible bucket
// (R2, MinIO, AWS) so prompts can be tuned offline. It implements
// menu.Archiver.
type S3Archiver struct {
	client Putter
	bucket string
	prefix string
	newID  func() string
}

type Options struct {
	Bucket    string
	Endpoint  string // empty for AWS itself
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// New builds an S3 client with static credentials. A custom endpoint switches
// to path-style addressing, which R2 and MinIO expect.
func New(ctx context.Context, opt Options) (*S3Archiver, error) {
	if strings.TrimSpace(opt.Bucket) == "" {
		return nil, errors.New("archive: bucket is empty")
	}
	region := opt.Region
	if region == "" {
		region = "auto"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, opt.Bucket, opt.Prefix), nil
}

func NewWithClient(client Putter, bucket, prefix string) *S3Archiver {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		newID:  func() string { return uuid.NewString() },
	}
}

// Key returns <prefix>/<yyyy-mm-dd>/<id>.json.
func (a *S3Archiver) Key(at time.Time, id string) string {
	return path.Join(a.prefix, at.UTC().Format("2006-01-02"), id+".json")
}

func (a *S3Archiver) ArchiveParseFailure(ctx context.Context, rep menu.ParseFailureReport) error {
	if rep.At.IsZero() {
		rep.At = time.Now().UTC()
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("archive: encode report: %w", err)
	}
	key := a.Key(rep.At, a.newID())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"prompt-version": rep.PromptVersion,
			"engine":         rep.Engine,
		},
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}
