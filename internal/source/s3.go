package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config addresses a bucket and, optionally, a key prefix to restrict
// enumeration to. Region follows the AWS default-config resolution chain
// (env vars, shared config file) unless set explicitly; static credentials
// are used only when both AccessKey and SecretKey are non-empty.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // non-empty for S3-compatible services (MinIO, R2)
	AccessKey string
	SecretKey string
}

// S3Source lists and fetches documents from an S3 (or S3-compatible)
// bucket, treating every supported-extension object under Prefix as one
// ingestible document.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source builds an S3Source from cfg, resolving AWS credentials
// through the standard SDK default chain unless static keys are given.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

func (s *S3Source) Enumerate(ctx context.Context, out chan<- DocumentRef) error {
	defer close(out)

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list s3://%s/%s: %w", s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !SupportedExt(strings.ToLower(path.Ext(key))) {
				continue
			}
			select {
			case out <- DocumentRef{DisplayName: path.Base(key), opaque: key}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

func (s *S3Source) Fetch(ctx context.Context, ref DocumentRef) (Fetched, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.opaque),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return Fetched{}, fmt.Errorf("fetch s3://%s/%s: %w", s.bucket, ref.opaque, os.ErrNotExist)
		}
		return Fetched{}, fmt.Errorf("fetch s3://%s/%s: %w", s.bucket, ref.opaque, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return Fetched{}, fmt.Errorf("read s3://%s/%s: %w", s.bucket, ref.opaque, err)
	}

	return Fetched{
		Bytes:       data,
		Mime:        aws.ToString(result.ContentType),
		DisplayName: ref.DisplayName,
		Cleanup:     func() {},
	}, nil
}

func isNoSuchKey(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}
