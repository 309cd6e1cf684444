package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"archivist/internal/archivist"
	"archivist/internal/model"
)

// defaultS3Timeout bounds each S3 call.
const defaultS3Timeout = 60 * time.Second

// S3Options configures an S3Store.
type S3Options struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string // optional, for S3-compatible services
	// UsePathStyle addresses the bucket in the path instead of the host name.
	UsePathStyle bool
	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
}

// S3Store keeps each entry's files as objects under <prefix>/<location>/<file>.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
	timeout  time.Duration
}

// NewS3Store loads AWS configuration and creates a store for the bucket.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultS3Timeout
	}

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   strings.Trim(opts.Prefix, "/"),
		timeout:  timeout,
	}, nil
}

func (s *S3Store) key(id int, file string) string {
	if s.prefix == "" {
		return objectPath(id, file)
	}
	return s.prefix + "/" + objectPath(id, file)
}

func (s *S3Store) put(key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// get returns the object body, or archivist.ErrNotFound if the key does not exist.
func (s *S3Store) get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, archivist.ErrNotFound)
		}
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// LoadMetadata fetches and decodes metadata.yml. Returns nil, nil if the object does not exist.
func (s *S3Store) LoadMetadata(id int) (*model.FetchMetadata, error) {
	data, err := s.get(s.key(id, archivist.MetadataFile))
	if errors.Is(err, archivist.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("entry %d: %w", id, err)
	}
	return meta, nil
}

// SaveMetadata uploads metadata.yml.
func (s *S3Store) SaveMetadata(id int, meta *model.FetchMetadata) error {
	data, err := encodeMetadata(meta)
	if err != nil {
		return err
	}
	return s.put(s.key(id, archivist.MetadataFile), data, "application/yaml")
}

// SaveContent uploads content.html.
func (s *S3Store) SaveContent(id int, content []byte) error {
	return s.put(s.key(id, archivist.ContentFile), content, "text/html")
}

// LoadContent downloads content.html.
func (s *S3Store) LoadContent(id int) ([]byte, error) {
	return s.get(s.key(id, archivist.ContentFile))
}

// HasContent checks for content.html with a HEAD request.
func (s *S3Store) HasContent(id int) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := s.key(id, archivist.ContentFile)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("checking s3://%s/%s: %w", s.bucket, key, err)
}

// SaveRendition uploads content.<format>.
func (s *S3Store) SaveRendition(id int, format string, data []byte) error {
	contentType := "text/plain; charset=utf-8"
	if format == "md" {
		contentType = "text/markdown; charset=utf-8"
	}
	return s.put(s.key(id, archivist.RenditionFile(format)), data, contentType)
}

// Describe returns the s3:// address of the entry's location.
func (s *S3Store) Describe(id int) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, strings.TrimSuffix(s.key(id, ""), "/"))
}

// Compile-time check that S3Store implements archivist.ArchiveStore
var _ archivist.ArchiveStore = (*S3Store)(nil)
