// Package s3 provides a xar.RangeSource backed by ranged S3 GetObject calls.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/meigma/xar/internal/sizing"
	"github.com/meigma/xar/internal/xartype"
)

// API is the subset of the S3 client used by Source.
type API interface {
	HeadObject(ctx context.Context, in *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Source reads byte ranges of one S3 object.
type Source struct {
	ctx    context.Context
	client API
	bucket string
	key    string
	size   int64
	etag   string

	region    string
	endpoint  string
	pathStyle bool
	accessKey string
	secretKey string
}

// Option configures a Source.
type Option func(*Source)

// WithClient uses an existing S3 client instead of loading the default AWS configuration.
func WithClient(client API) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(s *Source) {
		s.region = region
	}
}

// WithEndpoint points the client at an S3-compatible endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *Source) {
		s.endpoint = endpoint
	}
}

// WithPathStyle addresses buckets as path segments, as most S3-compatible stores require.
func WithPathStyle(enabled bool) Option {
	return func(s *Source) {
		s.pathStyle = enabled
	}
}

// WithStaticCredentials uses a fixed access key pair instead of the default credential chain.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(s *Source) {
		s.accessKey = accessKey
		s.secretKey = secretKey
	}
}

// NewSource creates a Source for bucket/key. It issues one HeadObject call to
// learn the object size; ranged reads are pinned to the ETag it reports.
func NewSource(ctx context.Context, bucket, key string, opts ...Option) (*Source, error) {
	s := &Source{ctx: ctx, bucket: bucket, key: key}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		client, err := s.newClient(ctx)
		if err != nil {
			return nil, err
		}
		s.client = client
	}

	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: head s3://%s/%s: %w", xartype.ErrRemote, bucket, key, err)
	}
	if out.ContentLength == nil || *out.ContentLength < 0 {
		return nil, fmt.Errorf("%w: head s3://%s/%s: missing content length", xartype.ErrRemote, bucket, key)
	}
	s.size = *out.ContentLength
	s.etag = aws.ToString(out.ETag)
	return s, nil
}

// NewSourceFromURL creates a Source from an s3://bucket/key URL.
func NewSourceFromURL(ctx context.Context, rawURL string, opts ...Option) (*Source, error) {
	bucket, key, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return NewSource(ctx, bucket, key, opts...)
}

func (s *Source) newClient(ctx context.Context) (*awss3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if s.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(s.region))
	}
	if s.accessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.accessKey, s.secretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = s.pathStyle
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.endpoint)
		}
	}), nil
}

// Size returns the object size.
func (s *Source) Size() int64 {
	return s.size
}

// ReadRange returns exactly the bytes [off, off+length) of the object.
func (s *Source) ReadRange(off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("read range %d+%d: negative offset or length", off, length)
	}
	if length == 0 {
		return io.NopCloser(strings.NewReader("")), nil
	}
	if length > s.size-off {
		return nil, fmt.Errorf("%w: range %d+%d beyond object size %d", xartype.ErrShortRead, off, length, s.size)
	}

	in := &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, off+length-1)),
	}
	if s.etag != "" {
		in.IfMatch = aws.String(s.etag)
	}
	out, err := s.client.GetObject(s.ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%w: get s3://%s/%s range %d+%d: %w", xartype.ErrRemote, s.bucket, s.key, off, length, err)
	}
	return &bodyReader{body: out.Body, reader: sizing.ExactReader(out.Body, length)}, nil
}

// ParseURL splits an s3://bucket/key URL.
func ParseURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("parse s3 url %q: scheme must be s3", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.New("parse s3 url: bucket and key are required")
	}
	return u.Host, key, nil
}

// bodyReader limits a GetObject body to the requested length.
type bodyReader struct {
	body   io.ReadCloser
	reader io.Reader
}

func (b *bodyReader) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

func (b *bodyReader) Close() error {
	return b.body.Close()
}
