// Package source loads fixture markup for the bore CLI and server.
//
// A source is a file path, "-" for stdin, an http(s) URL or an
// s3://bucket/key object.
package source

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/vango-dev/bore/internal/config"
	"github.com/vango-dev/bore/internal/errors"
)

// DefaultMaxSize caps how many bytes a source may return.
const DefaultMaxSize = 8 << 20

// Kind classifies a source string.
type Kind string

const (
	KindFile  Kind = "file"
	KindStdin Kind = "stdin"
	KindHTTP  Kind = "http"
	KindS3    Kind = "s3"
)

// S3API is the subset of the S3 client the loader uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads fixture markup from any supported source.
type Loader struct {
	stdin   io.Reader
	http    *http.Client
	s3      S3API
	maxSize int64
	logger  *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithStdin sets the reader used for "-".
func WithStdin(r io.Reader) Option {
	return func(l *Loader) { l.stdin = r }
}

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.http = c }
}

// WithS3Client sets the client used for s3:// sources.
func WithS3Client(c S3API) Option {
	return func(l *Loader) { l.s3 = c }
}

// WithMaxSize caps the size of a loaded source. Zero means no limit.
func WithMaxSize(n int64) Option {
	return func(l *Loader) { l.maxSize = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// New creates a Loader. Without WithS3Client, s3:// sources fail.
func New(opts ...Option) *Loader {
	l := &Loader{
		stdin:   os.Stdin,
		http:    &http.Client{Timeout: 30 * time.Second},
		maxSize: DefaultMaxSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromConfig creates a Loader with the HTTP timeout and S3 client from cfg.
func FromConfig(cfg config.SourceConfig, opts ...Option) *Loader {
	base := []Option{WithS3Client(NewS3Client(cfg.S3))}
	if cfg.HTTPTimeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout.D()}))
	}
	return New(append(base, opts...)...)
}

// NewS3Client builds an S3 client from cfg. Credentials come from the
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN
// variables; without them requests are anonymous.
func NewS3Client(cfg config.S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: cfg.PathStyle,
		Credentials:  envCredentials(),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	token := os.Getenv("AWS_SESSION_TOKEN")
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    token,
			Source:          "environment",
		}, nil
	})
}

// Classify returns the kind of src.
func Classify(src string) (Kind, error) {
	switch {
	case src == "-":
		return KindStdin, nil
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return KindHTTP, nil
	case strings.HasPrefix(src, "s3://"):
		return KindS3, nil
	case strings.Contains(src, "://"):
		return "", errors.New("B042").WithDetail("Unsupported scheme in " + src)
	}
	return KindFile, nil
}

// Load reads src.
func (l *Loader) Load(ctx context.Context, src string) ([]byte, error) {
	kind, err := Classify(src)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loading source", "src", src, "kind", kind)

	switch kind {
	case KindStdin:
		return l.read(l.stdin, src)
	case KindHTTP:
		return l.loadHTTP(ctx, src)
	case KindS3:
		return l.loadS3(ctx, src)
	}
	return l.loadFile(src)
}

// LoadString is Load returning a string.
func (l *Loader) LoadString(ctx context.Context, src string) (string, error) {
	data, err := l.Load(ctx, src)
	return string(data), err
}

func (l *Loader) loadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("B040").Wrap(err)
		}
		return nil, errors.New("B041").Wrap(err)
	}
	defer f.Close()
	return l.read(f, path)
}

func (l *Loader) loadHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.New("B042").Wrap(err)
	}
	req.Header.Set("Accept", "text/html, */*;q=0.5")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, errors.New("B041").Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New("B040").WithDetail(rawURL + " returned " + resp.Status)
	case resp.StatusCode >= 300:
		return nil, errors.New("B041").WithDetail(rawURL + " returned " + resp.Status)
	}
	return l.read(resp.Body, rawURL)
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" {
		return "", "", errors.New("B042").WithDetail("Not an s3:// URL: " + raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.New("B042").
			WithDetail("S3 sources need a bucket and a key").
			WithExample("bore query s3://fixtures/pages/home.html 'main h1'")
	}
	return u.Host, key, nil
}

func (l *Loader) loadS3(ctx context.Context, raw string) ([]byte, error) {
	bucket, key, err := ParseS3URL(raw)
	if err != nil {
		return nil, err
	}
	if l.s3 == nil {
		return nil, errors.New("B042").WithDetail("No S3 client configured")
	}

	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if stderrors.As(err, &nsk) {
			return nil, errors.New("B040").Wrap(err)
		}
		return nil, errors.New("B041").Wrap(fmt.Errorf("s3 get %s/%s: %w", bucket, key, err))
	}
	defer out.Body.Close()

	if l.maxSize > 0 && out.ContentLength != nil && *out.ContentLength > l.maxSize {
		return nil, tooLarge(raw, l.maxSize)
	}
	return l.read(out.Body, raw)
}

func (l *Loader) read(r io.Reader, name string) ([]byte, error) {
	var buf bytes.Buffer
	if l.maxSize > 0 {
		n, err := io.Copy(&buf, io.LimitReader(r, l.maxSize+1))
		if err != nil {
			return nil, errors.New("B041").Wrap(err)
		}
		if n > l.maxSize {
			return nil, tooLarge(name, l.maxSize)
		}
		return buf.Bytes(), nil
	}
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, errors.New("B041").Wrap(err)
	}
	return buf.Bytes(), nil
}

func tooLarge(name string, limit int64) *errors.BoreError {
	return errors.New("B041").WithDetail(fmt.Sprintf("%s is larger than %d bytes", name, limit))
}
