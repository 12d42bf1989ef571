// Package r2client talks to Cloudflare R2 through the S3 API. It is used to
// fetch and publish dialogue model bundles: plain and conditional reads for
// ETag polling, conditional writes for the publish lock, and zstd helpers.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("r2client: object not found")

// Config holds R2 client configuration.
type Config struct {
	Endpoint    string // e.g. https://<account>.r2.cloudflarestorage.com
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// objectAPI is the subset of *s3.Client the package uses.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client provides bucket-scoped object operations.
type Client struct {
	api    objectAPI
	bucket string
}

// Object is a downloaded object. The caller must close Body.
type Object struct {
	Body         io.ReadCloser
	ETag         string
	Size         int64
	LastModified time.Time
}

// New creates a client using static credentials and path-style addressing.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("r2client: endpoint, credentials and bucket are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &Client{api: api, bucket: cfg.BucketName}, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string { return c.bucket }

// Download fetches key.
func (c *Client) Download(ctx context.Context, key string) (*Object, error) {
	obj, _, err := c.DownloadIfChanged(ctx, key, "")
	return obj, err
}

// DownloadIfChanged fetches key unless its ETag still equals etag, in which
// case it returns (nil, false, nil). An empty etag always downloads.
func (c *Client) DownloadIfChanged(ctx context.Context, key, etag string) (*Object, bool, error) {
	in := &s3.GetObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)}
	if etag != "" {
		in.IfNoneMatch = aws.String(quote(etag))
	}

	out, err := c.api.GetObject(ctx, in)
	switch {
	case err == nil:
	case isNotFound(err):
		return nil, false, ErrNotFound
	case etag != "" && hasStatus(err, http.StatusNotModified):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("r2client: download %q: %w", key, err)
	}

	obj := &Object{
		Body:         out.Body,
		ETag:         unquote(out.ETag),
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
	}
	return obj, true, nil
}

// HeadObject returns the current ETag of key.
func (c *Client) HeadObject(ctx context.Context, key string) (string, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("r2client: head %q: %w", key, err)
	}
	return unquote(out.ETag), nil
}

// Upload writes key unconditionally and returns the new ETag.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	etag, _, err := c.put(ctx, key, body, contentType, nil)
	if err != nil {
		return "", fmt.Errorf("r2client: upload %q: %w", key, err)
	}
	return etag, nil
}

// PutObjectIfNotExists writes key only when it does not exist yet.
// It reports false (and no error) when the object was already there.
func (c *Client) PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error) {
	etag, ok, err := c.put(ctx, key, body, contentType, func(in *s3.PutObjectInput) {
		in.IfNoneMatch = aws.String("*")
	})
	if err != nil {
		return false, "", fmt.Errorf("r2client: put if not exists %q: %w", key, err)
	}
	return ok, etag, nil
}

// PutObjectIfMatch replaces key only while its ETag still equals etag.
func (c *Client) PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error) {
	newETag, ok, err := c.put(ctx, key, body, contentType, func(in *s3.PutObjectInput) {
		in.IfMatch = aws.String(quote(etag))
	})
	if err != nil {
		return false, "", fmt.Errorf("r2client: put if match %q: %w", key, err)
	}
	return ok, newETag, nil
}

// put returns ok=false without error when a precondition failed.
func (c *Client) put(ctx context.Context, key string, body io.Reader, contentType string, cond func(*s3.PutObjectInput)) (string, bool, error) {
	in := &s3.PutObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key), Body: body}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if cond != nil {
		cond(in)
	}
	out, err := c.api.PutObject(ctx, in)
	if err != nil {
		if cond != nil && isPreconditionFailed(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return unquote(out.ETag), true, nil
}

// DeleteObject removes key. Deleting a missing key is not an error.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("r2client: delete %q: %w", key, err)
	}
	return nil
}

func quote(etag string) string {
	if strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}

func unquote(etag *string) string {
	return strings.Trim(aws.ToString(etag), `"`)
}

func hasStatus(err error, code int) bool {
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == code
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
		return true
	}
	return hasStatus(err, http.StatusPreconditionFailed)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return hasStatus(err, http.StatusNotFound)
}
