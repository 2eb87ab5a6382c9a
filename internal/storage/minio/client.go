// Package minio stores image blobs in an S3-compatible bucket through
// minio-go. Objects are written under "<folder>/<xid><ext>" and addressed by
// a public base URL, so the returned URL stays valid for as long as the
// object exists.
package minio

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/xid"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/storage"
)

// minioAPI is the subset of *minio.Client the store uses. Tests substitute a
// fake so no MinIO server is needed.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// minioClientWrapper adapts *minio.Client to minioAPI.
type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) SetBucketPolicy(ctx context.Context, bucketName, policy string) error {
	return w.c.SetBucketPolicy(ctx, bucketName, policy)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

var _ storage.BlobStore = (*Client)(nil)

// Options configures a Client.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base that object URLs are built on, e.g. a CDN in
	// front of the bucket. Defaults to the endpoint itself.
	PublicURL string
}

type Client struct {
	api       minioAPI
	bucket    string
	publicURL string
}

// NewClient connects to the endpoint in opts and makes sure the bucket exists
// and is publicly readable.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: creating client: %w", err)
	}

	publicURL := opts.PublicURL
	if publicURL == "" {
		scheme := "http"
		if opts.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + opts.Endpoint
	}

	return NewClientWithAPI(ctx, minioClientWrapper{c: mc}, opts.Bucket, publicURL)
}

// NewClientWithAPI allows injecting a fake API (used in tests).
func NewClientWithAPI(ctx context.Context, api minioAPI, bucket, publicURL string) (*Client, error) {
	c := &Client{
		api:       api,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}

	if err := c.ensureBucketExists(ctx); err != nil {
		return nil, fmt.Errorf("minio: failed to ensure bucket exists: %w", err)
	}

	return c, nil
}

// ensureBucketExists creates the bucket if it doesn't exist and opens it for
// anonymous reads. Image URLs are handed to browsers as-is.
func (c *Client) ensureBucketExists(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := c.api.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	if err := c.api.SetBucketPolicy(ctx, c.bucket, publicReadPolicy(c.bucket)); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}

	return nil
}

// Put streams obj.Body into the bucket and returns its public URL.
// Nothing is buffered locally; with an unknown size minio-go falls back to a
// multipart upload.
func (c *Client) Put(ctx context.Context, obj storage.Object) (string, error) {
	key := objectKey(obj.Folder, obj.Filename)

	size := obj.Size
	if size <= 0 {
		size = -1
	}

	_, err := c.api.PutObject(ctx, c.bucket, key, obj.Body, size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio: uploading %s: %w", key, apperror.Unavailable("blob store", err))
	}

	return c.publicURL + "/" + c.bucket + "/" + key, nil
}

// objectKey builds a collision-free key. The caller's filename only
// contributes its extension; the rest is an xid.
func objectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	key := xid.New().String() + ext
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}
