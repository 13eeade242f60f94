// Package storage keeps crate artifacts in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/joaopapereira/crates.io/internal/common"
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Options configures the S3 client.
type Options struct {
	Region       string
	User         string
	Password     string
	Bucket       string
	BaseEndpoint string
	// LinkExpiry bounds the lifetime of download links.
	LinkExpiry time.Duration
}

// Store uploads, deletes and links crate artifacts.
type Store struct {
	objects objectAPI
	presign presignAPI
	bucket  string
	expiry  time.Duration
}

// NewS3Store builds a Store with static credentials against opts.BaseEndpoint
// (MinIO or any S3-compatible service).
func NewS3Store(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.User,
			opts.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newStore(client, s3.NewPresignClient(client), opts.Bucket, opts.LinkExpiry), nil
}

func newStore(objects objectAPI, presign presignAPI, bucket string, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Store{objects: objects, presign: presign, bucket: bucket, expiry: expiry}
}

// Key returns the object key of a crate version.
func Key(name, vers string) string {
	return fmt.Sprintf("crates/%s/%s-%s.crate", name, name, vers)
}

// Upload stores body under the crate's key and returns its SHA-256 together
// with an armed Bomb that deletes the object again.
func (s *Store) Upload(ctx context.Context, name, vers string, body []byte, maxSize int64) ([]byte, *Bomb, error) {
	if int64(len(body)) > maxSize {
		return nil, nil, common.HumanKind(common.ErrUploadTooLarge, "max upload size is: %d", maxSize)
	}

	sum := sha256.Sum256(body)
	key := Key(name, vers)

	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/x-tar"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("put %s: %w", key, err)
	}

	bomb := NewBomb(key, func(ctx context.Context) error {
		_, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
	return sum[:], bomb, nil
}

// LocationFor returns a time-limited download link for the crate version,
// or "" when no artifact is stored for it.
func (s *Store) LocationFor(ctx context.Context, name, vers string) (string, error) {
	key := Key(name, vers)

	_, err := s.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return "", nil
		}
		return "", fmt.Errorf("head %s: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
