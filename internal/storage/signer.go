// Package storage wraps the blob-store collaborator. The service never
// reads or writes objects itself; it only exchanges validated asset
// keys for time-limited retrieval URLs.
package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Signer produces presigned GET URLs for protected assets. When no S3
// configuration is present the presign client is nil and Sign falls
// back to local upload paths, mirroring a dev deployment that serves
// files from disk.
type Signer struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
}

// Options carries the blob-store settings needed to build a Signer.
type Options struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKeyID    string
	SecretKey      string
	ForcePathStyle bool
	SignedURLTTL   time.Duration
}

// NewSigner builds a Signer. A zero Bucket (or missing credentials)
// yields a local-fallback signer rather than an error, so the service
// boots in environments without object storage.
func NewSigner(ctx context.Context, opts Options) (*Signer, error) {
	s := &Signer{bucket: opts.Bucket, ttl: opts.SignedURLTTL}
	if s.ttl <= 0 {
		s.ttl = 15 * time.Minute
	}
	if opts.Bucket == "" || opts.AccessKeyID == "" || opts.SecretKey == "" {
		return s, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretKey,
			"", // session token not used with static credentials
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})
	s.presign = s3.NewPresignClient(client)
	return s, nil
}

// Remote reports whether a presign client is configured.
func (s *Signer) Remote() bool { return s.presign != nil }

// Sign exchanges a validated object key for a retrieval URL. With a
// configured blob store this is a presigned GET with the configured
// TTL; otherwise it is the local uploads path the dev server exposes.
func (s *Signer) Sign(ctx context.Context, key string) (string, error) {
	if s.presign == nil {
		return "/uploads/" + key, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) {
		po.Expires = s.ttl
	})
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
