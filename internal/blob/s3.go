package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 stores objects in one bucket. References are virtual-hosted style
// URLs under baseURL.
type S3 struct {
	client  S3API
	presign *s3.PresignClient
	bucket  string
	baseURL string
}

// NewS3 builds the store. An empty baseURL defaults to the bucket's public
// virtual-hosted endpoint.
func NewS3(client *s3.Client, bucket, baseURL string) *S3 {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *S3) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	key, err := s.KeyOf(ref)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (s *S3) Presign(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	key, err := s.KeyOf(ref)
	if err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return req.URL, nil
}

// KeyOf accepts both the public URL form and s3://bucket/key.
func (s *S3) KeyOf(ref string) (string, error) {
	if key, ok := strings.CutPrefix(ref, s.baseURL+"/"); ok && key != "" {
		return key, nil
	}
	if key, ok := strings.CutPrefix(ref, "s3://"+s.bucket+"/"); ok && key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: %s", ErrForeignRef, ref)
}
