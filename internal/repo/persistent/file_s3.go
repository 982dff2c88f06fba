package persistent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/topautomaat/gallery-backend/pkg/s3client"
	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

// S3FileRepo keeps image files as objects in one bucket, optionally under a prefix.
type S3FileRepo struct {
	*s3client.S3Client
	prefix string
}

func NewS3FileRepo(s3c *s3client.S3Client, prefix string) *S3FileRepo {
	return &S3FileRepo{s3c, prefix}
}

func (r *S3FileRepo) objectKey(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	return r.prefix + key, nil
}

func (r *S3FileRepo) Write(ctx context.Context, key string, data []byte, contentType string) error {
	objKey, err := r.objectKey(key)
	if err != nil {
		return fmt.Errorf("S3FileRepo - Write - r.objectKey: %w", err)
	}

	_, err = r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.Bucket()),
		Key:           aws.String(objKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("S3FileRepo - Write - r.Client.PutObject: %w", err)
	}

	return nil
}

func (r *S3FileRepo) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	objKey, err := r.objectKey(key)
	if err != nil {
		return nil, fmt.Errorf("S3FileRepo - Read - r.objectKey: %w", err)
	}

	result, err := r.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket()),
		Key:    aws.String(objKey),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("S3FileRepo - Read: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("S3FileRepo - Read - r.Client.GetObject: %w", err)
	}

	return result.Body, nil
}

// Delete succeeds for missing objects, as S3 does.
func (r *S3FileRepo) Delete(ctx context.Context, key string) error {
	objKey, err := r.objectKey(key)
	if err != nil {
		return fmt.Errorf("S3FileRepo - Delete - r.objectKey: %w", err)
	}

	_, err = r.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.Bucket()),
		Key:    aws.String(objKey),
	})
	if err != nil {
		return fmt.Errorf("S3FileRepo - Delete - r.Client.DeleteObject: %w", err)
	}

	return nil
}
