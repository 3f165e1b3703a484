package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive implements Archive backed by S3

type S3Archive struct {
	bucket string
	prefix string
	s3     s3PutAPI
}

func NewS3Archive(s3Client *s3.Client, bucket, prefix string) *S3Archive {
	return newS3Archive(s3Client, bucket, prefix)
}

func newS3Archive(api s3PutAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{
		bucket: bucket,
		prefix: prefix,
		s3:     api,
	}
}

func (s *S3Archive) Save(ctx context.Context, key string, data []byte) error {
	name, err := objectName(key)
	if err != nil {
		return err
	}
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put optimizer response to S3: %w", err)
	}
	return nil
}
