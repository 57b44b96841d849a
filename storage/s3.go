package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

const minMultipartSize = 12 << 20

// S3Backend stores objects in a single S3 (or S3-compatible) bucket. Sibling
// links and the metadata URL travel along as object metadata so batches can
// be reconstructed from the bucket alone.
type S3Backend struct {
	C      *s3.Client
	Bucket *string
}

func NewS3Backend() (*S3Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("s3.access_key_id"),
			viper.GetString("s3.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("s3.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.Region = viper.GetString("s3.region")
		if endpoint := viper.GetString("s3.endpoint"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Backend{
		C:      client,
		Bucket: bucket,
	}, nil
}

func (b *S3Backend) put(ctx context.Context, obj Object) error {
	if err := obj.Validate(); err != nil {
		return fmt.Errorf("invalid object, %w", err)
	}

	size, err := obj.Reader.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to size object, %w", err)
	}
	if _, err := obj.Reader.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind object, %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        b.Bucket,
		Key:           aws.String(obj.Key),
		Body:          obj.Reader,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(obj.MIMEType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		Metadata:      objectMetadata(obj),
	}
	if obj.ContentDisposition != "" {
		input.ContentDisposition = aws.String(obj.ContentDisposition)
	}

	if size > minMultipartSize {
		uploader := manager.NewUploader(b.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})
		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = b.C.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload object to S3, %w", err)
	}
	return nil
}

func objectMetadata(obj Object) map[string]string {
	md := map[string]string{}
	if len(obj.Links) > 0 {
		md["driftbin-links"] = strings.Join(obj.Links, "; ")
	}
	if obj.MetadataURL != "" {
		md["driftbin-metadata"] = obj.MetadataURL
	}
	return md
}

func (b *S3Backend) StoreObject(ctx context.Context, obj Object) error {
	return b.put(ctx, obj)
}

// S3 serves the stored content type per object, so HTML needs no special
// handling beyond its text/html mimetype.
func (b *S3Backend) StoreHTML(ctx context.Context, obj Object) error {
	return b.put(ctx, obj)
}
