package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"bitbnb/hosting-api/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const (
	DefaultFilebaseEndpoint = "https://s3.filebase.com"

	minMultipartSize = 12 << 20
)

// Filebase pins files by writing them to an IPFS-backed S3 bucket. The CID is
// exposed by the service as the "cid" object metadata.
type Filebase struct {
	C              *s3.Client
	Bucket         *string
	ContentGateway string
}

type FilebaseOptions struct {
	AccessKey      string
	SecretKey      string
	Bucket         string
	Endpoint       string
	ContentGateway string
}

func NewFilebase(ctx context.Context, opts FilebaseOptions) (*Filebase, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	if opts.Endpoint == "" {
		opts.Endpoint = DefaultFilebaseEndpoint
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.Region = "us-east-1"
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	bucket := aws.String(opts.Bucket)

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", opts.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return NewFilebaseWithClient(client, opts.Bucket, opts.ContentGateway), nil
}

func NewFilebaseWithClient(c *s3.Client, bucket, contentGateway string) *Filebase {
	return &Filebase{
		C:              c,
		Bucket:         aws.String(bucket),
		ContentGateway: contentGateway,
	}
}

func (f *Filebase) Pin(ctx context.Context, file *File) (*Stored, error) {
	input := &s3.PutObjectInput{
		Bucket:        f.Bucket,
		Key:           aws.String(file.Name),
		Body:          bytes.NewReader(file.Data),
		ContentLength: aws.Int64(int64(len(file.Data))),
		Metadata: map[string]string{
			"project":  file.ProjectName,
			"username": file.Username,
		},
	}

	var err error
	if len(file.Data) > minMultipartSize {
		uploader := manager.NewUploader(f.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})

		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = f.C.PutObject(ctx, input)
	}
	if err != nil {
		return nil, classifyS3Error("upload", err)
	}

	head, err := f.C.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: f.Bucket,
		Key:    input.Key,
	})
	if err != nil {
		return nil, classifyS3Error("head", err)
	}

	cid := head.Metadata["cid"]
	if cid == "" {
		zap.L().Error("Pinned object has no cid metadata", zap.String("key", file.Name))
		return nil, fmt.Errorf("%w: object has no cid", ErrGatewayUnavailable)
	}

	return &Stored{
		CID:    cid,
		Link:   model.ContentLink(f.ContentGateway, cid),
		Pinned: true,
	}, nil
}

func classifyS3Error(op string, err error) error {
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 400 && respErr.HTTPStatusCode() < 500 {
		return fmt.Errorf("%w: %s failed, %w", ErrGatewayRejected, op, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
		return fmt.Errorf("%w: %s failed, %w", ErrGatewayRejected, op, err)
	}

	zap.L().Error("Filebase request failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %s failed, %w", ErrGatewayUnavailable, op, err)
}
