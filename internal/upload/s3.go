package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig selects the S3 endpoint and credentials.
type ClientConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint points the client at an S3-compatible service instead of AWS.
	Endpoint     string
	UsePathStyle bool
}

// NewS3Client builds a client from cfg. Without static keys the default AWS
// credential chain applies.
func NewS3Client(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// NewFromConfig wires a Service to a real S3 client.
func NewFromConfig(ctx context.Context, cfg ClientConfig, opts Options) (*Service, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if opts.Region == "" {
		opts.Region = cfg.Region
	}
	if opts.PublicBaseURL == "" && cfg.Endpoint != "" && cfg.UsePathStyle {
		opts.PublicBaseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + opts.Bucket
	}
	return New(client, s3.NewPresignClient(client), opts), nil
}
