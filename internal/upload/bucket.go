package upload

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// regionless regions take a CreateBucket call without a location constraint.
const regionless = "us-east-1"

// EnsureBucket makes sure the bucket exists, creating it with a public-read
// policy when the probe reports it missing. It is idempotent; concurrent
// callers in this process share one provisioning attempt and a concurrent
// creation elsewhere counts as success.
func (s *Service) EnsureBucket(ctx context.Context) error {
	ch := s.provision.DoChan(s.opts.Bucket, func() (any, error) {
		return nil, s.ensureBucket(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &UploadError{Op: "ensure bucket", Err: ctx.Err()}
	}
}

func (s *Service) ensureBucket(ctx context.Context) error {
	bucket := s.opts.Bucket
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return &UploadError{Op: "check bucket", Err: err}
	}

	s.logger.Info("bucket not found, creating", "bucket", bucket, "region", s.opts.Region)
	in := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if s.opts.Region != "" && s.opts.Region != regionless {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.opts.Region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, in); err != nil {
		if isAlreadyExists(err) {
			s.logger.Info("bucket created concurrently", "bucket", bucket)
			return nil
		}
		return &UploadError{Op: "create bucket", Err: err}
	}

	policy, err := publicReadPolicy(bucket)
	if err != nil {
		return &UploadError{Op: "build bucket policy", Err: err}
	}
	if _, err := s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(policy),
	}); err != nil {
		return &UploadError{Op: "put bucket policy", Err: err}
	}
	s.logger.Info("bucket created", "bucket", bucket)
	return nil
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string   `json:"Sid"`
	Effect    string   `json:"Effect"`
	Principal string   `json:"Principal"`
	Action    []string `json:"Action"`
	Resource  []string `json:"Resource"`
}

func publicReadPolicy(bucket string) (string, error) {
	b, err := json.Marshal(policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "AllowPublicRead",
			Effect:    "Allow",
			Principal: "*",
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/*"},
		}},
	})
	return string(b), err
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noBucket) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

func isAlreadyExists(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	if errors.As(err, &owned) || errors.As(err, &exists) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return true
		}
	}
	return false
}
