package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewAWSClient builds an S3 client plus a presign client against any
// S3-compatible endpoint (path-style, static credentials).
func NewAWSClient(endpoint, region, accessKey, secretKey string) (*s3.Client, *s3.PresignClient, error) {
	cfg, err := config.LoadDefaultConfig(
		context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				accessKey,
				secretKey,
				"",
			),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load aws configuration: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = &endpoint
	})
	presignClient := s3.NewPresignClient(client)
	return client, presignClient, nil
}
