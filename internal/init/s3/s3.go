package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config" // Используем псевдоним
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"log" // Стандартный log для этого пакета
	"os"
	"server/config"
	"strings"
)

// S3Storage содержит клиент и конфигурацию S3.
type S3Storage struct {
	Client *s3.Client
	Cfg    config.S3Config
}

// NewS3Storage инициализирует S3 клиент и проверяет/создает бакет архива.
func NewS3Storage(appS3Cfg config.S3Config) (*S3Storage, error) {
	accessKey := os.Getenv("S3_ACCESS_KEY")
	secretKey := os.Getenv("S3_SECRET_KEY")

	if accessKey == "" || secretKey == "" {
		return nil, errors.New("S3_ACCESS_KEY or S3_SECRET_KEY environment variables are not set")
	}

	log.Printf("S3 Init: Starting S3 client initialization for endpoint: %s, region: %s", appS3Cfg.Endpoint, appS3Cfg.Region)

	customResolver := aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			endpointURL := appS3Cfg.Endpoint
			if endpointURL != "" && !strings.HasPrefix(endpointURL, "http") {
				endpointURL = "https://" + endpointURL
			}
			return aws.Endpoint{
				URL:               endpointURL,
				HostnameImmutable: true,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	sdkLoadOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsConfig.WithRegion(appS3Cfg.Region),
		awsConfig.WithEndpointResolver(customResolver),
	}

	sdkCfg, err := awsConfig.LoadDefaultConfig(context.TODO(), sdkLoadOptions...)
	if err != nil {
		return nil, fmt.Errorf("S3 Init: failed to load AWS SDK config: %w", err)
	}

	storage := &S3Storage{
		Client: s3.NewFromConfig(sdkCfg),
		Cfg:    appS3Cfg,
	}

	if appS3Cfg.BucketAuditArchive != "" {
		if err := storage.ensureBucketExists(appS3Cfg.BucketAuditArchive); err != nil {
			log.Printf("S3 Init: Warning - Failed to ensure bucket '%s' is ready: %v. Audit archival might fail.", appS3Cfg.BucketAuditArchive, err)
		}
	}

	log.Println("S3 Init: S3 client initialization sequence finished.")
	return storage, nil
}

// ensureBucketExists проверяет и при необходимости создает бакет.
// Бакет архива приватный, публичные политики не применяются.
func (s *S3Storage) ensureBucketExists(bucketName string) error {
	_, err := s.Client.HeadBucket(context.TODO(), &s3.HeadBucketInput{Bucket: aws.String(bucketName)})
	if err == nil {
		log.Printf("S3 Bucket '%s': Already exists.", bucketName)
		return nil
	}

	var apiError interface{ ErrorCode() string }
	if errors.As(err, &apiError) {
		code := apiError.ErrorCode()
		if code != "NotFound" && code != "NoSuchBucket" {
			return fmt.Errorf("failed to check bucket '%s': %w", bucketName, err)
		}
	} else {
		return fmt.Errorf("failed to check bucket '%s': %w", bucketName, err)
	}

	log.Printf("S3 Bucket '%s': Not found, creating...", bucketName)
	input := &s3.CreateBucketInput{Bucket: aws.String(bucketName)}
	if s.Cfg.Region != "" && s.Cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.Cfg.Region),
		}
	}
	if _, err := s.Client.CreateBucket(context.TODO(), input); err != nil {
		return fmt.Errorf("failed to create bucket '%s': %w", bucketName, err)
	}
	log.Printf("S3 Bucket '%s': Created.", bucketName)
	return nil
}

// UploadObject кладет объект в бакет архива.
func (s *S3Storage) UploadObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Cfg.BucketAuditArchive),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object '%s': %w", key, err)
	}
	return nil
}
