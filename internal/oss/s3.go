package oss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scene-swap/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadTimeout = 60 * time.Second

// S3Client S3 兼容的 OSS 客户端实现
type S3Client struct {
	client     *s3.Client
	presign    *s3.PresignClient
	httpClient *http.Client
	endpoint   string // 不含协议的主机名
	region     string
}

// S3Config S3 客户端配置
type S3Config struct {
	Endpoint  string // 例如 s3.amazonaws.com 或 oss-cn-hangzhou.aliyuncs.com，可带 https://
	Region    string
	AccessKey string
	SecretKey string
}

// NewS3Client 创建新的 S3 客户端
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://"), "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String("https://" + endpoint)
		}
	})

	return &S3Client{
		client:     client,
		presign:    s3.NewPresignClient(client),
		httpClient: &http.Client{Timeout: uploadTimeout},
		endpoint:   endpoint,
		region:     cfg.Region,
	}, nil
}

// PutObject 上传对象。
// 阿里云 OSS 不支持 SDK 默认的 aws-chunked 编码，改用预签名 PUT URL 上传。
func (c *S3Client) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	fields := map[string]interface{}{
		"bucket":       bucket,
		"key":          key,
		"content_type": contentType,
		"size":         len(body),
	}
	common.WithFields(fields).Debug("Starting object upload")

	var err error
	if strings.Contains(c.endpoint, ".aliyuncs.com") {
		err = c.putPresigned(ctx, bucket, key, body, contentType)
	} else {
		_, err = c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(contentType),
		})
	}
	if err != nil {
		common.WithError(err).WithFields(fields).Error("Failed to upload object")
		return fmt.Errorf("failed to upload object: %w", err)
	}

	common.WithFields(fields).Info("Object uploaded")
	return nil
}

func (c *S3Client) putPresigned(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	presigned, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to presign PUT URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for k, values := range presigned.SignedHeader {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status code %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// ObjectURL 构造对象的公开 URL
func (c *S3Client) ObjectURL(bucket, key string) string {
	return objectURL(c.endpoint, c.region, bucket, key)
}

func objectURL(endpoint, region, bucket, key string) string {
	if endpoint != "" {
		return fmt.Sprintf("https://%s.%s/%s", bucket, endpoint, key)
	}
	if region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}
