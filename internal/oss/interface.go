package oss

import "context"

// ObjectStore S3 兼容的对象存储
type ObjectStore interface {
	// PutObject 上传对象
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error

	// ObjectURL 对象的公开访问 URL（不带签名）
	ObjectURL(bucket, key string) string
}
