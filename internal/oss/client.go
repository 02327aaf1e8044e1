package oss

import (
	"context"

	"scene-swap/common"
)

// NewArchiverFromConfig 从配置创建归档器，未配置 OSS_BUCKET 时返回 nil
func NewArchiverFromConfig(ctx context.Context, cfg *common.Config) (*Archiver, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}

	client, err := NewS3Client(ctx, S3Config{
		Endpoint:  cfg.OSSEndpoint,
		Region:    cfg.OSSRegion,
		AccessKey: cfg.OSSAccessKey,
		SecretKey: cfg.OSSSecretKey,
	})
	if err != nil {
		return nil, err
	}
	return NewArchiver(client, cfg.OSSBucket)
}
