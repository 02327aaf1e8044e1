package oss

import (
	"context"
	"fmt"

	"scene-swap/common"
	"scene-swap/internal/utils"
)

// Archiver 把生成结果上传到存储桶，路径为 images/yyyy-MM-dd/{uuid}_{ts}_{rand}.ext
type Archiver struct {
	store  ObjectStore
	bucket string
}

func NewArchiver(store ObjectStore, bucket string) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Archiver{store: store, bucket: bucket}, nil
}

// Archive 上传 data URI 中的图片，返回对象 URL
func (a *Archiver) Archive(ctx context.Context, dataURI string) (string, error) {
	mimeType, data, err := utils.ParseDataURI(dataURI)
	if err != nil {
		return "", err
	}

	key := utils.GenerateImagePath() + utils.GenerateImageFileName(mimeType)
	if err := a.store.PutObject(ctx, a.bucket, key, data, mimeType); err != nil {
		return "", fmt.Errorf("failed to upload image to OSS: %w", err)
	}

	url := a.store.ObjectURL(a.bucket, key)
	common.WithFields(map[string]interface{}{
		"bucket": a.bucket,
		"key":    key,
		"url":    url,
	}).Info("Generated image archived")
	return url, nil
}
