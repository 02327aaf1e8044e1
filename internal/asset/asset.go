// Package asset 用户选择的图片以及把图片交给工作流控制器的上传槽
package asset

import (
	"fmt"
	"net/http"

	"scene-swap/internal/utils"
)

// ImageAsset 用户上传的图片，以 data URL 形式保存。创建后不再修改。
type ImageAsset struct {
	Name     string
	MIMEType string
	DataURL  string
	Size     int
}

// New 把原始字节编码为 ImageAsset。
// MIME 类型为空时按内容嗅探，除此之外不检查内容。
func New(name, mimeType string, data []byte) *ImageAsset {
	mimeType = utils.NormalizeMimeType(mimeType)
	if mimeType == "" {
		mimeType = utils.NormalizeMimeType(http.DetectContentType(data))
	}
	return &ImageAsset{
		Name:     name,
		MIMEType: mimeType,
		DataURL:  utils.EncodeDataURI(mimeType, data),
		Size:     len(data),
	}
}

// FromDataURI 直接包装已有的 data URI，不重新编码
func FromDataURI(name, dataURI string) (*ImageAsset, error) {
	mimeType, data, err := utils.ParseDataURI(dataURI)
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", name, err)
	}
	return &ImageAsset{
		Name:     name,
		MIMEType: mimeType,
		DataURL:  dataURI,
		Size:     len(data),
	}, nil
}

// Bytes 去掉 "data:<mime>;base64," 头部并解码出原始字节
func (a *ImageAsset) Bytes() ([]byte, error) {
	_, data, err := utils.ParseDataURI(a.DataURL)
	if err != nil {
		return nil, fmt.Errorf("read asset %q: %w", a.Name, err)
	}
	return data, nil
}
