package workflow

import "strings"

// FailureKind 失败类型
type FailureKind string

const (
	FailureAbsence FailureKind = "absence" // 调用成功但没有返回图片
	FailureQuota   FailureKind = "quota"   // 配额或限流，需要更换凭据
	FailureGeneric FailureKind = "generic"
)

const (
	AbsenceMessage    = "Failed to generate image. The model might not have returned an image."
	QuotaMessage      = "Quota exceeded. Please select a paid API Key."
	UnexpectedMessage = "An unexpected error occurred."
)

// 错误信息中出现任一标记即视为配额错误
var quotaMarkers = []string{"429", "Quota", "quota", "RESOURCE_EXHAUSTED"}

// Failure 展示给用户的错误
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Absence 模型未返回图片
func Absence() Failure {
	return Failure{Kind: FailureAbsence, Message: AbsenceMessage}
}

// Classify 把交换流程返回的错误映射为用户可见的 Failure
func Classify(err error) Failure {
	if err == nil {
		return Failure{Kind: FailureGeneric, Message: UnexpectedMessage}
	}

	msg := err.Error()
	if IsQuotaError(msg) {
		return Failure{Kind: FailureQuota, Message: QuotaMessage}
	}
	if strings.TrimSpace(msg) == "" {
		return Failure{Kind: FailureGeneric, Message: UnexpectedMessage}
	}
	return Failure{Kind: FailureGeneric, Message: msg}
}

// IsQuotaError 判断错误信息是否包含配额标记
func IsQuotaError(msg string) bool {
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
