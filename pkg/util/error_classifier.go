package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
)

// ClassifyError 把错误归类为一个简短标签，用于日志和指标
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	// Context 超时/取消要先于网络错误判断，url.Error 也会包装它们
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "context_canceled"
	}

	// JSON 错误 - 数据格式问题
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "json_decode_error"
	}

	// URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "network_timeout"
		}
		return "network_error"
	}

	// Network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "network_timeout"
		}
		return "network_error"
	}

	return "unknown_error"
}
