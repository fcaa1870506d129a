package virustotal

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON 响应体不是合法的JSON
	ErrInvalidJSON = errors.New("invalid JSON in VirusTotal response")
	// ErrUnsupportedMethod 只支持 GET 与 POST
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")
)

// APIError VirusTotal 请求失败
// 传输失败时 StatusCode 为 0，Err 保存底层错误
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("VirusTotal API error: %s", e.Message)
	}
	return fmt.Sprintf("VirusTotal API error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
