package virustotal

import (
	"encoding/base64"
	"strings"
)

// EncodeURLID 将原始URL编码为 VirusTotal 的URL标识
// URL安全的base64，去掉末尾的 '='
func EncodeURLID(rawURL string) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(rawURL)), "=")
}

// DecodeURLID 还原 EncodeURLID 的结果
func DecodeURLID(id string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(id, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
