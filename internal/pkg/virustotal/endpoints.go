package virustotal

import (
	"fmt"
	"net/url"
	"strconv"
)

// Kind 查询对象类型
type Kind string

const (
	KindURL    Kind = "url"
	KindFile   Kind = "file"
	KindIP     Kind = "ip"
	KindDomain Kind = "domain"
)

// Kinds 所有支持的对象类型
var Kinds = []Kind{KindURL, KindFile, KindIP, KindDomain}

// ParseKind 解析对象类型
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown subject kind: %s", s)
}

// Collection 返回对象类型对应的API集合名
func (k Kind) Collection() string {
	switch k {
	case KindURL:
		return "urls"
	case KindFile:
		return "files"
	case KindIP:
		return "ip_addresses"
	case KindDomain:
		return "domains"
	default:
		return string(k)
	}
}

// pathID URL标识需要先编码，其余标识做路径转义
func pathID(kind Kind, id string) string {
	if kind == KindURL {
		return EncodeURLID(id)
	}
	return url.PathEscape(id)
}

// ObjectPath 对象报告路径，如 /files/{hash}
func ObjectPath(kind Kind, id string) string {
	return "/" + kind.Collection() + "/" + pathID(kind, id)
}

// RelationshipPath 关系数据路径，如 /domains/{domain}/subdomains
func RelationshipPath(kind Kind, id, relationship string) string {
	return ObjectPath(kind, id) + "/" + url.PathEscape(relationship)
}

// RelationshipQuery 带分页参数的关系数据路径
func RelationshipQuery(kind Kind, id, relationship string, limit int, cursor string) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	return RelationshipPath(kind, id, relationship) + "?" + params.Encode()
}

// AnalysesPath URL分析结果路径
func AnalysesPath(analysisID string) string {
	return "/analyses/" + url.PathEscape(analysisID)
}

// SubmitURLPath URL提交路径
const SubmitURLPath = "/urls"
