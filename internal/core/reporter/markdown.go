/**
 * 分析报告格式化
 * @author: sun977
 * @date: 2025.10.21
 * @description: 将 VirusTotal 的分析属性与关系数据统一渲染为 markdown 文本
 */
package reporter

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// attrsPreviewLen 无 id 时属性预览的字符数
const attrsPreviewLen = 50

// Relationship 一条关系数据，Payload 为关系接口的原始响应
type Relationship struct {
	Name    string
	Payload gjson.Result
}

// Subject 待渲染的查询对象
type Subject struct {
	// Attributes 分析属性，不存在时不输出检测摘要
	Attributes gjson.Result
	// HasRelationships 为 true 时输出关系段落，即使 Relationships 为空
	HasRelationships bool
	// Relationships 按调用方顺序输出
	Relationships []Relationship
}

// Format 渲染分析报告
func Format(subject Subject, label string) string {
	lines := []string{"# " + TitleLabel(label) + " Analysis Report\n"}

	if subject.Attributes.Exists() {
		stats := subject.Attributes.Get("last_analysis_stats")
		if stats.Exists() {
			lines = append(lines,
				"**Detection Summary:**",
				"- Malicious: "+countText(stats.Get("malicious")),
				"- Suspicious: "+countText(stats.Get("suspicious")),
				"- Clean: "+countText(stats.Get("harmless")),
				"- Undetected: "+countText(stats.Get("undetected")),
				"",
			)
		}
	}

	if subject.HasRelationships {
		lines = append(lines, "**Relationship Data:**")
		for _, rel := range subject.Relationships {
			items := rel.Payload.Get("data")
			if !items.Exists() {
				continue
			}
			title := TitleCase(rel.Name)
			switch {
			case items.IsArray() && len(items.Array()) > 0:
				elems := items.Array()
				lines = append(lines, "- "+title+": "+strconv.Itoa(len(elems))+" items")
				for _, item := range elems {
					lines = append(lines, FormatItem(item))
				}
			case !items.IsArray() && truthy(items):
				lines = append(lines, "- "+title+": 1 item")
			}
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// FormatItem 渲染单个关系对象，按顺序匹配第一条规则
func FormatItem(item gjson.Result) string {
	switch typeName := item.Get("type"); {
	case isString(typeName, "domain"):
		return "  - Domain: " + orDefault(item.Get("id"), "Unknown")
	case isString(typeName, "ip_address"):
		return "  - IP: " + orDefault(item.Get("id"), "Unknown")
	case isString(typeName, "file"):
		return "  - File: " + orDefault(item.Get("id"), "Unknown")
	case isString(typeName, "url"):
		return "  - URL: " + orDefault(item.Get("id"), "Unknown")
	}

	attrs := item.Get("attributes")
	if attrs.Exists() {
		host, ip := attrs.Get("host_name"), attrs.Get("ip_address")
		if host.Exists() && ip.Exists() {
			return "  - " + text(host) + " → " + text(ip) +
				" (resolved " + orDefault(attrs.Get("date"), "unknown date") + ")"
		}
		if certID := attrs.Get("certificate_id"); certID.Exists() {
			return "  - SSL Cert: " + text(certID) +
				" (valid " + orDefault(attrs.Get("validity.not_before"), "unknown") +
				" - " + orDefault(attrs.Get("validity.not_after"), "unknown") + ")"
		}
		return "  - " + orDefault(item.Get("type"), "Unknown") + ": " +
			orDefault(item.Get("id"), preview(attrs))
	}

	return "  - " + orDefault(item.Get("type"), "Unknown") + ": " + orDefault(item.Get("id"), "Unknown")
}

// TitleCase 下划线转空格后每个单词首字母大写，如 contacted_domains -> Contacted Domains
func TitleCase(name string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

// TitleLabel 报告标题的大小写：每段连续字母首字母大写、其余小写，
// 下划线等非字母字符保留并作为分段，如 "URL contacted_domains" -> "Url Contacted_Domains"
func TitleLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	prevLetter := false
	for _, r := range label {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && prevLetter:
			b.WriteRune(unicode.ToLower(r))
		case isLetter:
			b.WriteRune(unicode.ToTitle(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}

// text 字符串取原值，其余取JSON原文
func text(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.Str
	}
	return r.Raw
}

func orDefault(r gjson.Result, def string) string {
	if !r.Exists() {
		return def
	}
	return text(r)
}

func countText(r gjson.Result) string {
	return orDefault(r, "0")
}

func isString(r gjson.Result, want string) bool {
	return r.Type == gjson.String && r.Str == want
}

// preview 紧凑JSON的前 attrsPreviewLen 个字符
func preview(attrs gjson.Result) string {
	compact := attrs.Get("@ugly").Raw
	if compact == "" {
		compact = attrs.Raw
	}
	if utf8.RuneCountInString(compact) <= attrsPreviewLen {
		return compact
	}
	return string([]rune(compact)[:attrsPreviewLen])
}

// truthy JSON值的真值：null/false/0/""/{}/[] 为假
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return r.Str != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		empty := true
		r.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return !empty
	}
	return false
}
