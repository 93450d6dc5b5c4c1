package service

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// ── JSON 提取 ──────────────────────────────────────────────
//
// 模型回复不保证是纯 JSON，可能夹带说明文字或 Markdown 代码块。
// 按可信度依次尝试三级策略：
//   1. direct     整段文本直接解析
//   2. fenced     ``` 代码块（可带 json 标记）内部
//   3. brace_scan 按括号深度配对扫描出的顶层 {...} 片段，从左到右取第一个可解析的；
//      不进入片段内部，遇到未闭合的 '{' 即停止
// 三级均失败时返回 *ExtractionError（errors.Is 匹配 ErrNoJSONFound）。
//
// 已知局限：说明文字本身若恰好是一段合法 JSON 对象，brace_scan 会取到它；
// 说明文字中出现未配对的 '{' 时，其后的对象无法恢复。
// ─────────────────────────────────────────────────────────────

// ErrNoJSONFound 模型回复中无法恢复出 JSON 对象
var ErrNoJSONFound = errors.New("无法将模型响应解析为 JSON")

// ExtractionError 提取失败，携带原始回复便于排查
type ExtractionError struct {
	Raw string
}

func (e *ExtractionError) Error() string { return ErrNoJSONFound.Error() }

func (e *ExtractionError) Unwrap() error { return ErrNoJSONFound }

// ExtractTier 命中的提取策略
type ExtractTier string

const (
	TierDirect    ExtractTier = "direct"
	TierFenced    ExtractTier = "fenced"
	TierBraceScan ExtractTier = "brace_scan"
)

// ExtractResult 提取结果：恢复出的 JSON 对象与命中的策略
type ExtractResult struct {
	Object map[string]interface{}
	Tier   ExtractTier
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:[jJ][sS][oO][nN])?[ \\t]*\\r?\\n?(.*?)```")

// Extract 从模型回复中恢复 JSON 对象（纯函数）
func Extract(text string) (*ExtractResult, error) {
	if obj, ok := parseObject(text); ok {
		return &ExtractResult{Object: obj, Tier: TierDirect}, nil
	}

	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		if obj, ok := parseObject(m[1]); ok {
			return &ExtractResult{Object: obj, Tier: TierFenced}, nil
		}
	}

	for pos := 0; pos < len(text); {
		off := strings.IndexByte(text[pos:], '{')
		if off < 0 {
			break
		}
		start := pos + off
		end := matchBrace(text, start)
		if end < 0 {
			// 未闭合：之后的 '{' 都嵌套在它内部（多为截断的回复）
			break
		}
		if obj, ok := parseObject(text[start : end+1]); ok {
			return &ExtractResult{Object: obj, Tier: TierBraceScan}, nil
		}
		pos = end + 1
	}

	return nil, &ExtractionError{Raw: text}
}

// parseObject 严格解析：必须恰好是一个 JSON 对象，允许首尾空白
func parseObject(s string) (map[string]interface{}, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// matchBrace 返回与 text[start] 处 '{' 配对的 '}' 下标，未配对返回 -1
// JSON 字符串字面量内的括号与转义引号不参与计数
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
