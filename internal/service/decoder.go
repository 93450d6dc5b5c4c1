package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecodeFailed 上传内容不是可解码的图片或表格
var ErrDecodeFailed = errors.New("文件解码失败")

// ── 图片 ──

// EncodeImageDataURI 解码任意支持格式的图片，统一转为 PNG 并编码为 data URI
// 支持 PNG / JPEG / GIF / BMP / TIFF / WebP
func EncodeImageDataURI(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("%w: 无法识别的图片: %w", ErrDecodeFailed, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: PNG 编码失败: %w", ErrDecodeFailed, err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ── 表格 ──

// SpreadsheetToText 读取活动工作表，跳过整行为空的行，按行输出制表符分隔文本
// 返回文本与有效行数
func SpreadsheetToText(r io.Reader) (string, int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", 0, fmt.Errorf("%w: 无法解析 Excel 文件: %w", ErrDecodeFailed, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return "", 0, fmt.Errorf("%w: 读取工作表失败: %w", ErrDecodeFailed, err)
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		lines = append(lines, strings.Join(row, "\t"))
	}
	if len(lines) == 0 {
		return "", 0, fmt.Errorf("%w: 工作表 %q 中没有数据", ErrDecodeFailed, sheetName)
	}

	return strings.Join(lines, "\n"), len(lines), nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
