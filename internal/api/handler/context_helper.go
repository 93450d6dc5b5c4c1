package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// uploadFieldName 上传表单字段名
const uploadFieldName = "file"

var (
	errNoFile       = errors.New("未提供文件")
	errBodyTooLarge = errors.New("上传文件过大")
)

// GetUploadFile 从 multipart 表单中提取上传文件头
// 请求体超出 BodyLimit 时返回 errBodyTooLarge，缺少字段时返回 errNoFile
func GetUploadFile(c *gin.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(uploadFieldName)
	if err == nil {
		return fh, nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
		return nil, errBodyTooLarge
	}
	return nil, errNoFile
}
