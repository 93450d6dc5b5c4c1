package errors

import "errors"

// ErrNotFound 记录不存在（仓储层通用错误，Service 层负责映射为业务错误）
var ErrNotFound = errors.New("记录不存在")
