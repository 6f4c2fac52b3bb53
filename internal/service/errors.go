package service

import "errors"

// 业务层通用错误，handler 根据错误类型映射到合适的 HTTP 状态码。
var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrChannelNameTaken   = errors.New("channel name taken")
	ErrChannelNotFound    = errors.New("channel not found")
	ErrEmptyContent       = errors.New("message content is empty")
	ErrMissingFields      = errors.New("missing required fields")
)
