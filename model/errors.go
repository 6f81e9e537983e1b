package model

import "errors"

// 错误分类，调用方通过 errors.Is 判断
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrAccessDenied         = errors.New("access denied")
	ErrNotFound             = errors.New("not found")
	ErrNotAFile             = errors.New("path is not a file")
	ErrNotADirectory        = errors.New("path is not a directory")
	ErrUnsupportedContainer = errors.New("unsupported container")
	ErrToolchainUnavailable = errors.New("media toolchain unavailable")
	ErrProbeFailed          = errors.New("probe failed")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrIO                   = errors.New("io error")
)
