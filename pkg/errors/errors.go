// Package errors 提供统一错误辅助与工具调用失败码，不依赖 internal
package errors

import (
	"context"
	"errors"
	"fmt"
)

// 常用哨兵错误
var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidArg  = errors.New("invalid argument")
	ErrUnavailable = errors.New("unavailable")
)

// Code 工具调用失败分类（对外契约中的 typed failure）
type Code string

const (
	CodeUnknownTool       Code = "unknown_tool"
	CodeInvalidArguments  Code = "invalid_arguments"
	CodeSourceUnavailable Code = "source_unavailable"
	CodeRateLimited       Code = "rate_limited"
	CodeQuotaExceeded     Code = "quota_exceeded"
	CodeTimeout           Code = "timeout"
	CodeBlocked           Code = "blocked"
	CodeInternal          Code = "internal"
)

// Error 带失败码的错误；Op 为出错的操作（如 "federation.search"、"tool.search_entities"）
type Error struct {
	Code Code
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Code, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New 创建带码错误
func New(code Code, op, msg string) error {
	return &Error{Code: code, Op: op, Msg: msg}
}

// Newf 带格式的 New
func Newf(code Code, op, format string, args ...interface{}) error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// E 用失败码包装已有错误；err 为 nil 时返回 nil
func E(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf 沿错误链取第一个失败码；超时类标准错误映射为 CodeTimeout，其余未分类错误为 CodeInternal
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	if errors.Is(err, ErrInvalidArg) {
		return CodeInvalidArguments
	}
	if errors.Is(err, ErrUnavailable) {
		return CodeSourceUnavailable
	}
	return CodeInternal
}

// HasCode 判断错误链是否带有指定失败码
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Is / As 转发标准库，便于调用方只 import 本包
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
