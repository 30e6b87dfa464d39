package generation

import (
	"context"
	"errors"

	apperrors "screenplay-ai-api/pkg/errors"
)

// 生成失败的分类，调用方用 errors.Is 区分
var (
	// ErrEmptyOutput 模型没有生成任何可用内容
	ErrEmptyOutput = errors.New("nothing generated")
	// ErrInvalidOutput 模型输出不是合法 JSON 或不符合结构
	ErrInvalidOutput = errors.New("invalid model output")
	// ErrNoImage 图片服务没有返回图片，或未配置图片服务
	ErrNoImage = errors.New("no image returned")
)

// ToAppError 把生成错误转换为对外的应用错误，原始错误保留在错误链上
func ToAppError(op Operation, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrNoImage):
		return apperrors.Wrap(err, apperrors.CodeImageUnavailable, string(op)+": no image available")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(err, apperrors.CodeTimeout, string(op)+": generation timed out")
	default:
		return apperrors.Wrap(err, apperrors.CodeGenerationFailed, string(op)+" failed")
	}
}
