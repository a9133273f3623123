package qrcode

import (
	"errors"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024

	// MaxContentBytes 40 版 M 级纠错的字节模式容量
	MaxContentBytes = 2331
)

var (
	ErrEmptyContent   = errors.New("qr content is empty")
	ErrContentTooLong = errors.New("qr content too long to encode")
)

// EncodePNG 把内容渲染成 size 像素的正方形 PNG，size 会被限制在 [MinSize, MaxSize]
func EncodePNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > MaxContentBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrContentTooLong, len(content), MaxContentBytes)
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size < MinSize {
		size = MinSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	// 编码器只会因容量不足失败
	png, err := goqrcode.Encode(content, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentTooLong, err)
	}
	return png, nil
}
