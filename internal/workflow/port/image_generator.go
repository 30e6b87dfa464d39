package port

import "context"

// Image 生成或编辑得到的图片
type Image struct {
	// Data base64 编码的图片内容
	Data     string
	MimeType string
}

// DataURL 以 data URL 形式返回图片
func (i Image) DataURL() string {
	mime := i.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + i.Data
}

// ImageGenerator 图片生成与编辑。
// 服务端正常返回但没有图片时返回 (nil, nil)，由调用方决定如何处理。
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
	Edit(ctx context.Context, prompt string, source []byte) (*Image, error)
}
