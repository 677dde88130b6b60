package model

// DefaultImageMIMEType is used when an upload declares no content type.
const DefaultImageMIMEType = "image/jpeg"

// DescribeImagePrompt replaces blank text when only an image is sent.
const DescribeImagePrompt = "Describe this image."

// Prompt is one model request: text plus an optional inline image.
type Prompt struct {
	Text     string
	Image    []byte
	MIMEType string
}

// HasImage reports whether the prompt carries image bytes.
func (p Prompt) HasImage() bool {
	return len(p.Image) > 0
}
