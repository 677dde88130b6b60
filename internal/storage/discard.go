package storage

import "context"

// Discard accepts images without storing them. Records get no image URL
// but the model still sees the image.
type Discard struct{}

// Upload returns an empty URL.
func (Discard) Upload(context.Context, []byte, string, string) (string, error) {
	return "", nil
}
