package generator

import "github.com/photovariant/photovariant/internal/naming"

// Transcoder decodes source bytes into an Image.
type Transcoder interface {
	Decode(data []byte) (Image, error)
}

// Image is a decoded original. Encode must not modify the receiver so
// every variant starts from the same pixels.
type Image interface {
	Width() int
	Height() int
	Encode(width int, format naming.Format, quality int) ([]byte, error)
	Close()
}
