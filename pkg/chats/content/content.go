// Package content defines multi-modal content parts for council messages.
package content

// Part is a piece of content within a message. Backends that cannot encode a
// given part kind drop it at their own boundary rather than mis-encoding it.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// Image is an image content part. URL may be a data: URI carrying the image
// inline; Data holds raw bytes when the image was read locally.
type Image struct {
	URL       string
	Data      []byte
	MediaType string
	Filename  string
}

func (i Image) PartKind() string { return "image" }
