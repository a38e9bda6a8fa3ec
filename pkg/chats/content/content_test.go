package content_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quorumlabs/council/pkg/chats/content"
)

func TestPartKinds(t *testing.T) {
	var _ content.Part = content.Text{}
	var _ content.Part = content.Image{}

	assert.Equal(t, "text", content.Text{Text: "hi"}.PartKind())
	assert.Equal(t, "image", content.Image{URL: "https://example.com/a.png"}.PartKind())
}
