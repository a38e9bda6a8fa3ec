// Package message defines the Message type used in council conversations.
package message

import (
	"strings"

	"github.com/quorumlabs/council/pkg/chats/content"
	"github.com/quorumlabs/council/pkg/chats/role"
)

// Message is a single conversation turn. It is a value type that copies
// cheaply and is never mutated once handed to a backend.
type Message struct {
	Sender string
	Role   role.Role
	Parts  []content.Part
}

// New creates a message with the given sender, role, and content parts.
func New(sender string, r role.Role, parts ...content.Part) Message {
	return Message{
		Sender: sender,
		Role:   r,
		Parts:  parts,
	}
}

// NewText creates a message with a single Text content part.
func NewText(sender string, r role.Role, text string) Message {
	return New(sender, r, content.Text{Text: text})
}

// TextContent concatenates the text of all Text parts in the message.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// Images returns all Image parts in the message, in order.
func (m Message) Images() []content.Image {
	var imgs []content.Image
	for _, p := range m.Parts {
		if img, ok := p.(content.Image); ok {
			imgs = append(imgs, img)
		}
	}
	return imgs
}

// IsTextOnly reports whether every part of the message is a Text part.
func (m Message) IsTextOnly() bool {
	for _, p := range m.Parts {
		if _, ok := p.(content.Text); !ok {
			return false
		}
	}
	return true
}
