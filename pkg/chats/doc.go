// Package chats groups the conversation data model shared by every backend:
// roles, multi-modal content parts, messages, and the ordered Chat container.
//
// The subpackages are deliberately small so that backend clients can depend
// on the wire-neutral model without pulling in any transport code.
package chats
