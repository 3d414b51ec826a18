package domain

// MessageRef identifies a sent message
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the ref points at nothing (e.g. a failed send)
func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// Button is an inline button bound to a typed action
type Button struct {
	Text   string
	Action Action
}

// Attachment is a file sent as a document
type Attachment struct {
	Name string
	Data []byte
}

// Outgoing describes a message to send
type Outgoing struct {
	Text     string
	Photo    []byte // Text becomes the caption
	Document *Attachment
	Inline   [][]Button
	Reply    [][]string
	// RemoveKeyboard hides the reply keyboard while a prompt waits for input
	RemoveKeyboard bool
}
