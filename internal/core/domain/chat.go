package domain

import "time"

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// Chat is a stored conversation.
type Chat struct {
	// ID is the unique chat identifier.
	ID string `json:"chat_id"`

	// Title is the display name, auto-derived from the first user message
	// when not explicitly set.
	Title string `json:"title"`

	// Messages is the ordered conversation history.
	Messages []ChatMessage `json:"messages"`

	// MessageCount duplicates len(Messages) for cheap listing.
	MessageCount int `json:"message_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
