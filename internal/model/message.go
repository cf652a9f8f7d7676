package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageSender string

const (
	MessageSenderUser      = MessageSender("user")
	MessageSenderAssistant = MessageSender("assistant")
)

type Message struct {
	ID        uuid.UUID
	Sender    MessageSender
	Text      string
	CreatedAt time.Time
}

func NewMessage(sender MessageSender, text string, createdAt time.Time) Message {
	return Message{
		ID:        uuid.New(),
		Sender:    sender,
		Text:      text,
		CreatedAt: createdAt,
	}
}
