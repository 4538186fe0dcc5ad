package models

import "github.com/dyike/GenieGo/consts"

// Message is one entry of the chat log. Only user and assistant roles are
// stored; the system persona is injected by the conversation client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message {
	return Message{Role: consts.Role_User, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: consts.Role_Assistant, Content: content}
}

func WelcomeMessage() Message {
	return AssistantMessage(consts.WelcomeMessage)
}

func (m Message) IsUser() bool {
	return m.Role == consts.Role_User
}
