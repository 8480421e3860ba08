package api

import (
	"context"
	"net/url"

	"lostpets/client/internal/models"
)

// MessageService fetches chat history from the platform.
type MessageService struct {
	client *Client
}

// NewMessageService builds a MessageService on the shared client.
func NewMessageService(client *Client) *MessageService {
	return &MessageService{client: client}
}

// GetChatMessages returns the history of one chat and, as a side effect on
// the server, marks the messages addressed to userEmail as read.
func (s *MessageService) GetChatMessages(ctx context.Context, chatCode, userEmail string) ([]models.Message, error) {
	var messages []models.Message
	query := url.Values{"userEmail": {userEmail}}
	if err := s.client.get(ctx, "/message/markAsRead/"+chatCode, query, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
