package api

import (
	"context"
	"strconv"

	"lostpets/client/internal/models"
)

// ChatService fetches the conversation list, including the server-maintained
// unread counters.
type ChatService struct {
	client *Client
}

// NewChatService builds a ChatService on the shared client.
func NewChatService(client *Client) *ChatService {
	return &ChatService{client: client}
}

// GetUserChats returns all chats the given user takes part in.
func (s *ChatService) GetUserChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	var chats []models.Chat
	if err := s.client.get(ctx, "/chat/user/"+strconv.FormatInt(userID, 10), nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}
