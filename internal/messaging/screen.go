package messaging

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"lostpets/client/internal/codes"
	"lostpets/client/internal/config"
	"lostpets/client/internal/localization"
	"lostpets/client/internal/models"
	"lostpets/client/internal/notify"
)

// Dispatcher is the outbound side of the messaging service, plus the inbound
// stream the screen listens on. *Service satisfies it.
type Dispatcher interface {
	Send(msg models.Message, recipientEmail string)
	Messages() *MessageStream
}

// ChatAPI is the chat-list collaborator (conversation summaries with unread
// counters, maintained server-side).
type ChatAPI interface {
	GetUserChats(ctx context.Context, userID int64) ([]models.Chat, error)
}

// HistoryAPI is the message-history collaborator; fetching a chat's history
// also marks it read on the server.
type HistoryAPI interface {
	GetChatMessages(ctx context.Context, chatCode, userEmail string) ([]models.Message, error)
}

// UserAPI resolves users when a brand-new chat is opened toward someone the
// logged-in user has never talked to.
type UserAPI interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// ChatScreen is the client's view of its conversations and the place the
// delivery state machine lives. Exactly one exists per logged-in user; its
// visibility flag decides whether an inbound message is appended to the open
// conversation or surfaced as an alert.
type ChatScreen struct {
	user       *models.User
	dispatcher Dispatcher
	chatAPI    ChatAPI
	historyAPI HistoryAPI
	userAPI    UserAPI
	notifier   notify.Notifier
	texts      *localization.Localizer

	// ReadAckDelay is the pause between acknowledging DELIVERED and READ for
	// a message arriving in the open chat. RefreshDelay is the pause between
	// any inbound event and the chat list refresh. Both default to the
	// protocol values; tests shorten them.
	ReadAckDelay time.Duration
	RefreshDelay time.Duration

	mu       sync.Mutex
	visible  bool
	chats    []models.Chat
	selected *models.Chat
	messages []models.Message
	isNew    bool // the selected chat does not exist server-side yet
	streamID string
}

// NewChatScreen builds the screen for the given logged-in user.
func NewChatScreen(user *models.User, dispatcher Dispatcher, chatAPI ChatAPI,
	historyAPI HistoryAPI, userAPI UserAPI, notifier notify.Notifier,
	texts *localization.Localizer) *ChatScreen {
	return &ChatScreen{
		user:         user,
		dispatcher:   dispatcher,
		chatAPI:      chatAPI,
		historyAPI:   historyAPI,
		userAPI:      userAPI,
		notifier:     notifier,
		texts:        texts,
		ReadAckDelay: config.ReadAckDelay,
		RefreshDelay: config.ChatRefreshDelay,
	}
}

// Enter marks the screen visible, loads the chat list and attaches to the
// inbound stream.
func (s *ChatScreen) Enter(ctx context.Context) error {
	s.mu.Lock()
	s.visible = true
	if s.streamID == "" {
		s.streamID = s.dispatcher.Messages().Subscribe(s.processMessage)
	}
	s.mu.Unlock()

	return s.loadChats(ctx)
}

// Leave marks the screen invisible and detaches from the inbound stream.
func (s *ChatScreen) Leave() {
	s.mu.Lock()
	s.visible = false
	streamID := s.streamID
	s.streamID = ""
	s.mu.Unlock()

	if streamID != "" {
		s.dispatcher.Messages().Unsubscribe(streamID)
	}
}

// SetVisible toggles the visibility flag without detaching the stream, for
// hosts that keep the screen alive while another view is in front.
func (s *ChatScreen) SetVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
}

// Visible reports whether the chat screen is the active view.
func (s *ChatScreen) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Chats returns a copy of the current chat list.
func (s *ChatScreen) Chats() []models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Chat(nil), s.chats...)
}

// Messages returns a copy of the open conversation's messages.
func (s *ChatScreen) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

// Selected returns the open chat, or nil when none is open.
func (s *ChatScreen) Selected() *models.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// OpenChat selects a chat and loads its history; fetching the history also
// marks the conversation read on the server.
func (s *ChatScreen) OpenChat(ctx context.Context, chat models.Chat) error {
	history, err := s.historyAPI.GetChatMessages(ctx, chat.Code, s.user.Email)
	if err != nil {
		return fmt.Errorf("messaging: load chat %s: %w", chat.Code, err)
	}

	s.mu.Lock()
	s.selected = &chat
	s.messages = history
	s.isNew = false
	s.mu.Unlock()
	return nil
}

// OpenChatWith opens the conversation toward the given user, reusing an
// existing chat when there is one and otherwise building a fresh chat with a
// generated code. The fresh chat materializes server-side with the first
// message.
func (s *ChatScreen) OpenChatWith(ctx context.Context, userID int64) error {
	s.mu.Lock()
	for _, chat := range s.chats {
		if chat.ToUser != nil && chat.ToUser.ID == userID {
			s.mu.Unlock()
			return s.OpenChat(ctx, chat)
		}
	}
	s.mu.Unlock()

	toUser, err := s.userAPI.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("messaging: resolve chat partner %d: %w", userID, err)
	}

	s.mu.Lock()
	s.selected = &models.Chat{
		Code:     codes.Random(codes.DefaultLength),
		FromUser: s.user,
		ToUser:   toUser,
	}
	s.messages = nil
	s.isNew = true
	s.mu.Unlock()
	return nil
}

// CloseChat deselects the open chat.
func (s *ChatScreen) CloseChat() {
	s.mu.Lock()
	s.selected = nil
	s.messages = nil
	s.isNew = false
	s.mu.Unlock()
}

// Send creates a SENT message in the open chat and dispatches it to the
// recipient, then refreshes the chat list.
func (s *ChatScreen) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("messaging: empty message")
	}

	s.mu.Lock()
	if s.selected == nil || s.selected.ToUser == nil {
		s.mu.Unlock()
		return fmt.Errorf("messaging: no chat selected")
	}
	selected := s.selected
	msg := models.Message{
		Code:     codes.Random(codes.DefaultLength),
		Content:  content,
		Date:     time.Now().UnixMilli(),
		Status:   models.StatusSent,
		FromUser: s.user,
		ToUser:   selected.ToUser,
		Chat:     chatRef(selected),
	}
	s.messages = append(s.messages, msg)
	recipient := selected.ToUser.Email
	s.mu.Unlock()

	s.dispatcher.Send(msg, recipient)

	if err := s.loadChats(ctx); err != nil {
		return err
	}

	// A brand-new chat now exists server-side; adopt the canonical copy.
	s.mu.Lock()
	if s.isNew && s.selected != nil {
		for i := range s.chats {
			if s.chats[i].Code == s.selected.Code {
				s.selected = &s.chats[i]
				s.isNew = false
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}

// processMessage advances the delivery state machine for one inbound event.
//
// For the recipient: a SENT message lands either in the open chat (append,
// acknowledge DELIVERED, acknowledge READ shortly after) or in the
// background (acknowledge DELIVERED, raise an alert; no READ until the user
// actually opens the chat). For the sender: inbound DELIVERED/READ updates
// are applied to the local copy, matched by code, forward-only.
func (s *ChatScreen) processMessage(msg models.Message) {
	s.mu.Lock()
	visible := s.visible
	selected := s.selected
	s.mu.Unlock()

	chatOpen := visible && selected != nil && msg.Chat != nil && selected.Code == msg.Chat.Code

	switch {
	case chatOpen && msg.ToUser.ID == s.user.ID && msg.Status == models.StatusSent:
		s.appendMessage(msg)

		ack := msg
		ack.Status = models.StatusDelivered
		s.dispatcher.Send(ack, msg.FromUser.Email)
		s.applyStatus(msg.Code, models.StatusDelivered)

		// The user is looking at the chat, so it is read almost immediately.
		time.AfterFunc(s.ReadAckDelay, func() {
			read := msg
			read.Status = models.StatusRead
			s.dispatcher.Send(read, msg.FromUser.Email)
			s.applyStatus(msg.Code, models.StatusRead)
		})

	case chatOpen:
		// A status update for a message of the open conversation; unmatched
		// codes are silently ignored.
		s.applyStatus(msg.Code, msg.Status)

	case msg.Status == models.StatusSent:
		// Background delivery: acknowledge and alert, never auto-READ.
		ack := msg
		ack.Status = models.StatusDelivered
		s.dispatcher.Send(ack, msg.FromUser.Email)
		s.notifier.ShowMessage(msg.FromUser.DisplayName(), msg.Content)
	}

	// Any inbound event may have changed unread counts; refresh the summary.
	time.AfterFunc(s.RefreshDelay, func() {
		if err := s.loadChats(context.Background()); err != nil {
			log.Printf("ERROR: refresh chat list: %v", err)
		}
	})
}

// appendMessage adds an inbound message to the open conversation unless a
// message with the same code is already there (duplicate broker frame).
func (s *ChatScreen) appendMessage(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].Code == msg.Code {
			return
		}
	}
	s.messages = append(s.messages, msg)
}

// applyStatus advances the status of the local copy matched by code. The
// state machine only moves forward; regressions and unknown codes are
// ignored.
func (s *ChatScreen) applyStatus(code string, status models.MessageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].Code == code {
			if status.After(s.messages[i].Status) {
				s.messages[i].Status = status
			}
			return
		}
	}
}

func (s *ChatScreen) loadChats(ctx context.Context) error {
	chats, err := s.chatAPI.GetUserChats(ctx, s.user.ID)
	if err != nil {
		return fmt.Errorf("messaging: load chats: %w", err)
	}

	s.mu.Lock()
	s.chats = chats
	s.mu.Unlock()

	if len(chats) == 0 {
		s.notifier.ShowInfo(s.texts.T("chats.title"), s.texts.T("chats.none"))
	}
	return nil
}

// chatRef trims a chat down to the fields the wire format carries with every
// message.
func chatRef(chat *models.Chat) *models.Chat {
	return &models.Chat{
		ID:       chat.ID,
		Code:     chat.Code,
		FromUser: chat.FromUser,
		ToUser:   chat.ToUser,
	}
}
