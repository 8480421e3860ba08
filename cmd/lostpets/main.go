package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"lostpets/client/internal/api"
	"lostpets/client/internal/auth"
	"lostpets/client/internal/config"
	"lostpets/client/internal/localization"
	"lostpets/client/internal/messaging"
	"lostpets/client/internal/models"
	"lostpets/client/internal/notify"
)

func main() {
	log.Println("Starting LostPets messaging client...")

	cfg := config.Load()
	if cfg.UserEmail == "" || cfg.UserPassword == "" {
		log.Fatal("LOSTPETS_USER_EMAIL and LOSTPETS_USER_PASSWORD must be set")
	}

	texts, err := localization.NewLocalizer(getLang())
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("Failed to start Telegram notifications: %v", err)
		}
		notifier = tg
	}

	// 1. REST clients against the platform API.
	tokens := &auth.Store{}
	client := api.NewClient(cfg.APIURL, tokens)
	users := api.NewUserService(client)
	chats := api.NewChatService(client)
	messages := api.NewMessageService(client)

	// 2. Log in; the session token also authorizes the broker handshake.
	ctx := context.Background()
	user, err := users.LogIn(ctx, models.AccountCredentials{
		Email:    cfg.UserEmail,
		Password: cfg.UserPassword,
	})
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Printf("Logged in as %s", user.DisplayName())

	// 3. Broker session and chat screen.
	service := messaging.NewService(
		messaging.NewSTOMPTransportFactory(cfg.MessagingURL),
		tokens, users, notifier, texts)
	service.Start()

	screen := messaging.NewChatScreen(user, service, chats, messages, users, notifier, texts)
	if err := screen.Enter(ctx); err != nil {
		log.Printf("ERROR: load chats: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go runTerminal(ctx, screen, quit)
	<-quit

	log.Println("Shutting down...")
	screen.Leave()
	service.Stop()
	users.LogOut()
}

// runTerminal is a minimal interactive front end: list chats, open one by
// code or partner id, type to send.
func runTerminal(ctx context.Context, screen *messaging.ChatScreen, quit chan<- os.Signal) {
	fmt.Println("Commands: /chats, /open <code>, /with <userID>, /close, /quit; anything else is sent to the open chat.")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			quit <- syscall.SIGINT
			return
		case line == "/chats":
			printChats(screen)
		case line == "/close":
			screen.CloseChat()
			fmt.Println("Chat closed.")
		case strings.HasPrefix(line, "/open "):
			openByCode(ctx, screen, strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
		case strings.HasPrefix(line, "/with "):
			openWithUser(ctx, screen, strings.TrimSpace(strings.TrimPrefix(line, "/with ")))
		default:
			if err := screen.Send(ctx, line); err != nil {
				fmt.Printf("Cannot send: %v\n", err)
			}
		}
	}
}

func printChats(screen *messaging.ChatScreen) {
	chats := screen.Chats()
	if len(chats) == 0 {
		fmt.Println("No chats yet.")
		return
	}
	for _, chat := range chats {
		partner := ""
		if chat.ToUser != nil {
			partner = chat.ToUser.DisplayName()
		}
		fmt.Printf("  %s  %s  (%d unread)\n", chat.Code, partner, chat.UnreadMessages)
	}
}

func openByCode(ctx context.Context, screen *messaging.ChatScreen, code string) {
	for _, chat := range screen.Chats() {
		if chat.Code == code {
			if err := screen.OpenChat(ctx, chat); err != nil {
				fmt.Printf("Cannot open chat: %v\n", err)
				return
			}
			printHistory(screen)
			return
		}
	}
	fmt.Printf("No chat with code %s.\n", code)
}

func openWithUser(ctx context.Context, screen *messaging.ChatScreen, arg string) {
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Printf("Not a user id: %s\n", arg)
		return
	}
	if err := screen.OpenChatWith(ctx, userID); err != nil {
		fmt.Printf("Cannot open chat: %v\n", err)
		return
	}
	printHistory(screen)
}

func printHistory(screen *messaging.ChatScreen) {
	selected := screen.Selected()
	if selected == nil {
		return
	}
	fmt.Printf("--- chat %s ---\n", selected.Code)
	for _, msg := range screen.Messages() {
		from := ""
		if msg.FromUser != nil {
			from = msg.FromUser.DisplayName()
		}
		fmt.Printf("  [%s] %s: %s\n", msg.Status, from, msg.Content)
	}
}

func getLang() string {
	if lang := os.Getenv("LOSTPETS_LANG"); lang != "" {
		return lang
	}
	return "en"
}
