// Package config holds the client configuration: platform endpoints read
// from the environment plus the fixed messaging protocol values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fixed protocol values. The heartbeat intervals and the two state-machine
// delays are part of the messaging contract with the platform, not tunables.
const (
	// Heartbeats negotiated at STOMP connect time, one value per direction.
	ClientHeartbeat = 1000 * time.Millisecond
	ServerHeartbeat = 1000 * time.Millisecond

	// ReadAckDelay is how long an open chat waits before acknowledging a
	// freshly delivered message as READ.
	ReadAckDelay = 500 * time.Millisecond

	// ChatRefreshDelay is how long after any inbound event the chat list
	// summary is refreshed from the platform.
	ChatRefreshDelay = 1000 * time.Millisecond
)

// Topic and destination templates; "userEmail" is substituted with the
// addressed user's email.
const (
	userEmailPlaceholder = "userEmail"

	UserTopicTemplate       = "/exchange/chatMessage/userEmail"
	UserDestinationTemplate = "/send/chatMessage/userEmail"
)

// Config holds the environment-dependent part of the client configuration.
type Config struct {
	// APIURL is the base URL of the platform REST API.
	APIURL string
	// MessagingURL is the websocket URL of the message broker.
	MessagingURL string

	// Login credentials for the headless client.
	UserEmail    string
	UserPassword string

	// Optional Telegram notification channel. Notifications fall back to
	// the log when the token is empty.
	TelegramBotToken string
	TelegramChatID   int64
}

// Load reads the configuration from environment variables, loading a .env
// file first if one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIURL:           strings.TrimSuffix(getEnv("LOSTPETS_API_URL", "http://localhost:8080"), "/"),
		MessagingURL:     getEnv("LOSTPETS_MESSAGING_URL", "ws://localhost:8080/lostpets-ws/websocket"),
		UserEmail:        os.Getenv("LOSTPETS_USER_EMAIL"),
		UserPassword:     os.Getenv("LOSTPETS_USER_PASSWORD"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
	}
}

// UserTopic returns the broker topic that delivers messages addressed to the
// given user.
func UserTopic(email string) string {
	return strings.Replace(UserTopicTemplate, userEmailPlaceholder, email, 1)
}

// UserDestination returns the broker destination that routes a message to the
// given user.
func UserDestination(email string) string {
	return strings.Replace(UserDestinationTemplate, userEmailPlaceholder, email, 1)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
