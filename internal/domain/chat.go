package domain

import "time"

// MaxChatMessageLen bounds a single chat message, in characters.
const MaxChatMessageLen = 1000

// ChatMessage is one message posted to a market's chat.
type ChatMessage struct {
	ID        string    `json:"id"`
	MarketID  string    `json:"market_id"`
	Address   string    `json:"address"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
