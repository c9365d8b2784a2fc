package models

// ConversationSummary is the derived per-partner view returned by the
// conversations listing. It is recomputed on every request, never persisted.
// ID carries the partner's cached handle, same as Username and Name.
type ConversationSummary struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	LastMessage   string `json:"lastMessage"`
	LastTimestamp string `json:"lastTimestamp"`
	UnreadCount   int64  `json:"unreadCount"`
	IsGroup       bool   `json:"isGroup"`
}
