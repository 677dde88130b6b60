package model

import "time"

// Interaction is one persisted turn of exchange.
// AccountID is set iff IsAnonymous is false.
type Interaction struct {
	ID            string
	SessionID     string
	AccountID     *string
	IsAnonymous   bool
	UserInputText string
	AIResponse    string
	ImageURL      *string
	ModelUsed     string
	CreatedAt     time.Time
}

// HistoryItem is an Interaction as returned to clients.
type HistoryItem struct {
	SessionID      string    `json:"session_id"`
	UserID         *string   `json:"user_id"`
	IsAnonymous    bool      `json:"is_anonymous"`
	UserInputText  string    `json:"user_input_text"`
	AIResponseText string    `json:"ai_response_text"`
	ImageURL       *string   `json:"image_url"`
	Timestamp      time.Time `json:"timestamp"`
}

// ToHistoryItem converts an Interaction to its wire form.
func (i *Interaction) ToHistoryItem() HistoryItem {
	return HistoryItem{
		SessionID:      i.SessionID,
		UserID:         i.AccountID,
		IsAnonymous:    i.IsAnonymous,
		UserInputText:  i.UserInputText,
		AIResponseText: i.AIResponse,
		ImageURL:       i.ImageURL,
		Timestamp:      i.CreatedAt,
	}
}

// ToHistoryItems converts a slice of Interactions, never returning nil.
func ToHistoryItems(records []*Interaction) []HistoryItem {
	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.ToHistoryItem())
	}
	return items
}
