package models

// Typed views of the registered collections. The engine stores and syncs
// plain Records; these structs are decoded from them by the typed
// repositories. Fields the structs do not know about survive a round trip
// because updates are sent as patches.

// Account is a wallet, bank account or card.
type Account struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Currency string  `json:"currency,omitempty"`
	Balance  float64 `json:"balance"`
}

// Transaction is a single money movement on an account.
type Transaction struct {
	ID         string  `json:"id,omitempty"`
	AccountID  string  `json:"accountId"`
	CategoryID string  `json:"categoryId,omitempty"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note,omitempty"`
	// OccurredAt is an RFC 3339 timestamp.
	OccurredAt string `json:"occurredAt,omitempty"`
}

// Category groups transactions.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

// Budget caps spending of a category over a period.
type Budget struct {
	ID         string  `json:"id,omitempty"`
	CategoryID string  `json:"categoryId"`
	Limit      float64 `json:"limit"`
	Period     string  `json:"period,omitempty"`
}

// Goal is a savings target.
type Goal struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Target    float64 `json:"target"`
	Saved     float64 `json:"saved"`
	AccountID string  `json:"accountId,omitempty"`
}
