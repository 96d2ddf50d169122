package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a transaction as returned by the banking API. The cache
// reads a handful of its fields and stores the rest untouched.
type Transaction struct {
	ID          string           `json:"id"`
	AccountID   string           `json:"account_id"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	Type        string           `json:"type,omitempty"`
	Category    string           `json:"category,omitempty"`
	Merchant    string           `json:"merchant,omitempty"`
	Pending     bool             `json:"pending,omitempty"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Meta        map[string]any   `json:"meta,omitempty"`
}

// Balances holds the balances reported for an account
type Balances struct {
	Current   decimal.Decimal  `json:"current"`
	Available *decimal.Decimal `json:"available,omitempty"`
	Limit     *decimal.Decimal `json:"limit,omitempty"`
}

// Account is an account snapshot as returned by the banking API
type Account struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Institution string   `json:"institution"`
	Number      string   `json:"number,omitempty"`
	Currency    string   `json:"currency"`
	Status      string   `json:"status,omitempty"`
	Balance     Balances `json:"balance"`
}

// TransferRequest asks the bank to move money between two of the user's accounts
type TransferRequest struct {
	FromAccountID string          `json:"from"`
	ToAccountID   string          `json:"to"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference,omitempty"`
}

// TransferReceipt is the bank's acknowledgement of a transfer request
type TransferReceipt struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
