package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FixtureFormat is the file layout read by the json-file provider.
// Example:
//
//	{
//	  "accounts": [
//	    {"id": "acc_1", "name": "Everyday", "type": "checking", "currency": "NZD",
//	     "balance": {"current": 1520.35}}
//	  ],
//	  "transactions": [
//	    {"id": "tx_1", "account_id": "acc_1", "date": "2025-01-15T00:00:00Z",
//	     "description": "NETFLIX", "amount": -22.99}
//	  ]
//	}
//
// Useful offline and for trying out rules against exported data.
type FixtureFormat struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
}

// FileProvider serves accounts and transactions from a FixtureFormat file.
// The file is read on every call, like a remote API would be.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) (*FileProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("api file is required for the json-file provider")
	}
	return &FileProvider{path: path}, nil
}

func (p *FileProvider) read() (FixtureFormat, error) {
	var data FixtureFormat
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return data, fmt.Errorf("reading file: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("parsing JSON: %w", err)
	}
	return data, nil
}

func (p *FileProvider) FetchAccounts(ctx context.Context) ([]Account, error) {
	data, err := p.read()
	if err != nil {
		return nil, err
	}
	return data.Accounts, nil
}

func (p *FileProvider) FetchTransactions(ctx context.Context, start, end Date) ([]Transaction, error) {
	data, err := p.read()
	if err != nil {
		return nil, err
	}
	interval := DateInterval{Start: start, End: end}
	var result []Transaction
	for _, tx := range data.Transactions {
		if interval.Contains(DateOf(tx.Date)) {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (p *FileProvider) InitiateTransfer(ctx context.Context, req TransferRequest) (TransferReceipt, error) {
	return TransferReceipt{}, ErrTransfersUnsupported
}
