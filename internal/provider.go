package internal

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
)

// Provider is a source of banking data
type Provider interface {
	FetchAccounts(ctx context.Context) ([]Account, error)
	FetchTransactions(ctx context.Context, start, end Date) ([]Transaction, error)
	// InitiateTransfer must be called at most once per user request; it is
	// never retried automatically.
	InitiateTransfer(ctx context.Context, req TransferRequest) (TransferReceipt, error)
}

// ProviderFactory builds a provider from the api section of the config
type ProviderFactory func(cfg APIConfig, logger *log.Logger) (Provider, error)

// providers is the registry of available providers
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory under name
func RegisterProvider(name string, f ProviderFactory) {
	providers[name] = f
}

// NewProvider builds the provider named in cfg
func NewProvider(cfg APIConfig, logger *log.Logger) (Provider, error) {
	f, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %v)", cfg.Provider, AvailableProviders())
	}
	if logger == nil {
		logger = discardLogger()
	}
	return f(cfg, logger.With("component", "provider", "provider", cfg.Provider))
}

// AvailableProviders returns the registered provider names, sorted
func AvailableProviders() []string {
	var names []string
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsKnownProvider returns true if name is a registered provider
func IsKnownProvider(name string) bool {
	_, ok := providers[name]
	return ok
}

func init() {
	RegisterProvider("http", func(cfg APIConfig, logger *log.Logger) (Provider, error) {
		return NewHTTPProvider(cfg, logger)
	})
	RegisterProvider("json-file", func(cfg APIConfig, logger *log.Logger) (Provider, error) {
		return NewFileProvider(cfg.File)
	})
}
