package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/charmbracelet/log"
	"github.com/gigurra/moneyline/internal"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type AccountsParams struct {
	Config  string `descr:"Path to config file (default: <user config dir>/moneyline/config.yaml)" optional:"true"`
	Verbose bool   `descr:"Show debug logging" optional:"true"`
	Output  string `descr:"Output format" default:"table" alts:"table,csv,markdown,json,list" strict:"true"`
	Refresh bool   `descr:"Skip the cache lookup and fetch from the API" optional:"true"`
	NoCache bool   `descr:"Neither read nor update the local cache" optional:"true"`
	Account string `descr:"Only show the account with this ID, name or alias" optional:"true"`
}

type TransactionsParams struct {
	Config    string `descr:"Path to config file (default: <user config dir>/moneyline/config.yaml)" optional:"true"`
	Verbose   bool   `descr:"Show debug logging" optional:"true"`
	Output    string `descr:"Output format" default:"table" alts:"table,csv,markdown,json,list" strict:"true"`
	Refresh   bool   `descr:"Skip the cache lookup and fetch from the API" optional:"true"`
	NoCache   bool   `descr:"Neither read nor update the local cache" optional:"true"`
	From      string `descr:"First date to include (YYYY-MM-DD)" optional:"true"`
	To        string `descr:"Last date to include (YYYY-MM-DD, default: today)" optional:"true"`
	Days      int    `descr:"Number of days to show when --from is not given" default:"30"`
	Account   string `descr:"Only show transactions of this account (ID, name or alias)" optional:"true"`
	Category  string `descr:"Only show transactions in this category" optional:"true"`
	Search    string `descr:"Only show transactions whose description contains this text" optional:"true"`
	Direction string `descr:"Money direction to show" default:"all" alts:"all,in,out" strict:"true"`
}

type ExportParams struct {
	Config    string `descr:"Path to config file (default: <user config dir>/moneyline/config.yaml)" optional:"true"`
	Verbose   bool   `descr:"Show debug logging" optional:"true"`
	File      string `descr:"Path of the .xlsx file to write" positional:"true"`
	Refresh   bool   `descr:"Skip the cache lookup and fetch from the API" optional:"true"`
	NoCache   bool   `descr:"Neither read nor update the local cache" optional:"true"`
	From      string `descr:"First date to include (YYYY-MM-DD)" optional:"true"`
	To        string `descr:"Last date to include (YYYY-MM-DD, default: today)" optional:"true"`
	Days      int    `descr:"Number of days to export when --from is not given" default:"30"`
	Account   string `descr:"Only export transactions of this account (ID, name or alias)" optional:"true"`
	Category  string `descr:"Only export transactions in this category" optional:"true"`
	Search    string `descr:"Only export transactions whose description contains this text" optional:"true"`
	Direction string `descr:"Money direction to export" default:"all" alts:"all,in,out" strict:"true"`
}

type TransferParams struct {
	Config    string `descr:"Path to config file (default: <user config dir>/moneyline/config.yaml)" optional:"true"`
	Verbose   bool   `descr:"Show debug logging" optional:"true"`
	From      string `descr:"Account ID to move money from"`
	To        string `descr:"Account ID to move money to"`
	Amount    string `descr:"Amount to transfer, e.g. 25.50"`
	Reference string `descr:"Reference shown on both statements" optional:"true"`
	Yes       bool   `descr:"Send the transfer instead of only showing what would be sent" optional:"true"`
}

type RecurringParams struct {
	Config    string  `descr:"Path to config file (default: <user config dir>/moneyline/config.yaml)" optional:"true"`
	Verbose   bool    `descr:"Show debug logging" optional:"true"`
	Output    string  `descr:"Output format" default:"table" alts:"table,csv,markdown,json,list" strict:"true"`
	Refresh   bool    `descr:"Skip the cache lookup and fetch from the API" optional:"true"`
	NoCache   bool    `descr:"Neither read nor update the local cache" optional:"true"`
	Months    int     `descr:"Number of months of history to analyse" default:"12"`
	Tolerance float64 `descr:"Max relative price change between consecutive charges (0.35 = 35%)" default:"0.35"`
	Show      string  `descr:"Which payees to show" default:"all" alts:"all,active,stopped" strict:"true"`
	Account   string  `descr:"Only analyse this account (ID, name or alias)" optional:"true"`
}

type CacheParams struct {
	Config  string `descr:"Path to config file (default: <user config dir>/moneyline/config.yaml)" optional:"true"`
	Verbose bool   `descr:"Show debug logging" optional:"true"`
}

type ConfigInitParams struct {
	Config string `descr:"Where to write the config file (default: <user config dir>/moneyline/config.yaml)" optional:"true"`
	Force  bool   `descr:"Overwrite an existing file" optional:"true"`
}

func main() {
	// tokens may live in a local .env
	_ = godotenv.Load()

	boa.NewCmdT[boa.NoParams]("moneyline").
		WithShort("Look at your bank accounts and transactions from the terminal").
		WithLong("Reads accounts and transactions from your bank's data API, keeps a local cache so repeated queries are instant, applies your categorisation rules and renders tables, CSV, markdown, JSON or lists.").
		WithSubCmds(
			accountsCmd(),
			transactionsCmd(),
			exportCmd(),
			recurringCmd(),
			transferCmd(),
			cacheCmd(),
			configCmd(),
		).
		Run()
}

// app holds what every command needs: config, logger and the cache
type app struct {
	cfg    *internal.Config
	logger *log.Logger
	cache  *internal.Cache
}

func newApp(configPath string, verbose bool) *app {
	logger := internal.NewLogger(os.Stderr, verbose)

	explicit := configPath != ""
	if !explicit {
		configPath = internal.DefaultConfigPath()
	}
	cfg, err := internal.LoadConfig(configPath, explicit)
	if err != nil {
		fail(err)
	}
	logger.Debug("config loaded", "path", configPath, "provider", cfg.API.Provider)

	return &app{
		cfg:    cfg,
		logger: logger,
		cache:  internal.NewCache(cfg.CacheDir(), cfg.Retry, logger),
	}
}

func (a *app) provider() internal.Provider {
	if err := a.cfg.Validate(); err != nil {
		fail(err)
	}
	p, err := internal.NewProvider(a.cfg.API, a.logger)
	if err != nil {
		fail(err)
	}
	return p
}

func (a *app) fetchOptions(refresh, noCache bool) internal.FetchOptions {
	return internal.FetchOptions{
		ForceRefresh: refresh,
		CacheEnabled: a.cfg.Cache.IsEnabled() && !noCache,
	}
}

func (a *app) outputOptions(format string) internal.OutputOptions {
	return internal.OutputOptions{
		Format:   format,
		Currency: a.cfg.DisplayCurrency(),
		Now:      time.Now(),
	}
}

// accountsForLabels fetches accounts to name transactions; failure only costs the names
func (a *app) accountsForLabels(ctx context.Context, p internal.Provider, opts internal.FetchOptions) []internal.Account {
	res, err := a.cache.GetAccounts(ctx, internal.FetchOptions{CacheEnabled: opts.CacheEnabled}, p.FetchAccounts)
	if err != nil {
		a.logger.Warn("could not load account names", "error", err)
		return nil
	}
	return res.Accounts
}

// warn prints cache diagnostics; they never fail a command
func (a *app) warn() {
	internal.PrintWarnings(os.Stderr, a.cache.Diagnostics().Warnings())
}

func accountsCmd() boa.CmdT[AccountsParams] {
	return boa.NewCmdT[AccountsParams]("accounts").
		WithShort("List accounts and balances").
		WithRunFunc(func(params *AccountsParams) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			a := newApp(params.Config, params.Verbose)
			p := a.provider()

			res, err := a.cache.GetAccounts(ctx, a.fetchOptions(params.Refresh, params.NoCache), p.FetchAccounts)
			if err != nil {
				fail(err)
			}

			opts := a.outputOptions(params.Output)
			opts.FromCache, opts.CachedAt = res.FromCache, res.CachedAt
			accounts := internal.FilterAccounts(res.Accounts, params.Account, a.cfg)
			if err := internal.PrintAccounts(os.Stdout, accounts, opts, a.cfg); err != nil {
				fail(err)
			}
			a.warn()
		})
}

func transactionsCmd() boa.CmdT[TransactionsParams] {
	return boa.NewCmdT[TransactionsParams]("transactions").
		WithShort("List transactions in a date range").
		WithLong("Lists transactions between --from and --to (default: the last 30 days). Results are cached for an hour; repeated queries inside an already fetched range are served locally.").
		WithRunFunc(func(params *TransactionsParams) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			interval, err := internal.ResolveInterval(params.From, params.To, params.Days, internal.Today())
			if err != nil {
				fail(err)
			}

			a := newApp(params.Config, params.Verbose)
			p := a.provider()
			fetchOpts := a.fetchOptions(params.Refresh, params.NoCache)

			res, err := a.cache.GetTransactions(ctx, interval, fetchOpts, p.FetchTransactions)
			if err != nil {
				fail(err)
			}
			accounts := a.accountsForLabels(ctx, p, fetchOpts)

			txs := internal.FilterTransactions(res.Transactions, internal.TransactionFilter{
				Account:   params.Account,
				Category:  params.Category,
				Search:    params.Search,
				Direction: params.Direction,
			}, accounts, a.cfg)
			internal.SortTransactions(txs)

			opts := a.outputOptions(params.Output)
			opts.FromCache, opts.CachedAt = res.FromCache, res.CachedAt
			if err := internal.PrintTransactions(os.Stdout, txs, accounts, opts, a.cfg); err != nil {
				fail(err)
			}
			a.warn()
		})
}

func exportCmd() boa.CmdT[ExportParams] {
	return boa.NewCmdT[ExportParams]("export").
		WithShort("Export transactions and accounts to an Excel workbook").
		WithRunFunc(func(params *ExportParams) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			interval, err := internal.ResolveInterval(params.From, params.To, params.Days, internal.Today())
			if err != nil {
				fail(err)
			}

			a := newApp(params.Config, params.Verbose)
			p := a.provider()
			fetchOpts := a.fetchOptions(params.Refresh, params.NoCache)

			res, err := a.cache.GetTransactions(ctx, interval, fetchOpts, p.FetchTransactions)
			if err != nil {
				fail(err)
			}
			accRes, err := a.cache.GetAccounts(ctx, fetchOpts, p.FetchAccounts)
			if err != nil {
				fail(err)
			}

			txs := internal.FilterTransactions(res.Transactions, internal.TransactionFilter{
				Account:   params.Account,
				Category:  params.Category,
				Search:    params.Search,
				Direction: params.Direction,
			}, accRes.Accounts, a.cfg)
			internal.SortTransactions(txs)

			if err := internal.ExportXLSX(params.File, txs, accRes.Accounts, a.cfg); err != nil {
				fail(err)
			}
			fmt.Printf("Wrote %d transactions and %d accounts to %s\n", len(txs), len(accRes.Accounts), params.File)
			a.warn()
		})
}

func recurringCmd() boa.CmdT[RecurringParams] {
	return boa.NewCmdT[RecurringParams]("recurring").
		WithShort("Find subscriptions and other monthly charges").
		WithLong("Looks for payees charged once a month at a similar amount. Price checks use complete months only; the current month decides whether a payment is still active.").
		WithRunFunc(func(params *RecurringParams) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			if params.Months < 2 {
				fail(fmt.Errorf("--months must be at least 2, got %d", params.Months))
			}
			if params.Tolerance <= 0 {
				fail(fmt.Errorf("--tolerance must be positive, got %v", params.Tolerance))
			}
			today := internal.Today()
			first := today.Time().AddDate(0, -params.Months, 0)
			interval, err := internal.NewDateInterval(internal.NewDate(first.Year(), first.Month(), 1), today)
			if err != nil {
				fail(err)
			}

			a := newApp(params.Config, params.Verbose)
			p := a.provider()
			fetchOpts := a.fetchOptions(params.Refresh, params.NoCache)

			res, err := a.cache.GetTransactions(ctx, interval, fetchOpts, p.FetchTransactions)
			if err != nil {
				fail(err)
			}
			var accounts []internal.Account
			if params.Account != "" {
				accounts = a.accountsForLabels(ctx, p, fetchOpts)
			}
			txs := internal.FilterTransactions(res.Transactions, internal.TransactionFilter{Account: params.Account}, accounts, a.cfg)

			recurring := internal.FilterRecurring(internal.DetectRecurring(txs, today, params.Tolerance, a.cfg), params.Show)
			opts := a.outputOptions(params.Output)
			opts.FromCache, opts.CachedAt = res.FromCache, res.CachedAt
			if err := internal.PrintRecurring(os.Stdout, recurring, opts); err != nil {
				fail(err)
			}
			a.warn()
		})
}

func transferCmd() boa.CmdT[TransferParams] {
	return boa.NewCmdT[TransferParams]("transfer").
		WithShort("Move money between two of your accounts").
		WithLong("Sends a single transfer request. The request is never retried automatically: if it fails, check your accounts before trying again.").
		WithRunFunc(func(params *TransferParams) {
			amount, err := decimal.NewFromString(params.Amount)
			if err != nil {
				fail(fmt.Errorf("invalid amount %q: %w", params.Amount, err))
			}
			if !amount.IsPositive() {
				fail(fmt.Errorf("amount must be positive, got %s", amount))
			}
			if params.From == params.To {
				fail(errors.New("--from and --to must be different accounts"))
			}

			a := newApp(params.Config, params.Verbose)
			cur := a.cfg.DisplayCurrency()
			req := internal.TransferRequest{
				FromAccountID: params.From,
				ToAccountID:   params.To,
				Amount:        amount,
				Reference:     params.Reference,
			}
			if !params.Yes {
				fmt.Printf("Would transfer %s from %s to %s. Re-run with --yes to send.\n", cur.Format(amount), req.FromAccountID, req.ToAccountID)
				return
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			// Called directly, not through the retrier: a transfer that went
			// through but whose response was lost must not be sent twice.
			receipt, err := a.provider().InitiateTransfer(ctx, req)
			if err != nil {
				fail(err)
			}
			fmt.Printf("Transfer %s submitted (status: %s)\n", receipt.ID, receipt.Status)
		})
}

func cacheCmd() boa.CmdT[boa.NoParams] {
	statusCmd := boa.NewCmdT[CacheParams]("status").
		WithShort("Show what is cached and how old it is").
		WithRunFunc(func(params *CacheParams) {
			a := newApp(params.Config, params.Verbose)
			internal.PrintCacheStatus(os.Stdout, a.cache.Status(), time.Now())
			a.warn()
		})

	clearCmd := boa.NewCmdT[CacheParams]("clear").
		WithShort("Delete the cached accounts and transactions").
		WithRunFunc(func(params *CacheParams) {
			a := newApp(params.Config, params.Verbose)
			if err := a.cache.Clear(); err != nil {
				fail(err)
			}
			fmt.Println("Cache cleared")
		})

	return boa.NewCmdT[boa.NoParams]("cache").
		WithShort("Inspect or clear the local cache").
		WithSubCmds(statusCmd, clearCmd)
}

func configCmd() boa.CmdT[boa.NoParams] {
	initCmd := boa.NewCmdT[ConfigInitParams]("init").
		WithShort("Write a config file with default settings").
		WithRunFunc(func(params *ConfigInitParams) {
			path := params.Config
			if path == "" {
				path = internal.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !params.Force {
				fail(fmt.Errorf("%s already exists (use --force to overwrite)", path))
			}
			if err := internal.NewDefaultConfig().Save(path); err != nil {
				fail(err)
			}
			fmt.Printf("Config written to: %s\n", path)
			fmt.Println("Set api.base_url and export your token in the variable named by api.token_env.")
		})

	return boa.NewCmdT[boa.NoParams]("config").
		WithShort("Manage the config file").
		WithSubCmds(initCmd)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
