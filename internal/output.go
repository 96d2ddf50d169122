package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// Output formats
const (
	FormatTable    = "table"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatList     = "list"
)

// OutputFormats lists every supported format
var OutputFormats = []string{FormatTable, FormatCSV, FormatMarkdown, FormatJSON, FormatList}

// OutputOptions controls how accounts and transactions are displayed
type OutputOptions struct {
	Format    string
	Currency  Currency // used when an account does not name its currency
	FromCache bool
	CachedAt  time.Time
	Now       time.Time
}

// JSONTransactionsOutput is the root JSON object for transaction views
type JSONTransactionsOutput struct {
	Transactions []JSONTransaction `json:"transactions"`
	Summary      JSONSummary       `json:"summary"`
	FromCache    bool              `json:"from_cache"`
	CachedAt     *time.Time        `json:"cached_at,omitempty"`
}

// JSONSummary contains aggregate statistics
type JSONSummary struct {
	Count    int             `json:"count"`
	In       decimal.Decimal `json:"in"`
	Out      decimal.Decimal `json:"out"`
	Net      decimal.Decimal `json:"net"`
	Currency string          `json:"currency"`
}

// JSONTransaction is the JSON output format for a transaction
type JSONTransaction struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Account     string          `json:"account"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Pending     bool            `json:"pending,omitempty"`
}

// JSONAccountsOutput is the root JSON object for account views
type JSONAccountsOutput struct {
	Accounts  []JSONAccount `json:"accounts"`
	FromCache bool          `json:"from_cache"`
	CachedAt  *time.Time    `json:"cached_at,omitempty"`
}

// JSONAccount is the JSON output format for an account
type JSONAccount struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Institution string           `json:"institution"`
	Currency    string           `json:"currency"`
	Current     decimal.Decimal  `json:"current"`
	Available   *decimal.Decimal `json:"available,omitempty"`
}

// ValidateFormat returns an error for unsupported output formats
func ValidateFormat(format string) error {
	for _, f := range OutputFormats {
		if f == format {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (available: %s)", format, strings.Join(OutputFormats, ", "))
}

func (o OutputOptions) cachedAtPtr() *time.Time {
	if !o.FromCache || o.CachedAt.IsZero() {
		return nil
	}
	t := o.CachedAt
	return &t
}

// CacheNote describes where the data came from, e.g. "from cache, updated 12m ago"
func CacheNote(fromCache bool, cachedAt, now time.Time) string {
	if !fromCache {
		return "fresh from API"
	}
	if cachedAt.IsZero() {
		return "from cache"
	}
	return "from cache, updated " + HumanizeAge(now.Sub(cachedAt)) + " ago"
}

// HumanizeAge renders a duration as the largest whole unit, e.g. "3h" or "45s"
func HumanizeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

// PrintAccounts writes accounts in the requested format
func PrintAccounts(w io.Writer, accounts []Account, opts OutputOptions, cfg *Config) error {
	if err := ValidateFormat(opts.Format); err != nil {
		return err
	}
	switch opts.Format {
	case FormatJSON:
		out := JSONAccountsOutput{Accounts: []JSONAccount{}, FromCache: opts.FromCache, CachedAt: opts.cachedAtPtr()}
		for _, acc := range accounts {
			out.Accounts = append(out.Accounts, JSONAccount{
				ID:          acc.ID,
				Name:        cfg.AccountName(acc),
				Type:        acc.Type,
				Institution: acc.Institution,
				Currency:    accountCurrency(acc, opts.Currency).Code,
				Current:     acc.Balance.Current,
				Available:   acc.Balance.Available,
			})
		}
		return writeJSON(w, out)

	case FormatList:
		l := list.NewWriter()
		l.SetOutputMirror(w)
		l.SetStyle(list.StyleConnectedRounded)
		for _, acc := range accounts {
			cur := accountCurrency(acc, opts.Currency)
			l.AppendItem(fmt.Sprintf("%s  %s", cfg.AccountName(acc), cur.Format(acc.Balance.Current)))
			l.Indent()
			l.AppendItem(fmt.Sprintf("%s · %s · %s", acc.Institution, acc.Type, acc.ID))
			l.UnIndent()
		}
		l.Render()
		return nil
	}

	plain := opts.Format != FormatTable
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Institution", "Type", "Available", "Balance", "ID"})
	for _, acc := range accounts {
		cur := accountCurrency(acc, opts.Currency)
		available := ""
		if acc.Balance.Available != nil {
			available = formatAmount(*acc.Balance.Available, cur, plain)
		}
		t.AppendRow(table.Row{
			cfg.AccountName(acc),
			acc.Institution,
			acc.Type,
			available,
			formatAmount(acc.Balance.Current, cur, plain),
			acc.ID,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	renderTable(t, opts.Format)
	if opts.Format == FormatTable {
		fmt.Fprintf(w, "%d accounts (%s)\n", len(accounts), CacheNote(opts.FromCache, opts.CachedAt, opts.Now))
	}
	return nil
}

// PrintTransactions writes transactions in the requested format. accounts is
// used to show account names and currencies; it may be empty.
func PrintTransactions(w io.Writer, txs []Transaction, accounts []Account, opts OutputOptions, cfg *Config) error {
	if err := ValidateFormat(opts.Format); err != nil {
		return err
	}
	byID := make(map[string]Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}
	accountLabel := func(id string) string {
		if acc, ok := byID[id]; ok {
			return cfg.AccountName(acc)
		}
		return id
	}
	currencyFor := func(id string) Currency {
		if acc, ok := byID[id]; ok {
			return accountCurrency(acc, opts.Currency)
		}
		return opts.Currency
	}

	in, out := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Amount.IsPositive() {
			in = in.Add(tx.Amount)
		} else {
			out = out.Add(tx.Amount)
		}
	}

	switch opts.Format {
	case FormatJSON:
		result := JSONTransactionsOutput{
			Transactions: []JSONTransaction{},
			Summary: JSONSummary{
				Count:    len(txs),
				In:       in,
				Out:      out,
				Net:      in.Add(out),
				Currency: opts.Currency.Code,
			},
			FromCache: opts.FromCache,
			CachedAt:  opts.cachedAtPtr(),
		}
		for _, tx := range txs {
			result.Transactions = append(result.Transactions, JSONTransaction{
				ID:          tx.ID,
				Date:        DateOf(tx.Date).String(),
				Account:     accountLabel(tx.AccountID),
				Description: tx.Description,
				Category:    cfg.Categorize(tx),
				Amount:      tx.Amount,
				Pending:     tx.Pending,
			})
		}
		return writeJSON(w, result)

	case FormatList:
		l := list.NewWriter()
		l.SetOutputMirror(w)
		l.SetStyle(list.StyleConnectedRounded)
		var current Date
		for i, tx := range txs {
			date := DateOf(tx.Date)
			if i == 0 || !date.Equal(current) {
				if i > 0 {
					l.UnIndent()
				}
				l.AppendItem(date.String())
				l.Indent()
				current = date
			}
			item := fmt.Sprintf("%s  %s", formatAmount(tx.Amount, currencyFor(tx.AccountID), false), tx.Description)
			if category := cfg.Categorize(tx); category != "" {
				item += " [" + category + "]"
			}
			l.AppendItem(item)
		}
		l.Render()
		return nil
	}

	plain := opts.Format != FormatTable
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Date", "Account", "Description", "Category", "Amount"})
	for _, tx := range txs {
		desc := tx.Description
		if tx.Pending && !plain {
			desc += text.FgHiBlack.Sprint(" (pending)")
		}
		t.AppendRow(table.Row{
			DateOf(tx.Date).String(),
			accountLabel(tx.AccountID),
			desc,
			cfg.Categorize(tx),
			formatAmount(tx.Amount, currencyFor(tx.AccountID), plain),
		})
	}
	if opts.Format == FormatTable {
		t.AppendSeparator()
		t.AppendFooter(table.Row{"", "", "", text.Bold.Sprint("In / Out"),
			text.Bold.Sprint(opts.Currency.Format(in) + " / " + opts.Currency.Format(out))})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
	})
	renderTable(t, opts.Format)
	if opts.Format == FormatTable {
		fmt.Fprintf(w, "%d transactions (%s)\n", len(txs), CacheNote(opts.FromCache, opts.CachedAt, opts.Now))
	}
	return nil
}

// JSONRecurringOutput is the root JSON object for recurring payment views
type JSONRecurringOutput struct {
	Recurring    []JSONRecurring `json:"recurring"`
	MonthlyTotal decimal.Decimal `json:"monthly_total"`
	YearlyTotal  decimal.Decimal `json:"yearly_total"`
	Currency     string          `json:"currency"`
}

// JSONRecurring is the JSON output format for a recurring payment
type JSONRecurring struct {
	Payee        string          `json:"payee"`
	Category     string          `json:"category,omitempty"`
	Status       RecurringStatus `json:"status"`
	TypicalDay   int             `json:"typical_day"`
	FirstDate    string          `json:"first_date"`
	LastDate     string          `json:"last_date"`
	AvgAmount    decimal.Decimal `json:"avg_amount"`
	LatestAmount decimal.Decimal `json:"latest_amount"`
	Charges      int             `json:"charges"`
}

// PrintRecurring writes recurring payments in the requested format. Totals
// count active payees only.
func PrintRecurring(w io.Writer, recurring []Recurring, opts OutputOptions) error {
	if err := ValidateFormat(opts.Format); err != nil {
		return err
	}
	monthly := MonthlyTotal(recurring)
	yearly := monthly.Mul(decimal.NewFromInt(12))

	switch opts.Format {
	case FormatJSON:
		out := JSONRecurringOutput{
			Recurring:    []JSONRecurring{},
			MonthlyTotal: monthly,
			YearlyTotal:  yearly,
			Currency:     opts.Currency.Code,
		}
		for _, r := range recurring {
			out.Recurring = append(out.Recurring, JSONRecurring{
				Payee:        r.Payee,
				Category:     r.Category,
				Status:       r.Status,
				TypicalDay:   r.TypicalDay,
				FirstDate:    r.FirstDate.String(),
				LastDate:     r.LastDate.String(),
				AvgAmount:    r.AvgAmount,
				LatestAmount: r.LatestAmount,
				Charges:      len(r.Transactions),
			})
		}
		return writeJSON(w, out)

	case FormatList:
		l := list.NewWriter()
		l.SetOutputMirror(w)
		l.SetStyle(list.StyleConnectedRounded)
		for _, r := range recurring {
			l.AppendItem(fmt.Sprintf("%s  %s/month (%s)", r.Payee, opts.Currency.Format(r.LatestAmount.Abs()), r.Status))
			l.Indent()
			for _, tx := range r.Transactions {
				l.AppendItem(fmt.Sprintf("%s  %s", DateOf(tx.Date), opts.Currency.Format(tx.Amount)))
			}
			l.UnIndent()
		}
		l.Render()
		return nil
	}

	plain := opts.Format != FormatTable
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Payee", "Category", "Status", "Day", "Since", "Last Seen", "Monthly", "Yearly"})
	for _, r := range recurring {
		status := strings.ToUpper(string(r.Status))
		monthlyStr := formatMagnitude(r.AvgAmount.Abs(), opts.Currency, plain)
		if !plain && !r.MinAmount.Equal(r.MaxAmount) {
			monthlyStr = opts.Currency.Format(r.MinAmount) + " - " + opts.Currency.Format(r.MaxAmount)
		}
		yearlyStr := formatMagnitude(r.LatestAmount.Abs().Mul(decimal.NewFromInt(12)), opts.Currency, plain)
		if r.Status == StatusStopped {
			yearlyStr = "-"
		}
		if !plain {
			if r.Status == StatusActive {
				status = text.FgGreen.Sprint(status)
			} else {
				status = text.FgRed.Sprint(status)
				yearlyStr = text.FgHiBlack.Sprint(yearlyStr)
			}
		}
		t.AppendRow(table.Row{
			r.Payee,
			r.Category,
			status,
			fmt.Sprintf("~%d", r.TypicalDay),
			r.FirstDate.String(),
			r.LastDate.String(),
			monthlyStr,
			yearlyStr,
		})
	}
	if opts.Format == FormatTable {
		t.AppendSeparator()
		t.AppendFooter(table.Row{"", "", "", "", "", text.Bold.Sprint("Total (active)"),
			text.Bold.Sprint(opts.Currency.Format(monthly)), text.Bold.Sprint(opts.Currency.Format(yearly))})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	renderTable(t, opts.Format)
	if opts.Format == FormatTable {
		active := len(FilterRecurring(recurring, string(StatusActive)))
		fmt.Fprintf(w, "%d recurring payments (%d active, %d stopped; %s)\n",
			len(recurring), active, len(recurring)-active, CacheNote(opts.FromCache, opts.CachedAt, opts.Now))
	}
	return nil
}

func formatMagnitude(amount decimal.Decimal, cur Currency, plain bool) string {
	if plain {
		return amount.StringFixed(2)
	}
	return cur.Format(amount)
}

// PrintCacheStatus writes a summary of both cache files
func PrintCacheStatus(w io.Writer, status CacheStatus, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Cache", "Entries", "Updated", "State", "File"})

	txState := text.FgYellow.Sprint("stale")
	if status.TransactionsFresh {
		txState = text.FgGreen.Sprint("fresh")
	}
	accState := text.FgYellow.Sprint("stale")
	if status.AccountsValid {
		accState = text.FgGreen.Sprint("fresh")
	}

	t.AppendRow(table.Row{"transactions", status.TransactionCount, describeUpdate(status.TransactionsUpdated, now), txState, status.TransactionsPath})
	t.AppendRow(table.Row{"accounts", status.AccountCount, describeUpdate(status.AccountsUpdated, now), accState, status.AccountsPath})
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Render()

	if len(status.CachedRanges) == 0 {
		fmt.Fprintln(w, "No cached transaction ranges")
	} else {
		fmt.Fprintln(w, "Cached transaction ranges:")
		for _, r := range status.CachedRanges {
			fmt.Fprintf(w, "  %s\n", r)
		}
	}

	p := status.Retry
	fmt.Fprintf(w, "Retries on fetch: up to %d, backoff %s..%s, at most %s waiting per call\n",
		p.MaxRetries, p.BaseDelay, p.MaxDelay, p.WorstCaseWait())
}

// PrintWarnings writes non-fatal warnings in yellow
func PrintWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintln(w, text.FgYellow.Sprint("Warning: "+msg))
	}
}

func describeUpdate(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return HumanizeAge(now.Sub(t)) + " ago"
}

func renderTable(t table.Writer, format string) {
	switch format {
	case FormatCSV:
		t.RenderCSV()
	case FormatMarkdown:
		t.RenderMarkdown()
	default:
		t.SetStyle(table.StyleRounded)
		t.Style().Format.Header = text.FormatDefault
		t.Style().Format.Footer = text.FormatDefault
		t.Render()
	}
}

func formatAmount(amount decimal.Decimal, cur Currency, plain bool) string {
	if plain {
		return amount.StringFixed(2)
	}
	s := cur.Format(amount)
	if amount.IsNegative() {
		return text.FgRed.Sprint(s)
	}
	return text.FgGreen.Sprint(s)
}

func accountCurrency(acc Account, fallback Currency) Currency {
	if acc.Currency == "" || strings.EqualFold(acc.Currency, fallback.Code) {
		return fallback
	}
	return GetCurrency(acc.Currency)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
