package internal

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	transactionsSheet = "Transactions"
	accountsSheet     = "Accounts"
)

// ExportXLSX writes transactions and accounts to an Excel workbook at path.
// Amounts are written as numbers so the sheet can be summed.
func ExportXLSX(path string, txs []Transaction, accounts []Account, cfg *Config) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(accountsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	names := make(map[string]string, len(accounts))
	for _, acc := range accounts {
		names[acc.ID] = cfg.AccountName(acc)
	}

	txRows := [][]any{{"Date", "Account", "Description", "Merchant", "Category", "Amount", "Pending", "ID"}}
	for _, tx := range txs {
		account := names[tx.AccountID]
		if account == "" {
			account = tx.AccountID
		}
		txRows = append(txRows, []any{
			DateOf(tx.Date).String(),
			account,
			tx.Description,
			tx.Merchant,
			cfg.Categorize(tx),
			tx.Amount.InexactFloat64(),
			tx.Pending,
			tx.ID,
		})
	}
	if err := writeRows(f, transactionsSheet, txRows); err != nil {
		return err
	}

	accRows := [][]any{{"Name", "Institution", "Type", "Currency", "Balance", "Available", "ID"}}
	for _, acc := range accounts {
		var available any
		if acc.Balance.Available != nil {
			available = acc.Balance.Available.InexactFloat64()
		}
		accRows = append(accRows, []any{
			cfg.AccountName(acc),
			acc.Institution,
			acc.Type,
			acc.Currency,
			acc.Balance.Current.InexactFloat64(),
			available,
			acc.ID,
		})
	}
	if err := writeRows(f, accountsSheet, accRows); err != nil {
		return err
	}

	for sheet, cols := range map[string][2]string{transactionsSheet: {"F", "F"}, accountsSheet: {"E", "F"}} {
		if err := f.SetCellStyle(sheet, "A1", "H1", headerStyle); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
		last := len(txRows)
		if sheet == accountsSheet {
			last = len(accRows)
		}
		if last > 1 {
			if err := f.SetCellStyle(sheet, cols[0]+"2", fmt.Sprintf("%s%d", cols[1], last), moneyStyle); err != nil {
				return fmt.Errorf("styling amounts: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
