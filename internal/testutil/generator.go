package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var accounts = []string{
	"expenses:food:groceries",
	"expenses:food:restaurants",
	"expenses:transport:fuel",
	"expenses:utilities:electricity",
	"expenses:utilities:water",
	"assets:bank:checking",
	"assets:bank:savings",
	"assets:cash",
	"liabilities:credit:visa",
	"income:salary",
}

// Payees repeat so that generated journals build templates and recent
// buffers the way a real journal does.
var payees = []string{
	"Grocery Store",
	"Gas Station",
	"Amazon",
	"Магазин",
	"Магнит",
	"Пятёрочка",
	"Coffee Shop",
}

var commodities = []string{"$", "EUR", "RUB"}

// Accounts returns the account names GenerateJournal draws from.
func Accounts() []string {
	return append([]string(nil), accounts...)
}

// Payees returns the payee names GenerateJournal draws from.
func Payees() []string {
	return append([]string(nil), payees...)
}

// GenerateJournal writes numTransactions transactions preceded by account,
// commodity and payee declarations.
func GenerateJournal(numTransactions int) string {
	var sb strings.Builder

	for _, acc := range accounts[:5] {
		fmt.Fprintf(&sb, "account %s\n", acc)
	}
	sb.WriteString("commodity $1,000.00\n")
	sb.WriteString("commodity 1.000,00 EUR\n")
	fmt.Fprintf(&sb, "payee %s\n\n", payees[0])

	for i := range numTransactions {
		year := 2020 + (i / 365)
		month := (i/30)%12 + 1
		day := i%28 + 1

		payee := payees[i%len(payees)]
		fromAcc := accounts[i%len(accounts)]
		toAcc := accounts[(i/len(payees)+3)%len(accounts)]
		commodity := commodities[i%len(commodities)]
		amount := (i%1000 + 1) * 10

		fmt.Fprintf(&sb, "%04d-%02d-%02d * %s | note %d\n", year, month, day, payee, i)
		fmt.Fprintf(&sb, "    %s  %s\n", fromAcc, formatAmount(commodity, amount))

		if i%5 == 0 {
			fmt.Fprintf(&sb, "    %s  %s @ $1.10\n", toAcc, formatAmount(commodity, amount))
			sb.WriteString("    assets:cash\n")
		} else {
			fmt.Fprintf(&sb, "    %s\n", toAcc)
		}

		if i%10 == 0 {
			fmt.Fprintf(&sb, "    ; project:p%d, billable:yes\n", i%3)
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

func formatAmount(commodity string, cents int) string {
	switch commodity {
	case "$":
		return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	case "EUR":
		return fmt.Sprintf("%d,%02d EUR", cents/100, cents%100)
	default:
		return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, commodity)
	}
}

// GenerateIncludeTree writes numFiles journals plus a main.journal that
// includes them all and returns the main file path.
func GenerateIncludeTree(tmpDir string, numFiles, txPerFile int) (string, error) {
	var mainContent strings.Builder

	for i := range numFiles {
		filename := fmt.Sprintf("file%d.journal", i)
		fmt.Fprintf(&mainContent, "include %s\n", filename)

		content := GenerateJournal(txPerFile)
		filePath := filepath.Join(tmpDir, filename)
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return "", err
		}
	}

	mainPath := filepath.Join(tmpDir, "main.journal")
	if err := os.WriteFile(mainPath, []byte(mainContent.String()), 0644); err != nil {
		return "", err
	}

	return mainPath, nil
}
