// Package export renders ledger views for use outside the application.
package export

import (
	"strings"

	"ledger/internal/core"
)

const header = "Date\tAmount\tDescription\n"

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// TSV renders c as tab-separated text with a header row. Amounts use the
// display format with symbol; every line ends with a newline.
func TSV(c core.Collection, symbol string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, e := range c {
		b.WriteString(cell(e.Date))
		b.WriteByte('\t')
		b.WriteString(core.FormatAmount(symbol, e.Amount))
		b.WriteByte('\t')
		b.WriteString(cell(e.Description))
		b.WriteByte('\n')
	}
	return b.String()
}

func cell(s string) string {
	return cellReplacer.Replace(s)
}
