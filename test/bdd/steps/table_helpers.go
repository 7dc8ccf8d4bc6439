package steps

import (
	"github.com/cucumber/godog"
	"github.com/cucumber/messages/go/v21"
)

// cellValue reads one named column from a data row, resolving the column
// index through the table's header row. Returns "" when the column or the
// cell is absent.
func cellValue(table *godog.Table, row *messages.PickleTableRow, column string) string {
	if len(table.Rows) == 0 {
		return ""
	}

	for i, header := range table.Rows[0].Cells {
		if header.Value == column {
			if i < len(row.Cells) {
				return row.Cells[i].Value
			}
			return ""
		}
	}
	return ""
}
