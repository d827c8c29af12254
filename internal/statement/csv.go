package statement

import (
	"strings"

	"github.com/dvloznov/statement-core/internal/domain"
)

// SplitCSV splits CSV content into rows with a naive comma split.
// Quoted fields and escaped commas are not supported.
func SplitCSV(content string) [][]string {
	content = strings.TrimPrefix(content, "\uFEFF")
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, ",")
		for i := range cells {
			cells[i] = strings.Trim(strings.TrimSpace(cells[i]), `"`)
		}
		rows = append(rows, cells)
	}
	return rows
}

// ExtractCSV parses a comma-separated bank export.
func ExtractCSV(content []byte, bank domain.Bank) (*domain.Statement, error) {
	return ExtractRows(SplitCSV(string(content)), bank)
}
