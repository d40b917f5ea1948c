// Package ingest parses uploaded spreadsheets into canonical transaction
// records. It validates the header row, normalizes dates and amounts and
// derives document codes and due dates. It never writes to the store; the
// caller decides whether to commit the records (enabling dry-run previews).
package ingest

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Record is one normalized spreadsheet row.
type Record struct {
	Client  string
	Date    string // ISO when parseable, trimmed passthrough otherwise
	Docto   string
	Detail  string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal
	Agent   string
	Dim     string
	DueDate string // ISO or empty
}

// SchemaError reports the required columns missing from an upload. The whole
// file is rejected; there is no partial ingestion of a malformed file.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("spreadsheet is missing required columns: %s", strings.Join(e.Missing, ", "))
}

// dueDateGraceDays is the fixed invoice/payment term applied at ingestion.
const dueDateGraceDays = 30

// headerAliases maps common header spellings to the canonical column names.
// An alias only applies when the canonical column is not already present.
var headerAliases = map[string]string{
	"DOC":         "DOC.",
	"DOCTO":       "DOC.",
	"DOCUMENTO":   "DOC.",
	"NRO FAC":     "NRO. FAC.",
	"NRO. FAC":    "NRO. FAC.",
	"NRO DOC":     "NRO. DOC.",
	"NRO. DOC":    "NRO. DOC.",
	"DEBE":        "DEBITO",
	"HABER":       "CREDITO",
	"SALDO FINAL": "SALDO",
	"DUI":         "DUI/DUE",
	"DUI DUE":     "DUI/DUE",
	"REFERENCIA":  "REFER.",
	"REFER":       "REFER.",
}

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"01/02/2006",
}

// Parse reads the first sheet of an xlsx stream and returns the normalized
// records. The first row is the header row.
func Parse(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not read spreadsheet: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Missing: []string{"CLIENTE", "FECHA", "DEBITO/CREDITO"}}
	}

	headers := normalizeHeaders(rows[0])
	if missing := validateHeaders(headers); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, buildRecord(row, index))
	}
	return records, nil
}

// normalizeHeaders uppercases, trims and collapses internal whitespace, then
// applies the alias table.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	present := make(map[string]bool, len(raw))
	for i, h := range raw {
		norm := strings.Join(strings.Fields(strings.ToUpper(strings.TrimSpace(h))), " ")
		headers[i] = norm
		present[norm] = true
	}
	for i, h := range headers {
		if target, ok := headerAliases[h]; ok && !present[target] {
			headers[i] = target
		}
	}
	return headers
}

// validateHeaders returns the missing required column names. CLIENTE and
// FECHA are mandatory, plus at least one of DEBITO/CREDITO.
func validateHeaders(headers []string) []string {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[h] = true
	}
	var missing []string
	for _, required := range []string{"CLIENTE", "FECHA"} {
		if !have[required] {
			missing = append(missing, required)
		}
	}
	if !have["DEBITO"] && !have["CREDITO"] {
		missing = append(missing, "DEBITO/CREDITO")
	}
	sort.Strings(missing)
	return missing
}

func buildRecord(row []string, index map[string]int) Record {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	client := SafeString(cell("CLIENTE"))
	date := NormalizeDate(cell("FECHA"))
	doc := SafeString(cell("DOC."))
	nroFac := SafeString(cell("NRO. FAC."))
	concept := SafeString(cell("CONCEPTO"))
	merchandise := SafeString(cell("MERCADERIA"))
	debit := SafeNumber(cell("DEBITO"))
	credit := SafeNumber(cell("CREDITO"))
	balance := SafeNumber(cell("SALDO"))
	agent := SafeString(cell("TRAMITE"))
	dim := SafeString(cell("DUI/DUE"))

	docto := strings.TrimSpace(doc + " " + nroFac)
	detail := strings.Trim(client+" - "+docto, " -")
	if client == "" && docto == "" {
		detail = concept
		if merchandise != "" {
			detail = strings.TrimSpace(concept + " - " + merchandise)
		}
	}

	return Record{
		Client:  client,
		Date:    date,
		Docto:   docto,
		Detail:  detail,
		Debit:   debit.Round(2),
		Credit:  credit.Round(2),
		Balance: balance.Round(2),
		Agent:   agent,
		Dim:     dim,
		DueDate: dueDate(doc, date),
	}
}

// dueDate computes date + 30 days, but only for invoice (FA) and payment
// (PG) document types with a parseable date.
func dueDate(docType, isoDate string) string {
	code := strings.ToUpper(strings.TrimSpace(docType))
	if !strings.HasPrefix(code, "FA") && !strings.HasPrefix(code, "PG") {
		return ""
	}
	d, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, dueDateGraceDays).Format("2006-01-02")
}

// SafeString trims a cell value; blank cells become the empty string.
func SafeString(v string) string {
	return strings.TrimSpace(v)
}

// NormalizeDate converts a cell value to ISO format, trying each accepted
// layout in order. Unparseable input passes through trimmed; it is never
// rejected.
func NormalizeDate(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return s
}

// SafeNumber parses a cell value leniently. Text with exactly one comma and
// more than one period is treated as European formatting (periods as
// thousands separators, comma as the decimal point). Any remaining failure
// strips everything but digits, '-' and '.', and a final failure yields zero:
// a single bad number never aborts a batch.
func SafeNumber(v string) decimal.Decimal {
	s := strings.TrimSpace(v)
	if s == "" {
		return decimal.Zero
	}
	if strings.Count(s, ",") == 1 && strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return -1
	}, s)
	if d, err := decimal.NewFromString(cleaned); err == nil {
		return d
	}
	return decimal.Zero
}
