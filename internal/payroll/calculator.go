// Package payroll computes monthly payroll line items. There is no workflow
// state: every field edit recomputes all derived totals from the current
// inputs and the employee's base salary.
package payroll

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rvelasco/contable-server/internal/models"
)

// ContributionRate is the fixed mandatory contribution rate applied to gross
// pay.
var ContributionRate = decimal.RequireFromString("0.1271")

// ErrInvalidField is returned when an edit names a field outside the
// editable allow-list.
var ErrInvalidField = errors.New("field is not editable")

// FieldKind tells how a raw edit value is converted.
type FieldKind int

const (
	FieldInt FieldKind = iota
	FieldNumber
)

// EditableFields is the allow-list of per-period inputs. The keys double as
// storage column names.
var EditableFields = map[string]FieldKind{
	"dias_trab":       FieldInt,
	"bono_antiguedad": FieldNumber,
	"otros_ingresos":  FieldNumber,
	"ap_solidario":    FieldNumber,
	"quincena":        FieldNumber,
	"anticipos":       FieldNumber,
	"prestamos":       FieldNumber,
	"entel":           FieldNumber,
	"otros_desc":      FieldNumber,
	"atrasos":         FieldNumber,
	"rc_iva":          FieldNumber,
}

// Totals are the derived payroll figures, each rounded to 2 decimals at its
// own step.
type Totals struct {
	GrossPay           decimal.Decimal `json:"grossPay"`
	MandatoryContrib   decimal.Decimal `json:"mandatoryContrib"`
	TotalContrib       decimal.Decimal `json:"totalContrib"`
	TotalAdvances      decimal.Decimal `json:"totalAdvances"`
	TotalDeductions    decimal.Decimal `json:"totalDeductions"`
	TotalAllDeductions decimal.Decimal `json:"totalAllDeductions"`
	NetPay             decimal.Decimal `json:"netPay"`
}

// Recalculate derives all totals from an item's inputs and the employee's
// base salary. Net pay never goes below zero.
func Recalculate(baseSalary decimal.Decimal, item *models.PayrollItem) Totals {
	gross := baseSalary.Add(item.SeniorityBonus).Add(item.OtherIncome).Round(2)
	mandatory := gross.Mul(ContributionRate).Round(2)
	contrib := mandatory.Add(item.Solidarity).Round(2)
	advances := item.AdvanceOnPay.Add(item.CashAdvance).Add(item.Loan).Round(2)
	deductions := item.Entel.Add(item.OtherDeduction).Add(item.DelayPenalty).Add(item.WithholdingTax).Round(2)
	all := contrib.Add(advances).Add(deductions).Round(2)
	net := gross.Sub(all).Round(2)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return Totals{
		GrossPay:           gross,
		MandatoryContrib:   mandatory,
		TotalContrib:       contrib,
		TotalAdvances:      advances,
		TotalDeductions:    deductions,
		TotalAllDeductions: all,
		NetPay:             net,
	}
}

// Apply writes the totals back onto the item.
func (t Totals) Apply(item *models.PayrollItem) {
	item.GrossPay = t.GrossPay
	item.MandatoryContrib = t.MandatoryContrib
	item.TotalContrib = t.TotalContrib
	item.TotalAdvances = t.TotalAdvances
	item.TotalDeductions = t.TotalDeductions
	item.TotalAllDeduction = t.TotalAllDeductions
	item.NetPay = t.NetPay
}

// ParseFieldValue validates the field name against the allow-list and
// converts the raw value. Numeric parsing is tolerant: commas become decimal
// points, spaces are stripped, and unparseable input yields zero instead of
// an error.
func ParseFieldValue(field string, raw interface{}) (interface{}, error) {
	kind, ok := EditableFields[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidField, field)
	}
	if kind == FieldInt {
		return toInt(raw), nil
	}
	return toNumber(raw), nil
}

func toInt(raw interface{}) int {
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		n, err := strconv.Atoi(strings.TrimSpace(fmt.Sprint(raw)))
		if err != nil {
			return 0
		}
		return n
	}
}

func toNumber(raw interface{}) decimal.Decimal {
	switch v := raw.(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case decimal.Decimal:
		return v
	}
	s := fmt.Sprint(raw)
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
