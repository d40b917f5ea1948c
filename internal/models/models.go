package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement kinds. A transaction is exactly one of the two.
const (
	KindCharge  = "CARGO"
	KindPayment = "PAGO"
)

// Opening balance sides.
const (
	SideDebit  = "debe"
	SideCredit = "haber"
)

// Highlight marker columns.
const (
	MarkerDebit   = "debe"
	MarkerCredit  = "haber"
	MarkerBalance = "saldo"
)

// Client represents a counterparty whose transactions are tracked.
// Identity is the trimmed full name, unique.
type Client struct {
	ID   int64  `db:"id_cliente" json:"id"`
	Name string `db:"nombre_completo" json:"name"`
}

// Transaction is a single ledger movement belonging to one client.
// The natural key (client, date, kind, amount, description) is unique
// among active rows and enforced by the database.
type Transaction struct {
	ID          int64           `db:"id_movimiento" json:"id"`
	ClientID    int64           `db:"id_cliente" json:"clientId"`
	ClientName  string          `db:"nombre_completo" json:"clientName"`
	Date        *time.Time      `db:"fecha" json:"date,omitempty"`
	Kind        string          `db:"tipo_de_movimiento" json:"kind"`
	Amount      decimal.Decimal `db:"monto" json:"amount"`
	Description string          `db:"descripcion" json:"description"`
	Docto       string          `db:"docto" json:"docto"`
	Agent       string          `db:"int_ag" json:"agent"`
	Dim         string          `db:"dim" json:"dim"`
	DueDate     *time.Time      `db:"condicion_de_pago" json:"dueDate,omitempty"`
	OrderIndex  *int64          `db:"order_index" json:"orderIndex,omitempty"`
	MarkDebit   int             `db:"mark_debe" json:"markDebit"`
	MarkCredit  int             `db:"mark_haber" json:"markCredit"`
	MarkBalance int             `db:"mark_saldo" json:"markBalance"`
	PaidOn      *time.Time      `db:"pagado_en" json:"paidOn,omitempty"`
	VoidedAt    *time.Time      `db:"anulada_en" json:"voidedAt,omitempty"`
}

// OpeningBalance is a client's carried-forward balance before the tracked
// history begins. At most one per client, upserted on re-save.
type OpeningBalance struct {
	ClientID   int64           `db:"id_cliente" json:"clientId"`
	ClientName string          `db:"nombre_completo" json:"clientName"`
	Amount     decimal.Decimal `db:"monto" json:"amount"`
	Side       string          `db:"lado" json:"side"`
	Date       time.Time       `db:"fecha" json:"date"`
}

// ClientPreference stores the per-client overdue grace period in days,
// applied when the statement is filtered to that client.
type ClientPreference struct {
	ClientID  int64 `db:"id_cliente" json:"clientId"`
	GraceDays int   `db:"dias_mora" json:"graceDays"`
}

// Employee is a payroll subject, identified by carnet.
type Employee struct {
	ID          int64           `db:"id_empleado" json:"id"`
	Carnet      string          `db:"carnet" json:"carnet"`
	FullName    string          `db:"nombres_apellidos" json:"fullName"`
	JobTitle    string          `db:"cargo" json:"jobTitle"`
	CUA         string          `db:"cua" json:"cua"`
	CNS         string          `db:"cns" json:"cns"`
	CNSPatronal string          `db:"cns_patronal" json:"cnsPatronal"`
	HireDate    *time.Time      `db:"fecha_ingreso" json:"hireDate,omitempty"`
	BaseSalary  decimal.Decimal `db:"haber_basico" json:"baseSalary"`
}

// PayrollItem holds one employee's editable inputs and derived totals for a
// monthly period (YYYYMM). Derived columns are recomputed and persisted on
// every field edit.
type PayrollItem struct {
	ID         int64  `db:"id_item" json:"id"`
	Period     string `db:"periodo_yyyymm" json:"period"`
	EmployeeID int64  `db:"id_empleado" json:"employeeId"`

	DaysWorked     int             `db:"dias_trab" json:"daysWorked"`
	SeniorityBonus decimal.Decimal `db:"bono_antiguedad" json:"seniorityBonus"`
	OtherIncome    decimal.Decimal `db:"otros_ingresos" json:"otherIncome"`
	Solidarity     decimal.Decimal `db:"ap_solidario" json:"solidarity"`
	AdvanceOnPay   decimal.Decimal `db:"quincena" json:"advanceOnPay"`
	CashAdvance    decimal.Decimal `db:"anticipos" json:"cashAdvance"`
	Loan           decimal.Decimal `db:"prestamos" json:"loan"`
	Entel          decimal.Decimal `db:"entel" json:"entel"`
	OtherDeduction decimal.Decimal `db:"otros_desc" json:"otherDeduction"`
	DelayPenalty   decimal.Decimal `db:"atrasos" json:"delayPenalty"`
	WithholdingTax decimal.Decimal `db:"rc_iva" json:"withholdingTax"`

	GrossPay          decimal.Decimal `db:"total_ganado" json:"grossPay"`
	MandatoryContrib  decimal.Decimal `db:"afp_1271" json:"mandatoryContrib"`
	TotalContrib      decimal.Decimal `db:"total_afps" json:"totalContrib"`
	TotalAdvances     decimal.Decimal `db:"total_anticipos" json:"totalAdvances"`
	TotalDeductions   decimal.Decimal `db:"total_desc" json:"totalDeductions"`
	TotalAllDeduction decimal.Decimal `db:"total_afp_ant_desc" json:"totalAllDeductions"`
	NetPay            decimal.Decimal `db:"liquido_pagable" json:"netPay"`
	WithholdingAccum  decimal.Decimal `db:"rc_iva_acum" json:"withholdingAccum"`
}

// PayrollSnapshot is an immutable capture of a period's payroll items.
type PayrollSnapshot struct {
	Period    string    `db:"periodo_yyyymm" json:"period"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Data      []byte    `db:"data" json:"data"`
}

// User is an application account. Master users bypass permission checks.
type User struct {
	ID           string    `db:"id_user" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsMaster     bool      `db:"is_master" json:"isMaster"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Permission codes carried in the JWT as the request capability set.
const (
	PermDashboardView   = "dashboard:view"
	PermStatementView   = "estado:view"
	PermStatementUpload = "estado:upload"
	PermStatementExport = "estado:export"
	PermVoidedView      = "estado:anuladas:view"
	PermBalancesManage  = "estado:saldos:manage"
	PermPrefsManage     = "estado:prefs:manage"
	PermPayrollView     = "planilla:view"
	PermPayrollEdit     = "planilla:edit"
	PermEmployeesView   = "planilla:empleados:view"
	PermPayrollPeriod   = "planilla:periodo:view"
	PermAdminUsers      = "admin:users"
)

// AllPermissions lists every known permission code with its description,
// used when seeding the permissions table.
var AllPermissions = map[string]string{
	PermDashboardView:   "Ver Dashboard",
	PermStatementView:   "Ver Estado de Cuenta",
	PermStatementUpload: "Cargar/Editar Estado de Cuenta",
	PermStatementExport: "Exportar Estado de Cuenta",
	PermVoidedView:      "Ver Anuladas",
	PermBalancesManage:  "Gestionar Saldos Anteriores",
	PermPrefsManage:     "Gestionar Preferencias de Cliente",
	PermPayrollView:     "Ver Planilla de Sueldos",
	PermPayrollEdit:     "Editar Planilla de Sueldos",
	PermEmployeesView:   "Ver Registro de Trabajadores",
	PermPayrollPeriod:   "Ver Planilla Mensual",
	PermAdminUsers:      "Administrar Usuarios y Permisos",
}
