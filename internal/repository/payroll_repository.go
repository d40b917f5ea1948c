package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rvelasco/contable-server/internal/models"
)

// Employee repository methods
func (r *PostgresRepository) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := r.db.SelectContext(ctx, &employees,
		`SELECT id_empleado, COALESCE(carnet, '') AS carnet, nombres_apellidos, cargo, cua, cns,
			cns_patronal, fecha_ingreso, haber_basico
		FROM empleados ORDER BY nombres_apellidos ASC`)
	if err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *PostgresRepository) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	var e models.Employee
	err := r.db.GetContext(ctx, &e,
		`SELECT id_empleado, COALESCE(carnet, '') AS carnet, nombres_apellidos, cargo, cua, cns,
			cns_patronal, fecha_ingreso, haber_basico
		FROM empleados WHERE id_empleado = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Employee not found
		}
		return nil, err
	}
	return &e, nil
}

func (r *PostgresRepository) CreateEmployee(ctx context.Context, e *models.Employee) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO empleados (carnet, nombres_apellidos, cargo, cua, cns, cns_patronal, fecha_ingreso, haber_basico)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id_empleado`,
		e.Carnet, e.FullName, e.JobTitle, e.CUA, e.CNS, e.CNSPatronal, e.HireDate, e.BaseSalary).Scan(&e.ID)
}

func (r *PostgresRepository) UpdateEmployee(ctx context.Context, e *models.Employee) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE empleados SET carnet = $1, nombres_apellidos = $2, cargo = $3, cua = $4,
			cns = $5, cns_patronal = $6, fecha_ingreso = $7, haber_basico = $8
		WHERE id_empleado = $9`,
		e.Carnet, e.FullName, e.JobTitle, e.CUA, e.CNS, e.CNSPatronal, e.HireDate, e.BaseSalary, e.ID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Payroll repository methods

// EnsurePayrollItem creates the (period, employee) row with default zeros if
// it does not exist yet.
func (r *PostgresRepository) EnsurePayrollItem(ctx context.Context, period string, employeeID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO planilla_items (periodo_yyyymm, id_empleado) VALUES ($1, $2)
		ON CONFLICT (periodo_yyyymm, id_empleado) DO NOTHING`,
		period, employeeID)
	return err
}

const payrollItemColumns = `
	id_item, periodo_yyyymm, id_empleado, dias_trab, bono_antiguedad, otros_ingresos,
	ap_solidario, quincena, anticipos, prestamos, entel, otros_desc, atrasos, rc_iva,
	total_ganado, afp_1271, total_afps, total_anticipos, total_desc, total_afp_ant_desc,
	liquido_pagable, rc_iva_acum`

func (r *PostgresRepository) GetPayrollItem(ctx context.Context, period string, employeeID int64) (*models.PayrollItem, error) {
	var item models.PayrollItem
	err := r.db.GetContext(ctx, &item,
		`SELECT `+payrollItemColumns+` FROM planilla_items
		WHERE periodo_yyyymm = $1 AND id_empleado = $2`, period, employeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No item for this period yet
		}
		return nil, err
	}
	return &item, nil
}

func (r *PostgresRepository) ListPayrollItems(ctx context.Context, period string) ([]models.PayrollItem, error) {
	var items []models.PayrollItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT `+payrollItemColumns+` FROM planilla_items WHERE periodo_yyyymm = $1`, period)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// payrollInputColumns is the set of columns UpdatePayrollInput may touch.
// The calculator validates field names against its allow-list before they
// reach this map; both must stay in sync.
var payrollInputColumns = map[string]bool{
	"dias_trab":       true,
	"bono_antiguedad": true,
	"otros_ingresos":  true,
	"ap_solidario":    true,
	"quincena":        true,
	"anticipos":       true,
	"prestamos":       true,
	"entel":           true,
	"otros_desc":      true,
	"atrasos":         true,
	"rc_iva":          true,
}

func (r *PostgresRepository) UpdatePayrollInput(
	ctx context.Context,
	period string,
	employeeID int64,
	column string,
	value interface{},
) error {
	if !payrollInputColumns[column] {
		return fmt.Errorf("column %q is not an editable payroll input", column)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE planilla_items SET `+column+` = $1 WHERE periodo_yyyymm = $2 AND id_empleado = $3`,
		value, period, employeeID)
	return err
}

// UpdatePayrollDerived persists the recomputed totals of one item.
func (r *PostgresRepository) UpdatePayrollDerived(ctx context.Context, item *models.PayrollItem) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE planilla_items SET
			total_ganado = $1, afp_1271 = $2, total_afps = $3, total_anticipos = $4,
			total_desc = $5, total_afp_ant_desc = $6, liquido_pagable = $7
		WHERE periodo_yyyymm = $8 AND id_empleado = $9`,
		item.GrossPay, item.MandatoryContrib, item.TotalContrib, item.TotalAdvances,
		item.TotalDeductions, item.TotalAllDeduction, item.NetPay,
		item.Period, item.EmployeeID)
	return err
}

func (r *PostgresRepository) SavePayrollSnapshot(ctx context.Context, period string, data []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO planilla_snapshots (periodo_yyyymm, data) VALUES ($1, $2)`,
		period, data)
	return err
}

// MonthlyNetPay returns the summed net pay per period for one year, keyed by
// the YYYYMM period token.
func (r *PostgresRepository) MonthlyNetPay(ctx context.Context, year int) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT periodo_yyyymm, COALESCE(SUM(liquido_pagable), 0) AS total
		FROM planilla_items
		WHERE LEFT(periodo_yyyymm, 4) = $1
		GROUP BY periodo_yyyymm`,
		fmt.Sprintf("%d", year))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var period string
		var total decimal.Decimal
		if err := rows.Scan(&period, &total); err != nil {
			return nil, err
		}
		totals[period] = total
	}
	return totals, rows.Err()
}
