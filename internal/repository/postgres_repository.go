package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rvelasco/contable-server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// Client operations
	GetOrCreateClient(ctx context.Context, name string) (*models.Client, error)
	GetClientByName(ctx context.Context, name string) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)

	// Transaction operations
	InsertTransaction(ctx context.Context, tx *models.Transaction) (bool, error)
	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	VoidTransaction(ctx context.Context, id int64) error
	MarkPaid(ctx context.Context, id int64) error
	Reorder(ctx context.Context, clientID int64, orderedIDs []int64) error
	SetCellMarker(ctx context.Context, id int64, column string, value int) error
	ClearMarkers(ctx context.Context, clientName string) error
	ListActiveTransactions(ctx context.Context) ([]models.Transaction, error)
	ListVoidedTransactions(ctx context.Context) ([]models.Transaction, error)
	CountActiveTransactions(ctx context.Context) (int64, error)

	// Opening balance operations
	UpsertOpeningBalance(ctx context.Context, clientID int64, amount decimal.Decimal, side string, date time.Time) error
	DeleteOpeningBalance(ctx context.Context, clientName string) error
	ListOpeningBalances(ctx context.Context) ([]models.OpeningBalance, error)

	// Client preference operations
	GetClientPreference(ctx context.Context, clientID int64) (*models.ClientPreference, error)
	UpsertClientPreference(ctx context.Context, clientID int64, graceDays int) error

	// Employee operations
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*models.Employee, error)
	CreateEmployee(ctx context.Context, e *models.Employee) error
	UpdateEmployee(ctx context.Context, e *models.Employee) error

	// Payroll operations
	EnsurePayrollItem(ctx context.Context, period string, employeeID int64) error
	GetPayrollItem(ctx context.Context, period string, employeeID int64) (*models.PayrollItem, error)
	ListPayrollItems(ctx context.Context, period string) ([]models.PayrollItem, error)
	UpdatePayrollInput(ctx context.Context, period string, employeeID int64, column string, value interface{}) error
	UpdatePayrollDerived(ctx context.Context, item *models.PayrollItem) error
	SavePayrollSnapshot(ctx context.Context, period string, data []byte) error
	MonthlyNetPay(ctx context.Context, year int) (map[string]decimal.Decimal, error)

	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUserPermissions(ctx context.Context, userID string) ([]string, error)
	GrantPermission(ctx context.Context, userID, code string) error
	SeedPermissionCodes(ctx context.Context) error
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// Client repository methods
func (r *PostgresRepository) GetOrCreateClient(ctx context.Context, name string) (*models.Client, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, nil // blank names never create a client
	}

	client, err := r.GetClientByName(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if client != nil {
		return client, nil
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO clientes (nombre_completo) VALUES ($1)
		ON CONFLICT (nombre_completo) DO NOTHING RETURNING id_cliente`,
		trimmed).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race, the row exists now
			return r.GetClientByName(ctx, trimmed)
		}
		return nil, err
	}

	return &models.Client{ID: id, Name: trimmed}, nil
}

func (r *PostgresRepository) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	query := `SELECT id_cliente, nombre_completo FROM clientes WHERE nombre_completo = $1`

	var client models.Client
	err := r.db.GetContext(ctx, &client, query, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Client not found
		}
		return nil, err
	}

	return &client, nil
}

func (r *PostgresRepository) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.SelectContext(ctx, &clients,
		`SELECT id_cliente, nombre_completo FROM clientes ORDER BY nombre_completo ASC`)
	if err != nil {
		return nil, err
	}
	return clients, nil
}

// Transaction repository methods

// InsertTransaction inserts a transaction unless a row with the same natural
// key already exists. Dedup relies on the ux_movimientos_natural unique index
// rather than a query-then-insert check, so concurrent overlapping uploads
// cannot race past each other. Returns false when the row was a duplicate.
func (r *PostgresRepository) InsertTransaction(ctx context.Context, t *models.Transaction) (bool, error) {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	defer func() {
		if err != nil {
			dbtx.Rollback()
			return
		}
	}()

	// Next manual order position for the client
	var nextOrder int64
	err = dbtx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index), 0) + 1 FROM movimientos WHERE id_cliente = $1`,
		t.ClientID).Scan(&nextOrder)
	if err != nil {
		return false, err
	}

	var id int64
	err = dbtx.QueryRowContext(ctx,
		`INSERT INTO movimientos
			(id_cliente, fecha, tipo_de_movimiento, monto, descripcion, docto, int_ag, dim, condicion_de_pago, order_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id_cliente, fecha, tipo_de_movimiento, monto, descripcion) DO NOTHING
		RETURNING id_movimiento`,
		t.ClientID, t.Date, t.Kind, t.Amount, t.Description, t.Docto, t.Agent, t.Dim, t.DueDate, nextOrder).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return false, dbtx.Commit()
	}
	if err != nil {
		return false, err
	}

	t.ID = id
	t.OrderIndex = &nextOrder
	return true, dbtx.Commit()
}

const transactionColumns = `
	m.id_movimiento, m.id_cliente, c.nombre_completo, m.fecha, m.tipo_de_movimiento,
	m.monto, m.descripcion, m.docto, m.int_ag, m.dim, m.condicion_de_pago,
	m.order_index, m.mark_debe, m.mark_haber, m.mark_saldo, m.pagado_en, m.anulada_en`

func (r *PostgresRepository) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM movimientos m JOIN clientes c ON c.id_cliente = m.id_cliente
		WHERE m.id_movimiento = $1`

	var t models.Transaction
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Transaction not found
		}
		return nil, err
	}

	return &t, nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE movimientos SET
			id_cliente = $1, fecha = $2, tipo_de_movimiento = $3, monto = $4,
			descripcion = $5, docto = $6, int_ag = $7, dim = $8, condicion_de_pago = $9
		WHERE id_movimiento = $10`,
		t.ClientID, t.Date, t.Kind, t.Amount, t.Description, t.Docto, t.Agent, t.Dim, t.DueDate, t.ID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM movimientos WHERE id_movimiento = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// VoidTransaction soft-deletes a transaction. The row is retained, excluded
// from balance computation and shown in the voided view.
func (r *PostgresRepository) VoidTransaction(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE movimientos SET anulada_en = NOW() WHERE id_movimiento = $1 AND anulada_en IS NULL`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE movimientos SET pagado_en = CURRENT_DATE WHERE id_movimiento = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Reorder assigns sequential positions 1..N following the given id order.
// All position updates are applied in one database transaction.
func (r *PostgresRepository) Reorder(ctx context.Context, clientID int64, orderedIDs []int64) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbtx.Rollback()
			return
		}
	}()

	for pos, id := range orderedIDs {
		_, err = dbtx.ExecContext(ctx,
			`UPDATE movimientos SET order_index = $1 WHERE id_movimiento = $2 AND id_cliente = $3`,
			pos+1, id, clientID)
		if err != nil {
			return err
		}
	}

	return dbtx.Commit()
}

var markerColumns = map[string]string{
	models.MarkerDebit:   "mark_debe",
	models.MarkerCredit:  "mark_haber",
	models.MarkerBalance: "mark_saldo",
}

// SetCellMarker sets the highlight marker of one display cell. Values are
// clamped to 0-9; a negative value clears all three markers of the row.
func (r *PostgresRepository) SetCellMarker(ctx context.Context, id int64, column string, value int) error {
	col, ok := markerColumns[column]
	if !ok {
		return errors.New("unknown marker column: " + column)
	}
	if value < 0 {
		result, err := r.db.ExecContext(ctx,
			`UPDATE movimientos SET mark_debe = 0, mark_haber = 0, mark_saldo = 0
			WHERE id_movimiento = $1`, id)
		if err != nil {
			return err
		}
		return requireRow(result)
	}
	if value > 9 {
		value = 9
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE movimientos SET `+col+` = $1 WHERE id_movimiento = $2`, value, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ClearMarkers resets all markers for one client, or for every row when the
// client name is blank.
func (r *PostgresRepository) ClearMarkers(ctx context.Context, clientName string) error {
	if strings.TrimSpace(clientName) == "" {
		_, err := r.db.ExecContext(ctx,
			`UPDATE movimientos SET mark_debe = 0, mark_haber = 0, mark_saldo = 0`)
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE movimientos SET mark_debe = 0, mark_haber = 0, mark_saldo = 0
		FROM clientes c
		WHERE c.id_cliente = movimientos.id_cliente AND c.nombre_completo = $1`,
		strings.TrimSpace(clientName))
	return err
}

func (r *PostgresRepository) ListActiveTransactions(ctx context.Context) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM movimientos m JOIN clientes c ON c.id_cliente = m.id_cliente
		WHERE m.anulada_en IS NULL`

	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, query)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (r *PostgresRepository) ListVoidedTransactions(ctx context.Context) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM movimientos m JOIN clientes c ON c.id_cliente = m.id_cliente
		WHERE m.anulada_en IS NOT NULL
		ORDER BY m.anulada_en DESC`

	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, query)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (r *PostgresRepository) CountActiveTransactions(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM movimientos WHERE anulada_en IS NULL`)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Opening balance repository methods
func (r *PostgresRepository) UpsertOpeningBalance(
	ctx context.Context,
	clientID int64,
	amount decimal.Decimal,
	side string,
	date time.Time,
) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saldos_iniciales (id_cliente, monto, lado, fecha)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id_cliente) DO UPDATE
		SET monto = EXCLUDED.monto, lado = EXCLUDED.lado, fecha = EXCLUDED.fecha`,
		clientID, amount, side, date)
	return err
}

func (r *PostgresRepository) DeleteOpeningBalance(ctx context.Context, clientName string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saldos_iniciales USING clientes c
		WHERE saldos_iniciales.id_cliente = c.id_cliente AND c.nombre_completo = $1`,
		strings.TrimSpace(clientName))
	return err
}

func (r *PostgresRepository) ListOpeningBalances(ctx context.Context) ([]models.OpeningBalance, error) {
	var balances []models.OpeningBalance
	err := r.db.SelectContext(ctx, &balances,
		`SELECT s.id_cliente, c.nombre_completo, s.monto, s.lado, s.fecha
		FROM saldos_iniciales s JOIN clientes c ON c.id_cliente = s.id_cliente`)
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// Client preference repository methods
func (r *PostgresRepository) GetClientPreference(ctx context.Context, clientID int64) (*models.ClientPreference, error) {
	var pref models.ClientPreference
	err := r.db.GetContext(ctx, &pref,
		`SELECT id_cliente, dias_mora FROM cliente_prefs WHERE id_cliente = $1`, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No preference stored
		}
		return nil, err
	}
	return &pref, nil
}

func (r *PostgresRepository) UpsertClientPreference(ctx context.Context, clientID int64, graceDays int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cliente_prefs (id_cliente, dias_mora) VALUES ($1, $2)
		ON CONFLICT (id_cliente) DO UPDATE SET dias_mora = EXCLUDED.dias_mora`,
		clientID, graceDays)
	return err
}

// requireRow converts a zero-row update/delete into sql.ErrNoRows so callers
// can surface not-found errors.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
