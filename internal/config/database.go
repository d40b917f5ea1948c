package config

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create clients table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS clientes (
			id_cliente SERIAL PRIMARY KEY,
			nombre_completo VARCHAR(255) UNIQUE NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create transactions table with the natural-key unique index that
	// backs insert-or-ignore deduplication
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS movimientos (
			id_movimiento SERIAL PRIMARY KEY,
			id_cliente INTEGER NOT NULL REFERENCES clientes(id_cliente) ON DELETE CASCADE,
			fecha DATE,
			tipo_de_movimiento VARCHAR(50) NOT NULL,
			monto NUMERIC(12,2) NOT NULL,
			descripcion TEXT NOT NULL DEFAULT '',
			docto VARCHAR(255) NOT NULL DEFAULT '',
			int_ag VARCHAR(255) NOT NULL DEFAULT '',
			dim VARCHAR(255) NOT NULL DEFAULT '',
			condicion_de_pago DATE,
			order_index INTEGER,
			mark_debe INTEGER NOT NULL DEFAULT 0,
			mark_haber INTEGER NOT NULL DEFAULT 0,
			mark_saldo INTEGER NOT NULL DEFAULT 0,
			pagado_en DATE,
			anulada_en TIMESTAMP WITHOUT TIME ZONE
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS ux_movimientos_natural
		ON movimientos (id_cliente, fecha, tipo_de_movimiento, monto, descripcion)
	`)
	if err != nil {
		return err
	}

	// Create opening balances table (one row per client, upserted)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS saldos_iniciales (
			id_cliente INTEGER PRIMARY KEY REFERENCES clientes(id_cliente) ON DELETE CASCADE,
			monto NUMERIC(12,2) NOT NULL DEFAULT 0,
			lado VARCHAR(10) NOT NULL DEFAULT 'haber',
			fecha DATE NOT NULL DEFAULT DATE '2025-01-01'
		)
	`)
	if err != nil {
		return err
	}

	// Create client preferences table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cliente_prefs (
			id_cliente INTEGER PRIMARY KEY REFERENCES clientes(id_cliente) ON DELETE CASCADE,
			dias_mora INTEGER NOT NULL DEFAULT 30
		)
	`)
	if err != nil {
		return err
	}

	// Create employees table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS empleados (
			id_empleado SERIAL PRIMARY KEY,
			carnet VARCHAR(50) UNIQUE,
			nombres_apellidos VARCHAR(255) NOT NULL,
			cargo VARCHAR(120) NOT NULL DEFAULT '',
			cua VARCHAR(50) NOT NULL DEFAULT '',
			cns VARCHAR(50) NOT NULL DEFAULT '',
			cns_patronal VARCHAR(50) NOT NULL DEFAULT '',
			fecha_ingreso DATE,
			haber_basico NUMERIC(12,2) NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return err
	}

	// Create payroll items table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS planilla_items (
			id_item SERIAL PRIMARY KEY,
			periodo_yyyymm VARCHAR(6) NOT NULL,
			id_empleado INTEGER NOT NULL REFERENCES empleados(id_empleado) ON DELETE CASCADE,
			dias_trab INTEGER NOT NULL DEFAULT 30,
			bono_antiguedad NUMERIC(12,2) NOT NULL DEFAULT 0,
			otros_ingresos NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_ganado NUMERIC(12,2) NOT NULL DEFAULT 0,
			afp_1271 NUMERIC(12,2) NOT NULL DEFAULT 0,
			ap_solidario NUMERIC(12,2) NOT NULL DEFAULT 0,
			quincena NUMERIC(12,2) NOT NULL DEFAULT 0,
			anticipos NUMERIC(12,2) NOT NULL DEFAULT 0,
			prestamos NUMERIC(12,2) NOT NULL DEFAULT 0,
			entel NUMERIC(12,2) NOT NULL DEFAULT 0,
			otros_desc NUMERIC(12,2) NOT NULL DEFAULT 0,
			atrasos NUMERIC(12,2) NOT NULL DEFAULT 0,
			rc_iva NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_afps NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_anticipos NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_desc NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_afp_ant_desc NUMERIC(12,2) NOT NULL DEFAULT 0,
			liquido_pagable NUMERIC(12,2) NOT NULL DEFAULT 0,
			rc_iva_acum NUMERIC(12,2) NOT NULL DEFAULT 0,
			UNIQUE (periodo_yyyymm, id_empleado)
		)
	`)
	if err != nil {
		return err
	}

	// Create payroll snapshots table (append only)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS planilla_snapshots (
			periodo_yyyymm VARCHAR(6) NOT NULL,
			created_at TIMESTAMP WITHOUT TIME ZONE NOT NULL DEFAULT NOW(),
			data JSONB NOT NULL,
			PRIMARY KEY (periodo_yyyymm, created_at)
		)
	`)
	if err != nil {
		return err
	}

	// Create users and permissions tables
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id_user VARCHAR(36) PRIMARY KEY,
			username VARCHAR(120) UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			is_master BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS permissions (
			code VARCHAR(120) PRIMARY KEY,
			description VARCHAR(255)
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS user_permissions (
			id_user VARCHAR(36) NOT NULL REFERENCES users(id_user) ON DELETE CASCADE,
			perm_code VARCHAR(120) NOT NULL REFERENCES permissions(code) ON DELETE CASCADE,
			PRIMARY KEY (id_user, perm_code)
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_movimientos_cliente ON movimientos(id_cliente)",
		"CREATE INDEX IF NOT EXISTS idx_movimientos_anulada ON movimientos(anulada_en)",
		"CREATE INDEX IF NOT EXISTS idx_planilla_items_periodo ON planilla_items(periodo_yyyymm)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}
