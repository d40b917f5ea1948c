package models

import "github.com/shopspring/decimal"

// Request models
type SignUpRequest struct {
	Username    string   `json:"username" binding:"required,min=3"`
	Password    string   `json:"password" binding:"required,min=8"`
	Permissions []string `json:"permissions"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateTransactionRequest struct {
	Date   *string          `json:"date"` // ISO date or null to clear
	Docto  *string          `json:"docto"`
	Debit  *decimal.Decimal `json:"debit"`
	Credit *decimal.Decimal `json:"credit"`
	Agent  *string          `json:"agent"`
	Dim    *string          `json:"dim"`
}

type ReorderRequest struct {
	Client string  `json:"client" binding:"required"`
	IDs    []int64 `json:"ids" binding:"required,min=1"`
}

type MarkerRequest struct {
	Column string `json:"column" binding:"required,oneof=debe haber saldo"`
	Value  int    `json:"value"`
}

type ClearMarkersRequest struct {
	Client string `json:"client"` // blank clears every client
}

type OpeningBalanceRequest struct {
	Client string          `json:"client" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Side   string          `json:"side" binding:"required,oneof=debe haber"`
	Date   string          `json:"date" binding:"required"`
}

type PreferenceRequest struct {
	Client    string `json:"client" binding:"required"`
	GraceDays int    `json:"graceDays" binding:"required,min=1,max=365"`
}

type EmployeeRequest struct {
	Carnet      string          `json:"carnet"`
	FullName    string          `json:"fullName" binding:"required"`
	JobTitle    string          `json:"jobTitle"`
	CUA         string          `json:"cua"`
	CNS         string          `json:"cns"`
	CNSPatronal string          `json:"cnsPatronal"`
	HireDate    string          `json:"hireDate"` // ISO date, blank for unknown
	BaseSalary  decimal.Decimal `json:"baseSalary"`
}

type PayrollFieldRequest struct {
	Period     string      `json:"period" binding:"required,len=6,numeric"`
	EmployeeID int64       `json:"employeeId" binding:"required"`
	Field      string      `json:"field" binding:"required"`
	Value      interface{} `json:"value"`
}

type SnapshotRequest struct {
	Period string `json:"period" binding:"required,len=6,numeric"`
}

// Response models
type AuthResponse struct {
	Status      string   `json:"status"`
	UserID      string   `json:"userId,omitempty"`
	Username    string   `json:"username,omitempty"`
	Token       string   `json:"token,omitempty"`
	ExpiresIn   int      `json:"expiresIn,omitempty"`
	IsMaster    bool     `json:"isMaster"`
	Permissions []string `json:"permissions,omitempty"`
}

// UploadSummary reports one upload. The json keys match the spreadsheet
// vocabulary the users already know.
type UploadSummary struct {
	Status       string   `json:"status"`
	DryRun       bool     `json:"dryRun"`
	Processed    int      `json:"procesados"`
	Added        int      `json:"agregados"`
	Duplicates   int      `json:"duplicados"`
	Skipped      int      `json:"no_agregados"`
	Errors       []string `json:"errores"`
	Date         string   `json:"fecha"`
	Time         string   `json:"hora"`
	TotalRecords int64    `json:"total_registros"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
