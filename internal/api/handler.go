package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rvelasco/contable-server/internal/ingest"
	"github.com/rvelasco/contable-server/internal/models"
	"github.com/rvelasco/contable-server/internal/payroll"
	"github.com/rvelasco/contable-server/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler holds the API handlers
type Handler struct {
	svc service.Service
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service) *Handler {
	return &Handler{svc: svc}
}

// SetupRoutes registers all API routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/login", h.Login)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware())
	{
		api.POST("/auth/signup", RequirePermission(models.PermAdminUsers), h.SignUp)

		estado := api.Group("/estado")
		{
			estado.GET("", RequirePermission(models.PermStatementView), h.Statement)
			estado.GET("/anuladas", RequirePermission(models.PermVoidedView), h.VoidedTransactions)
			estado.GET("/export", RequirePermission(models.PermStatementExport), h.ExportStatement)
			estado.POST("/upload", RequirePermission(models.PermStatementUpload), h.Upload)
		}

		mov := api.Group("/movimientos", RequirePermission(models.PermStatementUpload))
		{
			mov.PUT("/:id", h.UpdateTransaction)
			mov.DELETE("/:id", h.DeleteTransaction)
			mov.POST("/:id/anular", h.VoidTransaction)
			mov.POST("/:id/pagado", h.MarkPaid)
			mov.POST("/:id/marcador", h.SetMarker)
			mov.POST("/reordenar", h.Reorder)
			mov.POST("/marcadores/limpiar", h.ClearMarkers)
		}

		saldos := api.Group("/saldos", RequirePermission(models.PermBalancesManage))
		{
			saldos.GET("", h.ListOpeningBalances)
			saldos.PUT("", h.UpsertOpeningBalance)
			saldos.DELETE("", h.DeleteOpeningBalance)
		}

		api.PUT("/prefs", RequirePermission(models.PermPrefsManage), h.SetClientPreference)
		api.GET("/dashboard", RequirePermission(models.PermDashboardView), h.Dashboard)
		api.GET("/dashboard/mora", RequirePermission(models.PermDashboardView), h.OverdueDocuments)

		empleados := api.Group("/empleados")
		{
			empleados.GET("", RequirePermission(models.PermEmployeesView), h.ListEmployees)
			empleados.POST("", RequirePermission(models.PermPayrollEdit), h.CreateEmployee)
			empleados.PUT("/:id", RequirePermission(models.PermPayrollEdit), h.UpdateEmployee)
		}

		planilla := api.Group("/planilla")
		{
			planilla.GET("/:periodo", RequirePermission(models.PermPayrollPeriod), h.PayrollPeriod)
			planilla.POST("/campo", RequirePermission(models.PermPayrollEdit), h.SetPayrollField)
			planilla.POST("/snapshot", RequirePermission(models.PermPayrollEdit), h.SnapshotPayroll)
		}
	}
}

// Authentication handlers
func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Status:  "error",
			Code:    "UNAUTHORIZED",
			Message: "Invalid username or password",
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Statement handlers
func (h *Handler) Statement(c *gin.Context) {
	resp, err := h.svc.Statement(c.Request.Context(), statementQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) VoidedTransactions(c *gin.Context) {
	transactions, err := h.svc.VoidedTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "transactions": transactions})
}

func (h *Handler) ExportStatement(c *gin.Context) {
	data, err := h.svc.ExportStatement(c.Request.Context(), statementQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="estado_de_cuenta.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing file upload")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "could not open uploaded file")
		return
	}
	defer file.Close()

	dryRun := c.Query("dryrun") == "1" || c.Query("dryrun") == "true"

	summary, err := h.svc.IngestUpload(c.Request.Context(), file, dryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Transaction maintenance handlers
func (h *Handler) UpdateTransaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req models.UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.UpdateTransaction(c.Request.Context(), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	h.transactionAction(c, h.svc.DeleteTransaction)
}

func (h *Handler) VoidTransaction(c *gin.Context) {
	h.transactionAction(c, h.svc.VoidTransaction)
}

func (h *Handler) MarkPaid(c *gin.Context) {
	h.transactionAction(c, h.svc.MarkPaid)
}

func (h *Handler) transactionAction(c *gin.Context, action func(ctx context.Context, id int64) error) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := action(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) SetMarker(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req models.MarkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.SetMarker(c.Request.Context(), id, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) Reorder(c *gin.Context) {
	var req models.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.Reorder(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ClearMarkers(c *gin.Context) {
	var req models.ClearMarkersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.ClearMarkers(c.Request.Context(), req.Client); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Opening balance and preference handlers
func (h *Handler) ListOpeningBalances(c *gin.Context) {
	balances, err := h.svc.ListOpeningBalances(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "balances": balances})
}

func (h *Handler) UpsertOpeningBalance(c *gin.Context) {
	var req models.OpeningBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.UpsertOpeningBalance(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteOpeningBalance(c *gin.Context) {
	client := strings.TrimSpace(c.Query("cliente"))
	if client == "" {
		badRequest(c, "missing cliente query parameter")
		return
	}
	if err := h.svc.DeleteOpeningBalance(c.Request.Context(), client); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) SetClientPreference(c *gin.Context) {
	var req models.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.SetClientPreference(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Dashboard handler
func (h *Handler) Dashboard(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	resp, err := h.svc.Dashboard(c.Request.Context(), year)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) OverdueDocuments(c *gin.Context) {
	rows, err := h.svc.OverdueDocuments(c.Request.Context(), c.Query("cliente"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "documents": rows})
}

// Payroll handlers
func (h *Handler) ListEmployees(c *gin.Context) {
	employees, err := h.svc.ListEmployees(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "employees": employees})
}

func (h *Handler) CreateEmployee(c *gin.Context) {
	var req models.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	employee, err := h.svc.CreateEmployee(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "employee": employee})
}

func (h *Handler) UpdateEmployee(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req models.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	employee, err := h.svc.UpdateEmployee(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "employee": employee})
}

func (h *Handler) PayrollPeriod(c *gin.Context) {
	period := c.Param("periodo")
	if !validPeriod(period) {
		badRequest(c, "period must be YYYYMM")
		return
	}
	resp, err := h.svc.PayrollPeriod(c.Request.Context(), period)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SetPayrollField(c *gin.Context) {
	var req models.PayrollFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	row, err := h.svc.SetPayrollField(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "row": row})
}

func (h *Handler) SnapshotPayroll(c *gin.Context) {
	var req models.SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.SnapshotPayroll(c.Request.Context(), req.Period); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success"})
}

// Helpers

func statementQuery(c *gin.Context) service.StatementQuery {
	return service.StatementQuery{
		Client:     strings.TrimSpace(c.Query("cliente")),
		Start:      queryDate(c, "desde"),
		End:        queryDate(c, "hasta"),
		Descending: c.Query("orden") == "desc",
	}
}

func queryDate(c *gin.Context, name string) *time.Time {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &d
}

func validPeriod(period string) bool {
	if len(period) != 6 {
		return false
	}
	for _, r := range period {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "BAD_REQUEST",
		Message: msg,
	})
}

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var schemaErr *ingest.SchemaError
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, payroll.ErrInvalidField), errors.As(err, &schemaErr):
		badRequest(c, err.Error())
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		})
	}
}
