package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rvelasco/contable-server/internal/ledger"
	"github.com/rvelasco/contable-server/internal/models"
	"github.com/rvelasco/contable-server/internal/repository"
	"github.com/rvelasco/contable-server/internal/utils"
)

// ErrNotFound marks lookups of rows that do not exist. Handlers translate it
// to a 404.
var ErrNotFound = errors.New("resource not found")

// ErrInvalidInput marks requests that are well-formed JSON but semantically
// unusable. Handlers translate it to a 400.
var ErrInvalidInput = errors.New("invalid input")

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	EnsureMasterAdmin(ctx context.Context, username, password string) error

	// Statement ingestion and queries
	IngestUpload(ctx context.Context, file io.Reader, dryRun bool) (*models.UploadSummary, error)
	Statement(ctx context.Context, q StatementQuery) (*StatementResponse, error)
	VoidedTransactions(ctx context.Context) ([]models.Transaction, error)
	ExportStatement(ctx context.Context, q StatementQuery) ([]byte, error)

	// Transaction maintenance
	UpdateTransaction(ctx context.Context, id int64, req models.UpdateTransactionRequest) error
	DeleteTransaction(ctx context.Context, id int64) error
	VoidTransaction(ctx context.Context, id int64) error
	MarkPaid(ctx context.Context, id int64) error
	Reorder(ctx context.Context, req models.ReorderRequest) error
	SetMarker(ctx context.Context, id int64, req models.MarkerRequest) error
	ClearMarkers(ctx context.Context, client string) error

	// Opening balances and client preferences
	UpsertOpeningBalance(ctx context.Context, req models.OpeningBalanceRequest) error
	DeleteOpeningBalance(ctx context.Context, client string) error
	ListOpeningBalances(ctx context.Context) ([]models.OpeningBalance, error)
	SetClientPreference(ctx context.Context, req models.PreferenceRequest) error

	// Dashboard
	Dashboard(ctx context.Context, year int) (*DashboardResponse, error)
	OverdueDocuments(ctx context.Context, client string) ([]ledger.Row, error)

	// Payroll
	ListEmployees(ctx context.Context) ([]models.Employee, error)
	CreateEmployee(ctx context.Context, req models.EmployeeRequest) (*models.Employee, error)
	UpdateEmployee(ctx context.Context, id int64, req models.EmployeeRequest) (*models.Employee, error)
	SetPayrollField(ctx context.Context, req models.PayrollFieldRequest) (*PayrollRow, error)
	PayrollPeriod(ctx context.Context, period string) (*PayrollPeriodResponse, error)
	SnapshotPayroll(ctx context.Context, period string) error
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration
	logger        *utils.Logger
	now           func() time.Time // injectable clock for date-sensitive logic
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string) Service {
	return &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
		logger:        utils.NewLogger(),
		now:           time.Now,
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	existing, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: username already taken", ErrInvalidInput)
	}

	for _, code := range req.Permissions {
		if _, ok := models.AllPermissions[code]; !ok {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidInput, code)
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	for _, code := range req.Permissions {
		if err := s.repo.GrantPermission(ctx, user.ID, code); err != nil {
			return nil, fmt.Errorf("error granting permission: %w", err)
		}
	}

	s.logger.Info("auth", "signup", "user created: "+user.Username)
	return &models.AuthResponse{
		Status:      "success",
		UserID:      user.ID,
		Username:    user.Username,
		Permissions: req.Permissions,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, errors.New("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid username or password")
	}

	permissions, err := s.userPermissions(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error loading permissions: %w", err)
	}

	token, err := s.generateJWT(user, permissions)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:      "success",
		UserID:      user.ID,
		Username:    user.Username,
		Token:       token,
		ExpiresIn:   int(s.tokenDuration.Seconds()),
		IsMaster:    user.IsMaster,
		Permissions: permissions,
	}, nil
}

// EnsureMasterAdmin seeds the permission catalog and the master account on
// first startup. Existing accounts are left untouched.
func (s *DefaultService) EnsureMasterAdmin(ctx context.Context, username, password string) error {
	if err := s.repo.SeedPermissionCodes(ctx); err != nil {
		return fmt.Errorf("error seeding permissions: %w", err)
	}

	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("error checking master user: %w", err)
	}
	if existing != nil {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("error hashing master password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		IsMaster:     true,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("error creating master user: %w", err)
	}

	s.logger.Info("auth", "seed", "master user created: "+username)
	return nil
}

// userPermissions resolves the capability set carried in the token. Master
// users get every known code.
func (s *DefaultService) userPermissions(ctx context.Context, user *models.User) ([]string, error) {
	if user.IsMaster {
		codes := make([]string, 0, len(models.AllPermissions))
		for code := range models.AllPermissions {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		return codes, nil
	}
	return s.repo.GetUserPermissions(ctx, user.ID)
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User, permissions []string) (string, error) {
	expirationTime := s.now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub":    user.ID, // subject
		"exp":    expirationTime.Unix(),
		"iat":    s.now().Unix(), // issued at
		"master": user.IsMaster,
		"perms":  permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
