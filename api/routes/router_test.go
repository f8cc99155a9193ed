package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jubileehq/jubilee-backend/internal/audit"
	"github.com/jubileehq/jubilee-backend/internal/catalog"
	"github.com/jubileehq/jubilee-backend/internal/orders"
	pkgAuth "github.com/jubileehq/jubilee-backend/pkg/auth"
	"github.com/jubileehq/jubilee-backend/pkg/auth/session"
	"github.com/jubileehq/jubilee-backend/pkg/config"
	"github.com/jubileehq/jubilee-backend/pkg/db/models"
	"github.com/jubileehq/jubilee-backend/pkg/enums"
	"github.com/jubileehq/jubilee-backend/pkg/logger"
)

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) ListCategories(ctx context.Context, includeComingSoon bool) ([]models.Category, error) {
	return []models.Category{}, nil
}

func (stubCatalogService) ListPackages(ctx context.Context, categoryID uuid.UUID, activeOnly bool) ([]models.Package, error) {
	return []models.Package{}, nil
}

func (stubCatalogService) GetPackage(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	panic("unimplemented")
}

func (stubCatalogService) GetPackageBySlug(ctx context.Context, slug string) (*models.Package, error) {
	panic("unimplemented")
}

func (stubCatalogService) CreateCategory(ctx context.Context, actor catalog.Actor, req catalog.CreateCategoryRequest) (*models.Category, error) {
	panic("unimplemented")
}

func (stubCatalogService) UpdateCategory(ctx context.Context, actor catalog.Actor, id uuid.UUID, req catalog.UpdateCategoryRequest) (*models.Category, error) {
	panic("unimplemented")
}

func (stubCatalogService) DeleteCategory(ctx context.Context, actor catalog.Actor, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubCatalogService) CreatePackage(ctx context.Context, actor catalog.Actor, req catalog.CreatePackageRequest) (*models.Package, error) {
	panic("unimplemented")
}

func (stubCatalogService) UpdatePackage(ctx context.Context, actor catalog.Actor, id uuid.UUID, req catalog.UpdatePackageRequest) (*models.Package, error) {
	panic("unimplemented")
}

func (stubCatalogService) DeletePackage(ctx context.Context, actor catalog.Actor, id uuid.UUID) error {
	panic("unimplemented")
}

func (stubCatalogService) CreateClass(ctx context.Context, actor catalog.Actor, req catalog.CreateClassRequest) (*models.PackageClass, error) {
	panic("unimplemented")
}

func (stubCatalogService) UpdateClass(ctx context.Context, actor catalog.Actor, id uuid.UUID, req catalog.UpdateClassRequest) (*models.PackageClass, error) {
	panic("unimplemented")
}

func (stubCatalogService) DeleteClass(ctx context.Context, actor catalog.Actor, id uuid.UUID) error {
	panic("unimplemented")
}

type stubOrdersService struct {
	checkout *orders.CheckoutResult
}

func (s stubOrdersService) Checkout(ctx context.Context, customerID uuid.UUID, req orders.CheckoutRequest) (*orders.CheckoutResult, error) {
	if s.checkout != nil {
		return s.checkout, nil
	}
	panic("unimplemented")
}

func (stubOrdersService) CreateCustomRequest(ctx context.Context, customerID uuid.UUID, req orders.CustomRequest) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListForCustomer(ctx context.Context, customerID uuid.UUID, limit int, cursor string) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{Items: []models.Order{}}, nil
}

func (stubOrdersService) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListAdmin(ctx context.Context, status, paymentStatus string, limit int, cursor string) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{Items: []models.Order{}}, nil
}

func (stubOrdersService) AdminRespond(ctx context.Context, actor orders.Actor, orderID uuid.UUID, req orders.AdminRespondRequest) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) UploadProof(ctx context.Context, customerID, orderID uuid.UUID, req orders.UploadProofRequest) (*models.Order, error) {
	panic("unimplemented")
}

type stubAuditService struct{}

func (stubAuditService) Record(ctx context.Context, entry audit.Entry) error {
	return nil
}

func (stubAuditService) RecordTx(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	return nil
}

func (stubAuditService) List(ctx context.Context, params audit.ListParams) (*audit.ListResult, error) {
	return &audit.ListResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "jubilee-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	return newTestRouterWithOrders(cfg, stubOrdersService{})
}

func newTestRouterWithOrders(cfg *config.Config, ordersSvc orders.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(RouterParams{
		Config:         cfg,
		Logger:         logg,
		SessionManager: stubSessionManager{},
		Catalog:        stubCatalogService{},
		Orders:         ordersSvc,
		Audit:          stubAuditService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/categories", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d", resp.Code)
	}
}

func TestCustomerGroupRejectsMissingToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCustomerGroupAcceptsToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for customer orders got %d", resp.Code)
	}
}

func TestAdminGroupRequiresStaffRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	customer := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestAuditLogRequiresSuperAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/audit-log", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin on audit log got %d", resp.Code)
	}

	super := httptest.NewRequest(http.MethodGet, "/api/admin/v1/audit-log", nil)
	super.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleSuperAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, super)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for super admin got %d", resp.Code)
	}
}

func TestCheckoutRejectedCartReturns422(t *testing.T) {
	cfg := testConfig()
	rejected := &orders.CheckoutResult{
		Lines: []orders.LineResult{{PackageID: uuid.New(), Error: "package not found"}},
	}
	router := newTestRouterWithOrders(cfg, stubOrdersService{checkout: rejected})

	body := fmt.Sprintf(`{"lines":[{"package_id":%q,"quantity":1}]}`, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a fully rejected cart got %d", resp.Code)
	}

	partial := &orders.CheckoutResult{
		Lines: []orders.LineResult{
			{PackageID: uuid.New(), Order: &models.Order{ID: uuid.New()}},
			{PackageID: uuid.New(), Error: "package not found"},
		},
	}
	router = newTestRouterWithOrders(cfg, stubOrdersService{checkout: partial})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for a partially placed cart got %d", resp.Code)
	}
}
