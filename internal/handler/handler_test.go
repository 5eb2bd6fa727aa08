package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop_service/internal/auth"
	"shop_service/internal/config"
	"shop_service/internal/handler"
	"shop_service/internal/models"
	"shop_service/internal/service"
)

const testAPIKey = "test-api-key"

// stubService scripts the service layer so handler behavior can be
// checked without a database.
type stubService struct {
	registerErr error
	user        models.User

	loginToken string
	loginErr   error

	claims      *auth.Claims
	validateErr error

	summary   service.CartSummary
	upsertErr error
	cart      models.Cart
	getErr    error
	removeErr error

	verifyOTPErr error
}

func (s *stubService) RegisterUser(_ context.Context, _ service.RegisterInput) (models.User, error) {
	return s.user, s.registerErr
}

func (s *stubService) Login(_ context.Context, _, _ string) (string, models.User, error) {
	return s.loginToken, s.user, s.loginErr
}

func (s *stubService) Logout(_ context.Context, _ string) error { return nil }

func (s *stubService) ValidateToken(_ context.Context, _ string) (*auth.Claims, error) {
	return s.claims, s.validateErr
}

func (s *stubService) SendOTP(_ context.Context, email string) (models.OTP, error) {
	return models.OTP{Email: email, Code: 12345}, nil
}

func (s *stubService) VerifyOTP(_ context.Context, _ string, _ int) error {
	return s.verifyOTPErr
}

func (s *stubService) GetCart(_ context.Context, _ string) (models.Cart, error) {
	return s.cart, s.getErr
}

func (s *stubService) UpsertCart(_ context.Context, _ string, _ []models.CartLine) (service.CartSummary, error) {
	return s.summary, s.upsertErr
}

func (s *stubService) RemoveCartLine(_ context.Context, _, _ string) error {
	return s.removeErr
}

func (s *stubService) CreateProduct(_ context.Context, p models.Product) (models.Product, error) {
	return p, nil
}

func (s *stubService) ListProducts(_ context.Context) ([]models.Product, error) {
	return nil, nil
}

func (s *stubService) CreateCategory(_ context.Context, c models.Category) (models.Category, error) {
	return c, nil
}

func (s *stubService) ListCategories(_ context.Context) ([]models.Category, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, svc service.Service) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Auth:   config.Auth{APIKey: testAPIKey, TokenTTL: time.Hour},
		Upload: config.Upload{Dir: t.TempDir()},
	}
	lgr := slog.New(slog.NewTextHandler(io.Discard, nil))

	return handler.NewHandler(svc, cfg, lgr).InitRoutes()
}

func doJSON(router *gin.Engine, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func withAPIKey() map[string]string {
	return map[string]string{"x-api-key": testAPIKey}
}

func TestAPIKeyRequired(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	w := doJSON(router, http.MethodPost, "/api/createProduct", gin.H{"product_name": "x"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodPost, "/api/createProduct", gin.H{"product_name": "x"},
		map[string]string{"x-api-key": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateUserMapsConflict(t *testing.T) {
	router := newTestRouter(t, &stubService{registerErr: models.ErrEmailTaken})

	body := gin.H{
		"firstname": "Somchai",
		"lastname":  "Jaidee",
		"email":     "a@x.com",
		"password":  "correct-horse",
	}

	w := doJSON(router, http.MethodPost, "/api/creatUser", body, withAPIKey())
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestCreateUserRejectsMissingFields(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	w := doJSON(router, http.MethodPost, "/api/creatUser", gin.H{"email": "a@x.com"}, withAPIKey())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginSetsCookie(t *testing.T) {
	router := newTestRouter(t, &stubService{loginToken: "signed-token"})

	body := gin.H{"email": "a@x.com", "password": "correct-horse"}
	w := doJSON(router, http.MethodPost, "/api/login", body, withAPIKey())

	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuthMiddlewareRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	w := doJSON(router, http.MethodPost, "/api/createCarts", []gin.H{{"product_id": "p1", "quantity": 1}}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsRevokedToken(t *testing.T) {
	router := newTestRouter(t, &stubService{validateErr: models.ErrTokenRevoked})

	header := map[string]string{"Authorization": "Bearer revoked-token"}
	w := doJSON(router, http.MethodPost, "/api/createCarts", []gin.H{{"product_id": "p1", "quantity": 1}}, header)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpsertCartHappyPath(t *testing.T) {
	svc := &stubService{
		claims: &auth.Claims{UserID: "u1", Email: "a@x.com", Role: models.RoleUser},
		summary: service.CartSummary{
			CartID:  "abc",
			Created: true,
			Items:   []models.CartLine{{ProductID: "p1", Quantity: 1}},
		},
	}
	router := newTestRouter(t, svc)

	header := map[string]string{"Authorization": "Bearer good-token"}
	w := doJSON(router, http.MethodPost, "/api/createCarts", []gin.H{{"product_id": "p1", "quantity": 1}}, header)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			CartID  string `json:"cart_id"`
			Created bool   `json:"created"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Cart created", resp.Message)
	assert.True(t, resp.Data.Created)
	assert.Equal(t, "abc", resp.Data.CartID)
}

func TestUpsertCartRejectsEmptyBody(t *testing.T) {
	svc := &stubService{claims: &auth.Claims{UserID: "u1"}}
	router := newTestRouter(t, svc)

	header := map[string]string{"Authorization": "Bearer good-token"}
	w := doJSON(router, http.MethodPost, "/api/createCarts", []gin.H{}, header)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveCartLineNotFound(t *testing.T) {
	svc := &stubService{
		claims:    &auth.Claims{UserID: "u1"},
		removeErr: models.ErrCartNotFound,
	}
	router := newTestRouter(t, svc)

	header := map[string]string{"Authorization": "Bearer good-token"}
	w := doJSON(router, http.MethodDelete, "/api/carts/p1", nil, header)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckTokenWithoutCookie(t *testing.T) {
	router := newTestRouter(t, &stubService{})

	w := doJSON(router, http.MethodGet, "/api/check-token", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerifyOTPExpired(t *testing.T) {
	router := newTestRouter(t, &stubService{verifyOTPErr: models.ErrOTPExpired})

	body := gin.H{"email": "a@x.com", "code": 12345}
	w := doJSON(router, http.MethodPost, "/api/verifyOTP", body, withAPIKey())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
