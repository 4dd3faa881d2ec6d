package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftledger-backend/api/controllers"
	"github.com/angelmondragon/giftledger-backend/internal/auth"
	"github.com/angelmondragon/giftledger-backend/internal/ledger"
	"github.com/angelmondragon/giftledger-backend/internal/orders"
	"github.com/angelmondragon/giftledger-backend/internal/suppliers"
	"github.com/angelmondragon/giftledger-backend/internal/users"
	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db"
	"github.com/angelmondragon/giftledger-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
	"github.com/angelmondragon/giftledger-backend/pkg/security"
)

var fastPasswords = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]string
}

func (m *memorySessions) Open(_ context.Context, accessID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[accessID] = userID
	return nil
}

func (m *memorySessions) Revoke(_ context.Context, accessID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, accessID)
	return nil
}

func (m *memorySessions) HasSession(_ context.Context, accessID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[accessID]
	return ok, nil
}

type apiFixture struct {
	server *httptest.Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.FromConn(conn, 1)
	logg := logger.Nop()
	cfg := &config.Config{
		App:      config.AppConfig{Env: "test"},
		JWT:      config.JWTConfig{Secret: "router-secret", Issuer: "giftledger", ExpirationMinutes: 60},
		Password: fastPasswords,
	}

	hash, err := security.HashPassword("admin-pass", fastPasswords)
	require.NoError(t, err)
	require.NoError(t, conn.Create(&models.User{Email: "admin@example.test", Name: "Admin", PasswordHash: hash, Role: enums.RoleAdmin}).Error)

	reg := prometheus.NewRegistry()
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), client, logg, metrics.NewLedgerMetrics(reg))
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.ServiceParams{Repo: orders.NewRepository(conn), Ledger: ledgerSvc, Tx: client, Logger: logg})
	require.NoError(t, err)
	userRepo := users.NewRepository(conn)
	supplierSvc, err := suppliers.NewService(suppliers.ServiceParams{
		Repo:     suppliers.NewRepository(conn),
		Users:    userRepo,
		Ledger:   ledgerSvc,
		Tx:       client,
		Password: fastPasswords,
		Logger:   logg,
	})
	require.NoError(t, err)
	profiles, err := users.NewProfileService(userRepo, client, fastPasswords, logg)
	require.NoError(t, err)
	sessions := &memorySessions{sessions: map[string]string{}}
	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo, SessionManager: sessions, JWTConfig: cfg.JWT, Logger: logg})
	require.NoError(t, err)

	router := NewRouter(Params{
		Config:    cfg,
		Logger:    logg,
		Pingers:   map[string]controllers.Pinger{"database": client},
		Sessions:  sessions,
		Gatherer:  reg,
		Auth:      authSvc,
		Profiles:  profiles,
		Orders:    orderSvc,
		Suppliers: supplierSvc,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &apiFixture{server: server}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (f *apiFixture) call(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode
}

func (f *apiFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	var res auth.LoginResponse
	status := f.call(t, http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Email: email, Password: password}, &res)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func TestRouterOrderLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login(t, "admin@example.test", "admin-pass")

	var supplier suppliers.SupplierView
	status := f.call(t, http.MethodPost, "/api/v1/suppliers", admin, map[string]any{
		"name":            "Nova Store",
		"email":           "nova@example.test",
		"password":        "nova-pass",
		"initial_balance": 5000,
	}, &supplier)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(5000), supplier.DiamondBalance)

	var order controllers.OrderView
	status = f.call(t, http.MethodPost, "/api/v1/orders", admin, map[string]any{
		"account_id":    "123456",
		"server_id":     "2001",
		"in_game_name":  "Kai",
		"skin_name":     "Aurora",
		"diamond_price": 1200,
		"supplier_id":   supplier.ID,
	}, &order)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.NotNil(t, order.BalanceDeductedAt)

	status = f.call(t, http.MethodGet, "/api/v1/suppliers/"+supplier.ID.String(), admin, nil, &supplier)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(3800), supplier.DiamondBalance)

	supplierToken := f.login(t, "nova@example.test", "nova-pass")

	var visible []controllers.OrderView
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/v1/orders", supplierToken, nil, &visible))
	require.Len(t, visible, 1)

	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodPost, "/api/v1/orders", supplierToken, map[string]any{
		"account_id": "1", "server_id": "1", "in_game_name": "x", "skin_name": "y", "diamond_price": 1, "supplier_id": supplier.ID,
	}, nil))
	assert.Equal(t, http.StatusForbidden, f.call(t, http.MethodGet, "/api/v1/admin/stats", supplierToken, nil, nil))

	status = f.call(t, http.MethodPatch, "/api/v1/orders/"+order.ID.String(), supplierToken, map[string]any{"status": "failed"}, &order)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, enums.OrderStatusFailed, order.Status)
	assert.Equal(t, "Failed", order.StatusLabel)

	status = f.call(t, http.MethodGet, "/api/v1/suppliers/"+supplier.ID.String(), supplierToken, nil, &supplier)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(5000), supplier.DiamondBalance)

	var page struct {
		Items []controllers.BalanceLogView `json:"items"`
	}
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/v1/balance-logs", supplierToken, nil, &page))
	require.Len(t, page.Items, 3)
	var sum int64
	for _, l := range page.Items {
		sum += l.ChangeAmount
	}
	assert.Equal(t, int64(5000), sum)

	var stats orders.Stats
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/v1/admin/stats", admin, nil, &stats))
	assert.Equal(t, int64(1), stats.TotalOrders)

	assert.Equal(t, http.StatusNoContent, f.call(t, http.MethodDelete, "/api/v1/orders/"+order.ID.String(), admin, nil, nil))
	assert.Equal(t, http.StatusNotFound, f.call(t, http.MethodGet, "/api/v1/orders/"+order.ID.String(), admin, nil, nil))
}

func TestRouterAuthBoundaries(t *testing.T) {
	f := newAPIFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.call(t, http.MethodGet, "/api/v1/orders", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.call(t, http.MethodPost, "/api/v1/auth/login", "",
		auth.LoginRequest{Email: "admin@example.test", Password: "wrong-pass"}, nil))
	assert.Equal(t, http.StatusBadRequest, f.call(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "not-an-email", "password": "x"}, nil))

	token := f.login(t, "admin@example.test", "admin-pass")
	var profile users.Profile
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/api/v1/profile", token, nil, &profile))
	assert.Equal(t, "Admin", profile.Name)

	assert.Equal(t, http.StatusBadRequest, f.call(t, http.MethodGet, "/api/v1/orders/not-a-uuid", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, f.call(t, http.MethodGet, "/api/v1/orders?sort=nope", token, nil, nil))

	assert.Equal(t, http.StatusNoContent, f.call(t, http.MethodPost, "/api/v1/auth/logout", token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.call(t, http.MethodGet, "/api/v1/profile", token, nil, nil))
}

func TestRouterHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	var live map[string]string
	require.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/health/live", "", nil, &live))
	assert.Equal(t, "live", live["status"])
	assert.Equal(t, http.StatusOK, f.call(t, http.MethodGet, "/health/ready", "", nil, nil))

	resp, err := f.server.Client().Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
