package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
)

type sheetsRequest struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type fakeSheetsAPI struct {
	mu       sync.Mutex
	requests []sheetsRequest
	orderIDs [][]any
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := sheetsRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &req.body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Sheet1!A1:A9", "values": f.orderIDs})
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), config.GCPConfig{}, config.SheetsConfig{Range: "Sheet1!A:H"}, logger.Nop(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return client
}

func TestClientAppendRow(t *testing.T) {
	api := &fakeSheetsAPI{}
	client := newTestClient(t, api)

	err := client.AppendRow(context.Background(), "sheet-1", OrderRow{
		OrderID:      "order-1",
		CreatedAt:    time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC),
		AccountID:    "111",
		ServerID:     "22",
		InGameName:   "Nova",
		SkinName:     "Starfall",
		DiamondPrice: 899,
		Status:       "PENDING",
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	req := api.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.True(t, strings.HasPrefix(req.path, "/v4/spreadsheets/sheet-1/values/"), req.path)
	assert.True(t, strings.HasSuffix(req.path, ":append"), req.path)
	assert.Contains(t, req.query, "valueInputOption=USER_ENTERED")
	assert.Equal(t,
		[]any{[]any{"order-1", "2026-03-09", "111", "22", "Nova", "Starfall", float64(899), "PENDING"}},
		req.body["values"])
}

func TestClientUpdateStatusCellWritesMatchingRow(t *testing.T) {
	api := &fakeSheetsAPI{orderIDs: [][]any{{"Order ID"}, {"order-0"}, {"order-7"}}}
	client := newTestClient(t, api)

	require.NoError(t, client.UpdateStatusCell(context.Background(), "sheet-1", "order-7", "Ready For Gifting"))

	require.Len(t, api.requests, 2)
	assert.Equal(t, http.MethodGet, api.requests[0].method)
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Sheet1!A:A", api.requests[0].path)

	put := api.requests[1]
	assert.Equal(t, http.MethodPut, put.method)
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/Sheet1!H3", put.path)
	assert.Contains(t, put.query, "valueInputOption=USER_ENTERED")
	assert.Equal(t, []any{[]any{"Ready For Gifting"}}, put.body["values"])
}

func TestClientUpdateStatusCellMissingRow(t *testing.T) {
	api := &fakeSheetsAPI{orderIDs: [][]any{{"Order ID"}, {"order-0"}}}
	client := newTestClient(t, api)

	err := client.UpdateStatusCell(context.Background(), "sheet-1", "order-7", "Completed")
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.Len(t, api.requests, 1)
}

func TestNewClientRequiresTabInRange(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.SheetsConfig{Range: "A:H"}, logger.Nop(),
		option.WithHTTPClient(http.DefaultClient))
	assert.Error(t, err)
}
