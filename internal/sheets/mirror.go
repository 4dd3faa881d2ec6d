// Package sheets mirrors order events into a supplier's Google spreadsheet.
// Mirroring is one-way and best effort: nothing here can fail an order operation.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gsheets "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
)

const (
	defaultRange      = "Sheet1!A:H"
	valueInputOption  = "USER_ENTERED"
	statusColumn      = "H"
	orderIDColumnSpan = "A:A"
)

// ErrRowNotFound is returned when no row in column A carries the order id.
var ErrRowNotFound = errors.New("order row not found in sheet")

// OrderRow is one spreadsheet line:
// Order ID | Date | Account ID | Server ID | IGN | Skin | Price | Status.
type OrderRow struct {
	OrderID      string
	CreatedAt    time.Time
	AccountID    string
	ServerID     string
	InGameName   string
	SkinName     string
	DiamondPrice int64
	Status       string
}

func (r OrderRow) values() []any {
	return []any{
		r.OrderID,
		r.CreatedAt.UTC().Format(time.DateOnly),
		r.AccountID,
		r.ServerID,
		r.InGameName,
		r.SkinName,
		r.DiamondPrice,
		r.Status,
	}
}

// Mirror is the spreadsheet surface used by the notifier.
type Mirror interface {
	AppendRow(ctx context.Context, sheetID string, row OrderRow) error
	UpdateStatusCell(ctx context.Context, sheetID, orderID, label string) error
}

// Client implements Mirror on the Sheets v4 API.
type Client struct {
	values *gsheets.SpreadsheetsValuesService
	rng    string
	tab    string
}

// NewClient builds a Sheets client from the GCP credentials. Extra options are
// appended last so callers can point the client at another endpoint.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.SheetsConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	opts = append(opts, extra...)

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	rng := strings.TrimSpace(cfg.Range)
	if rng == "" {
		rng = defaultRange
	}
	tab, _, ok := strings.Cut(rng, "!")
	if !ok || tab == "" {
		return nil, fmt.Errorf("sheets range %q must name a tab, e.g. %s", rng, defaultRange)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "range", rng), "sheets client initialized")
	}
	return &Client{values: svc.Spreadsheets.Values, rng: rng, tab: tab}, nil
}

func (c *Client) AppendRow(ctx context.Context, sheetID string, row OrderRow) error {
	_, err := c.values.Append(sheetID, c.rng, &gsheets.ValueRange{Values: [][]any{row.values()}}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append order row: %w", err)
	}
	return nil
}

// UpdateStatusCell finds the order's row by scanning column A and overwrites
// its status cell.
func (c *Client) UpdateStatusCell(ctx context.Context, sheetID, orderID, label string) error {
	resp, err := c.values.Get(sheetID, c.tab+"!"+orderIDColumnSpan).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read order ids: %w", err)
	}

	rowNumber := 0
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == orderID {
			rowNumber = i + 1
			break
		}
	}
	if rowNumber == 0 {
		return ErrRowNotFound
	}

	cell := c.tab + "!" + statusColumn + strconv.Itoa(rowNumber)
	_, err = c.values.Update(sheetID, cell, &gsheets.ValueRange{Values: [][]any{{label}}}).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update status cell %s: %w", cell, err)
	}
	return nil
}
