// Package sheets wraps the Google Sheets API for the response sheet: bulk
// row reads for the sync pass and single-cell builder write-backs.
package sheets

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"builderportal_backend/platform/config"
	"builderportal_backend/platform/logger"
)

type Client struct {
	service       *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	readRange     string

	// writeLimiter throttles write-backs so bursts of reassignment cannot
	// trip the Sheets API quota.
	writeLimiter *rate.Limiter
	log          *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SheetsConfig, log *logger.Logger) (*Client, error) {
	creds, err := cfg.GetServiceAccountJSON()
	if err != nil {
		return nil, fmt.Errorf("load service account key: %w", err)
	}

	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	interval := cfg.GetWriteBackInterval()
	if interval <= 0 {
		interval = time.Second
	}

	return &Client{
		service:       service,
		spreadsheetID: cfg.GetSpreadsheetID(),
		sheetName:     cfg.GetSheetName(),
		readRange:     cfg.GetSheetRange(),
		writeLimiter:  rate.NewLimiter(rate.Every(interval), 1),
		log:           log,
	}, nil
}

// ReadRows fetches all data rows in the configured range. Cell values come
// back as strings regardless of the sheet's cell formatting.
func (c *Client) ReadRows(ctx context.Context) ([][]string, error) {
	resp, err := c.service.Spreadsheets.Values.
		Get(c.spreadsheetID, c.readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		c.log.SheetError("read rows", c.readRange, err)
		return nil, err
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteBuilderCell writes the builder name into column B of the given row.
// Only that one cell is touched; the rest of the row stays form-owned.
func (c *Client) WriteBuilderCell(ctx context.Context, sheetRow int, builder string) error {
	if err := c.writeLimiter.Wait(ctx); err != nil {
		return err
	}

	cell := fmt.Sprintf("%s!B%d", c.sheetName, sheetRow)
	_, err := c.service.Spreadsheets.Values.
		Update(c.spreadsheetID, cell, &sheetsapi.ValueRange{
			Values: [][]interface{}{{builder}},
		}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		c.log.SheetError("write builder cell", cell, err)
		return err
	}
	return nil
}
