package sheets

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client is the remote table client. One Client is created per process and
// shared by every session; the underlying token source renews itself.
type Client struct {
	service *sheets.Service
}

// NewClient builds a Sheets client. Callers usually pass option.WithTokenSource
// with the result of LoadTokenSource.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	return &Client{service: srv}, nil
}

// ReadTable returns every row of the worksheet. There are no partial reads: any
// API error fails the whole call. An empty worksheet is a valid empty Table.
func (c *Client) ReadTable(ctx context.Context, loc Location) (Table, error) {
	resp, err := c.service.Spreadsheets.Values.Get(loc.SpreadsheetID, loc.A1("")).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return Table{}, fmt.Errorf("reading %s: %w", loc, err)
	}
	log.WithField("sheet", loc.Sheet).Debugf("read %d rows", len(resp.Values))
	return newTable(resp.Values), nil
}

// ReadHeader returns the first row of the worksheet, or nil when it is empty.
func (c *Client) ReadHeader(ctx context.Context, loc Location) ([]string, error) {
	resp, err := c.service.Spreadsheets.Values.Get(loc.SpreadsheetID, loc.A1("1:1")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", loc, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return toStrings(resp.Values[0], 0), nil
}

// AppendRows adds rows after the existing content, preserving their order.
func (c *Client) AppendRows(ctx context.Context, loc Location, rows [][]interface{}) error {
	_, err := c.service.Spreadsheets.Values.Append(
		loc.SpreadsheetID,
		loc.A1("A:Z"),
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending to %s: %w", loc, err)
	}
	return nil
}

// OverwriteTable clears the worksheet and writes header followed by rows.
func (c *Client) OverwriteTable(ctx context.Context, loc Location, header []interface{}, rows [][]interface{}) error {
	_, err := c.service.Spreadsheets.Values.Clear(
		loc.SpreadsheetID,
		loc.A1(""),
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing %s: %w", loc, err)
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, header)
	values = append(values, rows...)
	_, err = c.service.Spreadsheets.Values.Update(
		loc.SpreadsheetID,
		loc.A1("A1"),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing %s: %w", loc, err)
	}
	return nil
}

// EnsureSheetExists adds the worksheet when the spreadsheet does not have it.
func (c *Client) EnsureSheetExists(ctx context.Context, loc Location) error {
	// 1. Get spreadsheet metadata
	ss, err := c.service.Spreadsheets.Get(loc.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading metadata of %s: %w", loc.SpreadsheetID, err)
	}
	// 2. Check if sheet exists
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == loc.Sheet {
			return nil
		}
	}
	// 3. Add the sheet if not found
	log.WithField("sheet", loc.Sheet).Info("creating missing worksheet")
	addSheetReq := &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{
				Title: loc.Sheet,
			},
		},
	}
	_, err = c.service.Spreadsheets.BatchUpdate(loc.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{addSheetReq},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("adding sheet %s: %w", loc, err)
	}
	return nil
}
