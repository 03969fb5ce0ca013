package sheets

import (
	"context"
	"sync"
)

// MockClient is an in-memory TableClient keyed by worksheet title. Queued
// errors in FailReads are returned, one per call, before the table is served.
type MockClient struct {
	mu sync.Mutex

	Tables    map[string]Table
	FailReads map[string][]error
	WriteErr  error

	ReadCalls      map[string]int
	AppendCalls    map[string][][]interface{}
	OverwriteCalls map[string]int
	EnsureCalls    int
}

func NewMockClient() *MockClient {
	return &MockClient{
		Tables:         map[string]Table{},
		FailReads:      map[string][]error{},
		ReadCalls:      map[string]int{},
		AppendCalls:    map[string][][]interface{}{},
		OverwriteCalls: map[string]int{},
	}
}

// SetTable replaces the content of a worksheet.
func (m *MockClient) SetTable(sheet string, header []string, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tables[sheet] = Table{Header: header, Rows: rows}
}

// FailNext queues errors for the next reads of a worksheet.
func (m *MockClient) FailNext(sheet string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailReads[sheet] = append(m.FailReads[sheet], errs...)
}

// Reads returns how many times a worksheet was read.
func (m *MockClient) Reads(sheet string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReadCalls[sheet]
}

func (m *MockClient) ReadTable(ctx context.Context, loc Location) (Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls[loc.Sheet]++
	if q := m.FailReads[loc.Sheet]; len(q) > 0 {
		m.FailReads[loc.Sheet] = q[1:]
		return Table{}, q[0]
	}
	return copyTable(m.Tables[loc.Sheet]), nil
}

func (m *MockClient) ReadHeader(ctx context.Context, loc Location) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Tables[loc.Sheet].Header...), nil
}

func (m *MockClient) AppendRows(ctx context.Context, loc Location, rows [][]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.AppendCalls[loc.Sheet] = append(m.AppendCalls[loc.Sheet], rows...)
	t := m.Tables[loc.Sheet]
	for _, r := range rows {
		if len(t.Header) == 0 {
			t.Header = toStrings(r, 0)
			continue
		}
		t.Rows = append(t.Rows, toStrings(r, len(t.Header)))
	}
	m.Tables[loc.Sheet] = t
	return nil
}

func (m *MockClient) OverwriteTable(ctx context.Context, loc Location, header []interface{}, rows [][]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.OverwriteCalls[loc.Sheet]++
	values := append([][]interface{}{header}, rows...)
	m.Tables[loc.Sheet] = newTable(values)
	return nil
}

func (m *MockClient) EnsureSheetExists(ctx context.Context, loc Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	return nil
}

func copyTable(t Table) Table {
	out := Table{Header: append([]string(nil), t.Header...)}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, append([]string(nil), r...))
	}
	return out
}
