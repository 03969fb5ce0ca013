package dataset

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/pkg/sheets"
)

var fetchedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12,5", 12.5},
		{"12.5", 12.5},
		{" 7 ", 7},
		{"", 0},
		{"n/a", 0},
		{"NaN", 0},
		{"nan", 0},
		{"inf", 0},
		{"-Infinity", 0},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDateDayFirst(t *testing.T) {
	got := ParseDate("03/02/2025")
	assert.Equal(t, 2025, got.Year())
	assert.Equal(t, time.February, got.Month())
	assert.Equal(t, 3, got.Day())

	got = ParseDate("03/02/2025 14:30:05")
	assert.Equal(t, 14, got.Hour())
	assert.Equal(t, 5, got.Second())

	assert.True(t, ParseDate("").IsZero())
	assert.True(t, ParseDate("ontem").IsZero())
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"1234.0", 6, "001234"},
		{" 42 ", 6, "000042"},
		{"1234567", 6, "1234567"},
		{"'987", 6, "000987"},
		{"", 6, ""},
		{"55", 0, "55"},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.in, tt.width); got != tt.want {
			t.Errorf("NormalizeCode(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestDecodeCoercesAndNormalizesHeaders(t *testing.T) {
	c := DefaultCatalog("sheet-id", time.Minute, time.Hour)
	ds, ok := c.Lookup(Invoicing)
	require.True(t, ok)

	table := sheets.Table{
		Header: []string{" data_emissao ", "Tons", "Cliente"},
		Rows: [][]string{
			{"05/03/2025", "12,5", "ACME"},
			{"", "", ""},
			{"06/03/2025", "bad", "Beta"},
		},
	}
	snap, err := ds.Decode(table, "Dados_Faturamento", fetchedAt)
	require.NoError(t, err)

	assert.Equal(t, []string{"DATA_EMISSAO", "TONS", "CLIENTE"}, snap.Columns())
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, 12.5, snap.Row(0)["TONS"])
	assert.Equal(t, float64(0), snap.Row(1)["TONS"])
	assert.Equal(t, "ACME", snap.Row(0)["CLIENTE"])
	assert.Equal(t, 5, snap.Row(0)["DATA_EMISSAO"].(time.Time).Day())
	assert.Equal(t, fetchedAt, snap.FetchedAt())
}

func TestDecodeMissingRequiredColumn(t *testing.T) {
	c := DefaultCatalog("sheet-id", time.Minute, time.Hour)
	ds, _ := c.Lookup(Orders)

	_, err := ds.Decode(sheets.Table{
		Header: []string{"Número do Pedido", "Produto"},
		Rows:   [][]string{{"1", "Chapa"}},
	}, "Fagor", fetchedAt)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Vendedor Correto"}, schemaErr.Missing)
	assert.Equal(t, "Fagor", schemaErr.Sheet)
}

func TestDecodeStrictDropsExtrasAndFillsOptional(t *testing.T) {
	c := DefaultCatalog("sheet-id", time.Minute, time.Hour)
	ds, _ := c.Lookup(Orders)

	snap, err := ds.Decode(sheets.Table{
		Header: []string{"Número do Pedido", "Vendedor Correto", "Observação"},
		Rows:   [][]string{{"1234.0", "Carlos", "urgente"}},
	}, "Fagor", fetchedAt)
	require.NoError(t, err)

	row := snap.Row(0)
	assert.Equal(t, "001234", row["Número do Pedido"])
	assert.Equal(t, "Carlos", row["Vendedor Correto"])
	assert.Equal(t, "", row["Produto"])
	assert.NotContains(t, row, "Observação")
}

func TestDecodeEmptyTableIsEmptySnapshot(t *testing.T) {
	c := DefaultCatalog("sheet-id", time.Minute, time.Hour)
	ds, _ := c.Lookup(AccessLog)

	snap, err := ds.Decode(sheets.Table{}, "Acessos", fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, []string{"Data", "Login", "Nome"}, snap.Columns())
}

func TestDecodeAccessLogNewestFirst(t *testing.T) {
	c := DefaultCatalog("sheet-id", time.Minute, time.Hour)
	ds, _ := c.Lookup(AccessLog)

	snap, err := ds.Decode(sheets.Table{
		Header: []string{"Data", "Login", "Nome"},
		Rows: [][]string{
			{"09/03/2025 08:00:00", "bruno", "Bruno"},
			{"", "sem-data", ""},
			{"10/03/2025 12:00:00", "ana", "Ana"},
			{"09/03/2025 08:00:00", "carla", "Carla"},
		},
	}, "Acessos", fetchedAt)
	require.NoError(t, err)
	require.Equal(t, 4, snap.Len())
	assert.Equal(t, "ana", snap.Row(0)["Login"])
	assert.Equal(t, "bruno", snap.Row(1)["Login"])
	assert.Equal(t, "carla", snap.Row(2)["Login"])
	assert.Equal(t, "sem-data", snap.Row(3)["Login"])
}

func TestDecodeStripsQuotes(t *testing.T) {
	c := DefaultCatalog("sheet-id", time.Minute, time.Hour)
	ds, _ := c.Lookup(PhotoRequests)

	snap, err := ds.Decode(sheets.Table{
		Header: []string{"Data", "Vendedor", "Email", "Lote", "Status"},
		Rows:   [][]string{{"01/02/2025 10:00", "Ana", "ana@x", "'00123", "Pendente"}},
	}, "Solicitacoes_Fotos", fetchedAt)
	require.NoError(t, err)
	assert.Equal(t, "00123", snap.Row(0)["Lote"])
}

func TestSnapshotIsImmutable(t *testing.T) {
	rows := []Row{{"A": "1"}}
	snap := NewSnapshot("x", []string{"A"}, rows, fetchedAt)

	rows[0]["A"] = "changed"
	got := snap.Rows()
	got[0]["A"] = "changed too"
	cols := snap.Columns()
	cols[0] = "B"

	assert.Equal(t, "1", snap.Row(0)["A"])
	assert.Equal(t, []string{"A"}, snap.Columns())
}

func TestSnapshotJSON(t *testing.T) {
	b, err := json.Marshal(Empty("acessos"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"dataset":"acessos","columns":[],"rows":[]}`, string(b))

	b, err = json.Marshal(NewSnapshot("metas", []string{"META"}, []Row{{"META": 3.5}}, fetchedAt))
	require.NoError(t, err)
	assert.JSONEq(t, `{"dataset":"metas","columns":["META"],"rows":[{"META":3.5}],"fetched_at":"2025-03-10T09:00:00Z"}`, string(b))
}

func TestEncodeFollowsHeaderOrder(t *testing.T) {
	ts := time.Date(2025, 2, 1, 10, 0, 0, 0, Zone)
	got := Encode([]string{"Data", " login ", "Nome", "Extra"}, []Row{
		{"Nome": "Ana", "Login": "ana", "Data": ts},
	})
	assert.Equal(t, [][]interface{}{{"01/02/2025 10:00:00", "ana", "Ana", ""}}, got)
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog("sheet-id", time.Minute, time.Hour)

	orders, _ := c.Lookup(Orders)
	assert.True(t, orders.Aggregated())
	assert.Len(t, orders.Partitions, len(OrderSheets))
	assert.Equal(t, "pedidos/Fagor", orders.PartitionKey(orders.Partitions[0]))
	assert.Contains(t, orders.Columns(), OrdersPartitionTitle)
	assert.Equal(t, "Máquina/Processo", orders.PartitionColumn)
	assert.Equal(t, time.Minute, orders.TTL)

	users, _ := c.Lookup(Users)
	assert.Equal(t, time.Hour, users.TTL)

	loc := sheets.Location{SpreadsheetID: "sheet-id", Sheet: "Acessos"}
	assert.Equal(t, []string{AccessLog}, c.SharingLocation(loc))
	assert.Contains(t, c.Keys(), Orders)
}
