package dataset

import (
	"sort"
	"time"

	"painel/pkg/sheets"
)

// Dataset keys used by the dashboard.
const (
	Invoicing            = "faturamento"
	InvoicingTargets     = "metas_faturamento"
	Production           = "producao"
	ProductionTargets    = "metas_producao"
	Users                = "usuarios"
	AccessRequests       = "solicitacoes"
	PhotoRequests        = "solicitacoes_fotos"
	CertificateRequests  = "solicitacoes_certificados"
	InvoiceRequests      = "solicitacoes_notas"
	AccessLog            = "acessos"
	Orders               = "pedidos"
	OrdersPartitionTitle = "Máquina/Processo"
)

// OrderSheets holds one worksheet per machine or process.
var OrderSheets = []string{"Fagor", "Esquadros", "Marafon", "Divimec (Slitter)", "Divimec (Rebaixamento)"}

// Catalog is the static set of datasets known to a process.
type Catalog map[string]Dataset

func (c Catalog) Lookup(key string) (Dataset, bool) {
	d, ok := c[key]
	return d, ok
}

// Keys returns the dataset keys in sorted order.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SharingLocation returns the keys of every dataset reading loc.
func (c Catalog) SharingLocation(loc sheets.Location) []string {
	var keys []string
	for k, d := range c {
		for _, p := range d.Partitions {
			if p.Location == loc {
				keys = append(keys, k)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}

// Add registers a dataset, resolving its TTL from volatility when unset.
func (c Catalog) Add(d Dataset, operational, reference time.Duration) {
	if d.TTL == 0 {
		d.TTL = operational
		if d.Volatility == Reference {
			d.TTL = reference
		}
	}
	c[d.Key] = d
}

func single(spreadsheetID, sheet string) []Partition {
	return []Partition{{Name: sheet, Location: sheets.Location{SpreadsheetID: spreadsheetID, Sheet: sheet}}}
}

func requestSchema(ref string) Schema {
	return Schema{Columns: []Column{
		{Name: "Data", Kind: Date},
		{Name: "Vendedor"},
		{Name: "Email"},
		{Name: ref, StripQuote: true, Required: true},
		{Name: "Status"},
	}}
}

// DefaultCatalog describes the worksheets of the dashboard spreadsheet.
// operational and reference are the memo TTLs of frequently changing and
// near-static datasets.
func DefaultCatalog(spreadsheetID string, operational, reference time.Duration) Catalog {
	c := Catalog{}

	c.Add(Dataset{
		Key:        Invoicing,
		Partitions: single(spreadsheetID, "Dados_Faturamento"),
		Schema: Schema{
			NormalizeHeaders: true,
			Columns: []Column{
				{Name: "DATA_EMISSAO", Kind: Date, Required: true},
				{Name: "TONS", Kind: Number, Required: true},
			},
		},
	}, operational, reference)

	c.Add(Dataset{
		Key:        InvoicingTargets,
		Partitions: single(spreadsheetID, "Metas_Faturamento"),
		Volatility: Reference,
		Schema: Schema{Columns: []Column{
			{Name: "FILIAL", Required: true},
			{Name: "META", Kind: Number},
		}},
	}, operational, reference)

	c.Add(Dataset{
		Key:        Production,
		Partitions: single(spreadsheetID, "Dados_Producao"),
		Schema: Schema{
			NormalizeHeaders: true,
			Columns: []Column{
				{Name: "DATA", Kind: Date, Required: true},
				{Name: "MAQUINA", Required: true},
				{Name: "VOLUME", Kind: Number, Required: true},
			},
		},
	}, operational, reference)

	c.Add(Dataset{
		Key:        ProductionTargets,
		Partitions: single(spreadsheetID, "Metas_Producao"),
		Volatility: Reference,
		Schema: Schema{Columns: []Column{
			{Name: "MAQUINA", Required: true},
			{Name: "META", Kind: Number},
		}},
	}, operational, reference)

	c.Add(Dataset{
		Key:        Users,
		Partitions: single(spreadsheetID, "Usuarios"),
		Volatility: Reference,
		Schema: Schema{
			Strict: true,
			Columns: []Column{
				{Name: "Login", Required: true},
				{Name: "Nome Vendedor", Required: true},
				{Name: "Email"},
				{Name: "Tipo"},
			},
		},
	}, operational, reference)

	c.Add(Dataset{
		Key:        AccessRequests,
		Partitions: single(spreadsheetID, "Solicitacoes"),
		Schema: Schema{
			Strict: true,
			Columns: []Column{
				{Name: "Nome"},
				{Name: "Email"},
				{Name: "Login", Required: true},
				{Name: "Data", Kind: Date},
				{Name: "Status"},
			},
		},
	}, operational, reference)

	c.Add(Dataset{
		Key:        PhotoRequests,
		Partitions: single(spreadsheetID, "Solicitacoes_Fotos"),
		Schema:     requestSchema("Lote"),
	}, operational, reference)

	c.Add(Dataset{
		Key:        CertificateRequests,
		Partitions: single(spreadsheetID, "Solicitacoes_Certificados"),
		Schema:     requestSchema("Lote"),
	}, operational, reference)

	notes := Schema{Columns: []Column{
		{Name: "Data", Kind: Date},
		{Name: "Vendedor"},
		{Name: "Email"},
		{Name: "NF", StripQuote: true, Required: true},
		{Name: "Filial"},
		{Name: "Status"},
	}}
	c.Add(Dataset{
		Key:        InvoiceRequests,
		Partitions: single(spreadsheetID, "Solicitacoes_Notas"),
		Schema:     notes,
	}, operational, reference)

	c.Add(Dataset{
		Key:        AccessLog,
		Partitions: single(spreadsheetID, "Acessos"),
		SortBy:     "Data",
		Descending: true,
		Schema: Schema{Columns: []Column{
			{Name: "Data", Kind: Date},
			{Name: "Login", Required: true},
			{Name: "Nome"},
		}},
	}, operational, reference)

	orders := Dataset{
		Key:             Orders,
		PartitionColumn: OrdersPartitionTitle,
		Schema: Schema{
			Strict: true,
			Columns: []Column{
				{Name: "Número do Pedido", Kind: Code, Width: 6},
				{Name: "Cliente Correto"},
				{Name: "Produto"},
				{Name: "Quantidade"},
				{Name: "Prazo"},
				{Name: "Vendedor Correto", Required: true},
				{Name: "Gerente Correto"},
			},
		},
	}
	for _, sheet := range OrderSheets {
		orders.Partitions = append(orders.Partitions, single(spreadsheetID, sheet)...)
	}
	c.Add(orders, operational, reference)

	return c
}
