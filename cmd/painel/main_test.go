package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/pkg/config"
	"painel/pkg/sheets"
)

func testCLI(client *sheets.MockClient) *cli {
	return &cli{
		connect: func(ctx context.Context, cfg *config.Config) (sheets.TableClient, error) {
			return client, nil
		},
		loadConfig: func(string) (*config.Config, error) {
			cfg := &config.Config{Store: config.Defaults()}
			cfg.Store.Sheets.SpreadsheetID = "abc"
			cfg.Store.Batch.PartitionDelay = 0
			return cfg, nil
		},
	}
}

func run(t *testing.T, c *cli, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(c)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDatasetsCommand(t *testing.T) {
	out, err := run(t, testCLI(sheets.NewMockClient()), "", "datasets")
	require.NoError(t, err)
	assert.Contains(t, out, "pedidos")
	assert.Contains(t, out, "Divimec (Slitter)")
	assert.Contains(t, out, "acessos")
}

func TestGetCommand(t *testing.T) {
	client := sheets.NewMockClient()
	client.SetTable("Usuarios", []string{"Login", "Nome Vendedor", "Tipo"},
		[]string{"ana", "Ana", "vendedor"},
		[]string{"bruno", "Bruno", "gerente"},
	)

	out, err := run(t, testCLI(client), "", "get", "usuarios", "--where", "Tipo=gerente")
	require.NoError(t, err)
	assert.Contains(t, out, `"bruno"`)
	assert.NotContains(t, out, `"ana"`)

	_, err = run(t, testCLI(client), "", "get", "usuarios", "--where", "Tipo")
	assert.Error(t, err)

	_, err = run(t, testCLI(client), "", "get", "nope")
	assert.Error(t, err)
}

func TestWriteCommand(t *testing.T) {
	client := sheets.NewMockClient()
	client.SetTable("Metas_Producao", []string{"MAQUINA", "META"})

	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"MAQUINA":"Fagor","META":40}]`), 0644))

	out, err := run(t, testCLI(client), "", "write", "metas_producao", "--mode", "overwrite", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 rows")
	assert.Equal(t, []string{"Fagor", "40"}, client.Tables["Metas_Producao"].Rows[0])

	out, err = run(t, testCLI(client), `[{"MAQUINA":"Marafon","META":12.5}]`, "write", "metas_producao")
	require.NoError(t, err)
	assert.Contains(t, out, "(append)")
	assert.Len(t, client.Tables["Metas_Producao"].Rows, 2)

	_, err = run(t, testCLI(client), "[]", "write", "metas_producao", "--mode", "upsert")
	assert.Error(t, err)
}
