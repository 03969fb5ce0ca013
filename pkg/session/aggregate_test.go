package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painel/pkg/dataset"
)

var orderHeader = []string{"Número do Pedido", "Cliente Correto", "Vendedor Correto"}

func seedOrders(f *fixture) {
	for i, sheet := range dataset.OrderSheets {
		f.client.SetTable(sheet, orderHeader, []string{string(rune('1' + i)), "ACME", "Ana"})
	}
}

func TestAggregateTagsPartitions(t *testing.T) {
	f := newFixture(t, 0)
	seedOrders(f)

	snap, err := f.session.Get(context.Background(), dataset.Orders)
	require.NoError(t, err)
	require.Equal(t, len(dataset.OrderSheets), snap.Len())
	for i, sheet := range dataset.OrderSheets {
		assert.Equal(t, sheet, snap.Row(i)[dataset.OrdersPartitionTitle])
	}
	assert.Contains(t, snap.Columns(), dataset.OrdersPartitionTitle)
}

func TestAggregateSkipsFailedPartitions(t *testing.T) {
	f := newFixture(t, 0)
	seedOrders(f)
	f.client.FailNext("Marafon", notFoundErr)
	f.client.FailNext("Divimec (Slitter)", notFoundErr)

	snap, err := f.session.Get(context.Background(), dataset.Orders)
	require.NoError(t, err)
	assert.Equal(t, len(dataset.OrderSheets)-2, snap.Len())

	var tags []any
	for _, r := range snap.Rows() {
		tags = append(tags, r[dataset.OrdersPartitionTitle])
	}
	assert.Equal(t, []any{"Fagor", "Esquadros", "Divimec (Rebaixamento)"}, tags)

	// an incomplete batch is not memoized
	snap, err = f.session.Get(context.Background(), dataset.Orders)
	require.NoError(t, err)
	assert.Equal(t, len(dataset.OrderSheets), snap.Len())
	assert.Equal(t, 2, f.client.Reads("Fagor"))
}

func TestAggregatePartitionFallsBackToStale(t *testing.T) {
	f := newFixture(t, 0)
	seedOrders(f)
	_, err := f.session.Get(context.Background(), dataset.Orders)
	require.NoError(t, err)

	f.session.Refresh()
	f.client.SetTable("Fagor", orderHeader, []string{"7", "Beta", "Bruno"}, []string{"8", "Beta", "Bruno"})
	f.client.FailNext("Esquadros", notFoundErr)

	snap, err := f.session.Get(context.Background(), dataset.Orders)
	require.NoError(t, err)
	assert.Equal(t, len(dataset.OrderSheets)+1, snap.Len())
	assert.Equal(t, "Esquadros", snap.Row(2)[dataset.OrdersPartitionTitle])
	assert.Equal(t, "000002", snap.Row(2)["Número do Pedido"])
}

func TestAggregatePacesPartitions(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	seedOrders(f)

	start := time.Now()
	_, err := f.session.Get(context.Background(), dataset.Orders)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), time.Duration(len(dataset.OrderSheets)-1)*20*time.Millisecond)
}

func TestAggregateCanceledContextSkipsRemaining(t *testing.T) {
	f := newFixture(t, time.Hour)
	seedOrders(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := f.session.Get(ctx, dataset.Orders)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, 0, f.client.Reads("Fagor"))
}
