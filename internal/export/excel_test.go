package export

import (
	"bytes"
	"io"
	"os"
	"testing"

	"stockpile/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testExporter(t *testing.T) *Exporter {
	t.Helper()
	logger := zerolog.New(io.Discard)
	return NewExporter(t.TempDir(), &logger)
}

func sampleInventory() (*models.Inventory, []*models.Item) {
	inv := &models.Inventory{ID: "inv-1", Title: "Tools", OwnerID: "u1"}
	inv.Schema.AddField(models.BucketString, "color")
	inv.Schema.AddField(models.BucketNumber, "weight")

	items := []*models.Item{
		{ID: "row-1", InventoryID: "inv-1", ItemID: "1001", Name: "Hammer", Quantity: 3,
			Values: map[string]any{"color": "red", "weight": float64(2)}},
		{ID: "row-2", InventoryID: "inv-1", ItemID: "1002", Name: "Wrench", Quantity: 1},
	}
	return inv, items
}

func TestExporterStream(t *testing.T) {
	e := testExporter(t)
	inv, items := sampleInventory()

	var buf bytes.Buffer
	err := e.Stream(&buf, inv, items)
	require.NoError(t, err)
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Tools", title)

	// Header row includes the schema fields after the fixed columns
	header, err := f.GetCellValue(sheetName, "D2")
	require.NoError(t, err)
	assert.Equal(t, "color", header)

	name, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Hammer", name)

	color, err := f.GetCellValue(sheetName, "D3")
	require.NoError(t, err)
	assert.Equal(t, "red", color)

	// Row with no custom values leaves the cells blank
	color, err = f.GetCellValue(sheetName, "D4")
	require.NoError(t, err)
	assert.Empty(t, color)
}

func TestExporterExport(t *testing.T) {
	e := testExporter(t)
	inv, items := sampleInventory()

	path, err := e.Export(inv, items)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
	assert.Contains(t, path, "inv-1_export_")
}

func TestExporterEmptyInventory(t *testing.T) {
	e := testExporter(t)
	inv := &models.Inventory{ID: "inv-2", Title: "Empty"}

	var buf bytes.Buffer
	err := e.Stream(&buf, inv, nil)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}
