package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"stockpile/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Items"

// Exporter renders an inventory's items as an xlsx workbook.
type Exporter struct {
	path   string
	logger *zerolog.Logger
}

func NewExporter(path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// Stream writes the workbook for the inventory directly to w.
func (e *Exporter) Stream(w io.Writer, inv *models.Inventory, items []*models.Item) error {
	f, err := e.buildWorkbook(inv, items)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

// Export сохраняет файл в каталог экспорта и возвращает путь к нему.
func (e *Exporter) Export(inv *models.Inventory, items []*models.Item) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := e.buildWorkbook(inv, items)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("%s_export_%s.xlsx", inv.ID, time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Str("inventory_id", inv.ID).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) buildWorkbook(inv *models.Inventory, items []*models.Item) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок с названием инвентаря
	_ = f.SetCellValue(sheetName, "A1", inv.Title)
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	// Фиксированные колонки плюс кастомные поля схемы
	headers := []string{"Item ID", "Name", "Quantity"}
	fieldNames := inv.Schema.FieldNames()
	headers = append(headers, fieldNames...)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	for i, item := range items {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, item.ItemID)
		cell, _ = excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheetName, cell, item.Name)
		cell, _ = excelize.CoordinatesToCellName(3, row)
		_ = f.SetCellValue(sheetName, cell, item.Quantity)

		for j, name := range fieldNames {
			cell, _ = excelize.CoordinatesToCellName(4+j, row)
			if val, ok := item.Values[name]; ok {
				_ = f.SetCellValue(sheetName, cell, val)
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 18)
	_ = f.SetColWidth(sheetName, "B", "B", 25)
	if len(headers) > 2 {
		_ = f.SetColWidth(sheetName, "C", lastCol, 15)
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}
