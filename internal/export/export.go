// Package export выгружает содержимое хранилища в плоскую таблицу CSV или XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmeshcher/paybook/internal/model"
)

// Имена файлов выгрузки.
const (
	CSVFilename  = "data_export.csv"
	XLSXFilename = "data_export.xlsx"
)

const sheetName = "data"

// Header содержит первую строку выгрузки.
var Header = []string{"Table", "Data"}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Rows разворачивает дамп в строки выгрузки. Каждая строка начинается с имени таблицы.
func Rows(d *model.Dump) [][]string {
	rows := make([][]string, 0, 1+len(d.Users)+len(d.Customers)+len(d.Payments)+len(d.UserPayments))
	rows = append(rows, Header)

	for _, u := range d.Users {
		rows = append(rows, []string{"User", id(u.ID), u.Username, string(u.Role), u.DeliveryAmount.String(), u.TotalSum.String()})
	}
	for _, c := range d.Customers {
		rows = append(rows, []string{
			"Customer", id(c.ID), c.Name, c.Phone, c.Address,
			c.PaymentValue.String(), c.TotalSum.String(), string(c.Status), c.Notes,
			ts(c.CreatedAt), id(c.UserID),
		})
	}
	for _, p := range d.Payments {
		rows = append(rows, []string{"Payment", id(p.ID), p.Amount.String(), ts(p.Date), id(p.CustomerID)})
	}
	for _, up := range d.UserPayments {
		rows = append(rows, []string{"UserPayment", id(up.ID), up.Amount.String(), ts(up.Date), up.DelivererName, up.Notes, id(up.UserID)})
	}

	return rows
}

// WriteCSV записывает выгрузку в формате CSV.
func WriteCSV(w io.Writer, d *model.Dump) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(d)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteXLSX записывает выгрузку в книгу Excel с одним листом.
func WriteXLSX(w io.Writer, d *model.Dump) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("new style: %w", err)
	}

	for i, row := range Rows(d) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
