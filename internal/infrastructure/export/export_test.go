package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rwpay/internal/domain/reports"
)

func sampleTable() *reports.Table {
	return &reports.Table{
		Title:    "Laporan Bulanan",
		Subtitle: "RW 08 Sambiroto - 2024-03",
		Columns:  []string{"No. Rumah", "Nama", "Jumlah"},
		Rows: [][]string{
			{"A-01", "Budi, S.", "IDR 50.000"},
			{"A-02", "Siti", "IDR 62.500"},
		},
		Raw: [][]any{
			{nil, nil, int64(50000)},
			{nil, nil, int64(62500)},
		},
		Summary: [][2]string{{"Total", "IDR 112.500"}},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV{}.Render(&buf, sampleTable()))

	assert.Equal(t,
		"No. Rumah,Nama,Jumlah\nA-01,\"Budi, S.\",IDR 50.000\nA-02,Siti,IDR 62.500\n",
		buf.String())
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX{}.Render(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(dataSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Laporan Bulanan", title)

	header, err := f.GetCellValue(dataSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Nama", header)

	amount, err := f.GetCellValue(dataSheet, "C6")
	require.NoError(t, err)
	assert.Equal(t, "62500", amount)

	require.NoError(t, f.SetCellFormula(dataSheet, "C8", "SUM(C5:C6)"))
	sum, err := f.CalcCellValue(dataSheet, "C8")
	require.NoError(t, err)
	assert.Equal(t, "112500", sum, "amounts are numeric cells")

	total, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "IDR 112.500", total)
}

func TestXLSX_TextWithoutRaw(t *testing.T) {
	table := sampleTable()
	table.Raw = nil

	var buf bytes.Buffer
	require.NoError(t, XLSX{}.Render(&buf, table))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	amount, err := f.GetCellValue(dataSheet, "C5")
	require.NoError(t, err)
	assert.Equal(t, "IDR 50.000", amount)
}

func TestPDF(t *testing.T) {
	table := sampleTable()
	for i := 0; i < 80; i++ {
		table.Rows = append(table.Rows, []string{"B-10", "Warga", "IDR 50.000"})
	}

	var buf bytes.Buffer
	require.NoError(t, PDF{}.Render(&buf, table))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRenderersCoverFormats(t *testing.T) {
	r := Renderers()
	for _, f := range []reports.Format{reports.FormatPDF, reports.FormatXLSX, reports.FormatCSV} {
		assert.Contains(t, r, f)
	}
}

func TestAlign(t *testing.T) {
	assert.Equal(t, "R", align("IDR 50.000"))
	assert.Equal(t, "R", align("12"))
	assert.Equal(t, "L", align("A-01"))
	assert.Equal(t, "L", align("lunas 2"))
	assert.Equal(t, "L", align(""))
}
