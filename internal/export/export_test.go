package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/uiso2025/uiso-admin-api/internal/domain"
)

var at = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func projection(withTeam bool) domain.Projection {
	p := domain.Projection{
		Main: domain.Sheet{
			Name:    "Registrasi",
			Headers: []string{"ID", "Nama Lengkap", "Status"},
			Rows: []domain.FlatRow{
				{"r1", "Budi Santoso", "pending"},
				{"r2", "Citra, Lestari", "approved"},
			},
		},
	}
	if withTeam {
		p.Team = &domain.Sheet{
			Name:    "Anggota Tim",
			Headers: []string{"Registrasi - ID", "Nama Lengkap"},
			Rows:    []domain.FlatRow{{"r2", "Dewi"}},
		}
	}
	return p
}

func TestEncode_XLSX(t *testing.T) {
	file, err := Encode(projection(true), FormatXLSX, at)
	require.NoError(t, err)

	assert.Equal(t, "registrasi-uiso-2025-03-14.xlsx", file.Name)

	f, err := excelize.OpenReader(bytes.NewReader(file.Body))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Registrasi", "Anggota Tim"}, f.GetSheetList())

	rows, err := f.GetRows("Registrasi")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"ID", "Nama Lengkap", "Status"},
		{"r1", "Budi Santoso", "pending"},
		{"r2", "Citra, Lestari", "approved"},
	}, rows)

	team, err := f.GetRows("Anggota Tim")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Registrasi - ID", "Nama Lengkap"}, {"r2", "Dewi"}}, team)
}

func TestEncode_CSV(t *testing.T) {
	t.Run("main sheet only", func(t *testing.T) {
		file, err := Encode(projection(false), FormatCSV, at)
		require.NoError(t, err)

		records, err := csv.NewReader(bytes.NewReader(file.Body)).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, "Citra, Lestari", records[2][1])
	})

	t.Run("team section after a blank line", func(t *testing.T) {
		file, err := Encode(projection(true), FormatCSV, at)
		require.NoError(t, err)

		assert.Contains(t, string(file.Body), "approved\n\nRegistrasi - ID,Nama Lengkap\n")
	})
}

func TestEncode_UnsupportedFormat(t *testing.T) {
	_, err := Encode(projection(false), Format("pdf"), at)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
