package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/datamigrate/pkg/errors"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   rune
	}{
		{"comma separated", "id,name,email\n1,Anna,a@example.com\n", ','},
		{"semicolon separated", "id;name;email\n1;Anna;a@example.com\n", ';'},
		{"equal count favours comma", "a,b;c,d;e,f\ng,h;i,j;k,l\n", ','},
		{"no separator defaults to comma", "justonecolumn\nvalue\n", ','},
		{"empty sample", "", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter([]byte(tt.sample)))
		})
	}
}

func TestIsNull(t *testing.T) {
	for _, cell := range []string{"", "  ", "null", "NULL", "None", "N/A", "n/a", "NaN"} {
		assert.True(t, IsNull(cell), "expected %q to be null", cell)
	}
	for _, cell := range []string{"0", "false", "nil?", "na", "value"} {
		assert.False(t, IsNull(cell), "expected %q to be non-null", cell)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		cell string
		ok   bool
	}{
		{"2024-03-15", true},
		{"15/03/2024", true},
		{"03/15/2024", true},
		{"2024/03/15", true},
		{"15th March", false},
		{"1234567", false},
	}
	for _, tt := range tests {
		_, ok := ParseDate(tt.cell)
		assert.Equal(t, tt.ok, ok, "cell %q", tt.cell)
	}
}

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   ColumnType
	}{
		{"all integers", []string{"1", "2", "3"}, ColumnTypeInteger},
		{"mixed int and float", []string{"1", "2.5", "3"}, ColumnTypeFloat},
		{"dates", []string{"2024-01-01", "2024-02-02"}, ColumnTypeDate},
		{"booleans", []string{"true", "no", "YES"}, ColumnTypeBoolean},
		{"mixed falls back to string", []string{"1", "abc"}, ColumnTypeString},
		{"nulls ignored", []string{"", "null", "42"}, ColumnTypeInteger},
		{"all null", []string{"", "N/A"}, ColumnTypeString},
		{"empty", nil, ColumnTypeString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferColumnType(tt.values))
		})
	}
}

func TestColumnTypeIsNumeric(t *testing.T) {
	assert.True(t, ColumnTypeInteger.IsNumeric())
	assert.True(t, ColumnTypeFloat.IsNumeric())
	assert.False(t, ColumnTypeString.IsNumeric())
	assert.False(t, ColumnTypeDate.IsNumeric())
}

func TestTableColumnAccess(t *testing.T) {
	tbl := NewTable(
		[]string{"id", "name"},
		[][]string{{"1", "Anna"}, {"2", "Ben"}, {"3"}},
	)

	idx, err := tbl.ColumnIndex("name")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = tbl.ColumnIndex("missing")
	assert.True(t, errors.IsCode(err, errors.ErrCodeColumnNotFound))

	col, err := tbl.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Anna", "Ben", ""}, col)

	cell, err := tbl.Cell(0, "id")
	require.NoError(t, err)
	assert.Equal(t, "1", cell)
}

func TestTableCloneIsIndependent(t *testing.T) {
	tbl := NewTable([]string{"id"}, [][]string{{"1"}, {"2"}})
	clone := tbl.Clone()
	clone.Rows[0][0] = "changed"
	assert.Equal(t, "1", tbl.Rows[0][0])
}

func TestTableSelectRows(t *testing.T) {
	tbl := NewTable([]string{"id"}, [][]string{{"a"}, {"b"}, {"c"}})
	sub := tbl.SelectRows([]int{2, 0})
	assert.Equal(t, [][]string{{"c"}, {"a"}}, sub.Rows)
	assert.Equal(t, 2, sub.RowCount())
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReaderReadAll(t *testing.T) {
	path := writeTempCSV(t, "id;name\n1;Anna\n2;Ben\n")

	tbl, delim, err := NewReader(path).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, ';', delim)
	assert.Equal(t, []string{"id", "name"}, tbl.Header)
	assert.Equal(t, 2, tbl.RowCount())
}

func TestReaderReadAllKeepsBlankLines(t *testing.T) {
	// A missing value that is the only cell on its line must survive parsing
	// as an empty row, not vanish from the table.
	path := writeTempCSV(t, "amount\n10\n\n30\n")

	tbl, _, err := NewReader(path).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, [][]string{{"10"}, {""}, {"30"}}, tbl.Rows)
}

func TestReaderReadAllPadsShortRows(t *testing.T) {
	path := writeTempCSV(t, "id,name,city\n1,Anna\n\n2,Ben,Hamburg\n")

	tbl, _, err := NewReader(path).ReadAll()
	require.NoError(t, err)
	require.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, []string{"1", "Anna", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"", "", ""}, tbl.Rows[1])
}

func TestReaderReadAllBlankLineInsideQuotedField(t *testing.T) {
	path := writeTempCSV(t, "id,note\n1,\"first\n\nsecond\"\n2,plain\n")

	tbl, _, err := NewReader(path).ReadAll()
	require.NoError(t, err)
	require.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, "first\n\nsecond", tbl.Rows[0][1])
}

func TestReaderReadAllMissingFile(t *testing.T) {
	_, _, err := NewReader(filepath.Join(t.TempDir(), "nope.csv")).ReadAll()
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetNotFound))
}

func TestReaderReadAllEmptyFile(t *testing.T) {
	path := writeTempCSV(t, "")
	_, _, err := NewReader(path).ReadAll()
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatasetEmpty))
}

func TestReaderReadChunks(t *testing.T) {
	path := writeTempCSV(t, "id\n1\n2\n3\n4\n5\n")

	r := NewReader(path)
	r.ChunkSize = 2

	var offsets []int
	var total int
	err := r.ReadChunks(func(header []string, rows [][]string, offset int) error {
		assert.Equal(t, []string{"id"}, header)
		offsets = append(offsets, offset)
		total += len(rows)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, offsets)
	assert.Equal(t, 5, total)
}

func TestWriteTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	tbl := NewTable([]string{"id", "name"}, [][]string{{"1", "Anna"}})

	require.NoError(t, WriteTable(path, tbl, ';'))

	got, delim, err := NewReader(path).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, ';', delim)
	assert.Equal(t, tbl.Header, got.Header)
	assert.Equal(t, tbl.Rows, got.Rows)
}

func TestOutputPaths(t *testing.T) {
	assert.Equal(t, "/tmp/data_mapped.csv", MappedPath("/tmp/data.csv"))
	assert.Equal(t, "/tmp/data_mapped.csv", MappedPath("/tmp/data_mapped.csv"))
	assert.Equal(t, "/tmp/data_unique.csv", UniquePath("/tmp/data.csv"))
	assert.Equal(t, "/tmp/data_final.csv", FinalPath("/tmp/data.csv"))
	assert.Equal(t, "/tmp/data_cleaned.csv", CleanedPath("/tmp/data.csv"))
	assert.Equal(t, "/tmp/data_duplicates_90pct.csv", DuplicatesPath("/tmp/data.csv", 90))
}
