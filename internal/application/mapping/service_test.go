package mapping

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/datamigrate/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/datamigrate/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGenerateFieldMapTemplate(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.csv", "vorname,nachname\nMax,Muster\n")
	tmplPath := filepath.Join(dir, "fieldmap.json")
	svc := NewService(logging.NewNopLogger())

	out, err := svc.GenerateFieldMapTemplate(context.Background(), &TemplateInput{
		Path:         source,
		TemplatePath: tmplPath,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"vorname", "nachname"}, out.Fields)

	data, err := os.ReadFile(tmplPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source_field": "vorname"`)
}

func TestApplyFieldMap(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.csv",
		"vorname,nachname,alter\nMax,Muster,30\nErika,Beispiel,25\n")
	mapFile := writeFile(t, dir, "fields.csv",
		"source_field,target_field\nvorname,first_name\nnachname,last_name\n")
	svc := NewService(logging.NewNopLogger())

	out, err := svc.ApplyFieldMap(context.Background(), &ApplyFieldInput{Path: source, MapPath: mapFile})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows)
	assert.True(t, strings.HasSuffix(out.MappedPath, "source_mapped.csv"))

	data, err := os.ReadFile(out.MappedPath)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "first_name,last_name\n"))
	assert.NotContains(t, content, "alter")
	assert.Contains(t, content, "Max,Muster")
}

func TestApplyFieldMapMissingColumn(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.csv", "a\n1\n")
	mapFile := writeFile(t, dir, "fields.csv", "source_field,target_field\nmissing,b\n")
	svc := NewService(logging.NewNopLogger())

	_, err := svc.ApplyFieldMap(context.Background(), &ApplyFieldInput{Path: source, MapPath: mapFile})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMappingFieldMissing))
}

func TestApplyFieldThenValueMapSharesOneArtifact(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.csv",
		"vorname,status\nMax,aktiv\nErika,inaktiv\n")
	fieldMap := writeFile(t, dir, "fields.csv",
		"source_field,target_field\nvorname,first_name\nstatus,status\n")
	valueMap := writeFile(t, dir, "values.csv",
		"field,old_value,new_value\nstatus,aktiv,active\nstatus,inaktiv,inactive\n")
	svc := NewService(logging.NewNopLogger())

	fields, err := svc.ApplyFieldMap(context.Background(), &ApplyFieldInput{Path: source, MapPath: fieldMap})
	require.NoError(t, err)

	values, err := svc.ApplyValueMap(context.Background(), &ApplyValueInput{Path: fields.MappedPath, MapPath: valueMap})
	require.NoError(t, err)
	assert.Equal(t, fields.MappedPath, values.MappedPath)
	assert.True(t, strings.HasSuffix(values.MappedPath, "source_mapped.csv"))

	data, err := os.ReadFile(values.MappedPath)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "first_name,status\n"))
	assert.Contains(t, content, "Max,active")
	assert.Contains(t, content, "Erika,inactive")
}

func TestApplyValueMap(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "source.csv",
		"status\naktiv\ninaktiv\naktiv\n")
	mapFile := writeFile(t, dir, "values.csv",
		"field,old_value,new_value\nstatus,aktiv,active\nstatus,inaktiv,inactive\n")
	svc := NewService(logging.NewNopLogger())

	out, err := svc.ApplyValueMap(context.Background(), &ApplyValueInput{Path: source, MapPath: mapFile})
	require.NoError(t, err)
	assert.Equal(t, 3, out.ValuesChanged)

	data, err := os.ReadFile(out.MappedPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "active\ninactive\nactive\n")
}
