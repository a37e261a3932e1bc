package station

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadTemplateParsesMinimalTemplate(t *testing.T) {
	path := writeTemplate(t, `{"baseName": "CP", "ocppVersion": "1.6"}`)

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "CP", tmpl.BaseName)
	assert.Equal(t, Version16, tmpl.OcppVersion)
}

func TestLoadTemplateRejectsMissingBaseName(t *testing.T) {
	path := writeTemplate(t, `{"ocppVersion": "1.6"}`)

	_, err := LoadTemplate(path)
	assert.Error(t, err)
}

func TestLoadTemplateRejectsUnknownOcppVersion(t *testing.T) {
	path := writeTemplate(t, `{"baseName": "CP", "ocppVersion": "9.9"}`)

	_, err := LoadTemplate(path)
	assert.Error(t, err)
}

func TestLoadTemplateMigratesDeprecatedSupervisionURLKey(t *testing.T) {
	path := writeTemplate(t, `{"baseName": "CP", "supervisionUrl": "ws://example.test/ocpp"}`)

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ws://example.test/ocpp"}, tmpl.SupervisionURLList())
}

func TestLoadTemplateMigratesDeprecatedPayloadSchemaValidationKey(t *testing.T) {
	path := writeTemplate(t, `{"baseName": "CP", "payloadSchemaValidation": true}`)

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.True(t, tmpl.OcppStrictCompliance)
}

func TestLoadTemplateMigratesDeprecatedAuthorizationFileKey(t *testing.T) {
	path := writeTemplate(t, `{"baseName": "CP", "authorizationFile": "idtags.json"}`)

	tmpl, err := LoadTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, "idtags.json", tmpl.IDTagsFile)
}

func TestLoadTemplateErrorsOnMissingFile(t *testing.T) {
	_, err := LoadTemplate(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSupervisionURLListHandlesStringAndSlice(t *testing.T) {
	single := &Template{SupervisionURLs: "ws://a"}
	assert.Equal(t, []string{"ws://a"}, single.SupervisionURLList())

	multi := &Template{SupervisionURLs: []any{"ws://a", "ws://b"}}
	assert.Equal(t, []string{"ws://a", "ws://b"}, multi.SupervisionURLList())

	none := &Template{}
	assert.Nil(t, none.SupervisionURLList())
}
