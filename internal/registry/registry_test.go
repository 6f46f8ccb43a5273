package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradefinlabs/docpipeline/constants"
)

const testRegistryYAML = `documents:
  - type: commercial_invoice
    category: commercial
    description: Invoice from exporter to importer
    extract: true
    fields:
      - name: invoice_number
        type: string
        required: true
      - name: total_amount
        type: currency
        required: true
    extraction_prompt: |
      Extract invoice fields as JSON.
      TEXT:
      {text}
  - type: packing_list
    category: commercial
    description: List of packed goods
    extract: false
  - type: other
    category: unknown
    description: Unrecognized document
`

func writeTestRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "document_registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistryYAML), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	reg, err := Load(writeTestRegistry(t), nil)
	require.NoError(t, err)

	require.Len(t, reg.Documents, 3)
	require.True(t, reg.Has("commercial_invoice"))
	require.False(t, reg.Has("mystery_doc"))
	require.Equal(t, 1, reg.ExtractionEnabledCount())

	inv := reg.Lookup("commercial_invoice")
	require.NotNil(t, inv)
	require.True(t, inv.Extract)
	require.Len(t, inv.Fields, 2)
	require.Equal(t, constants.FieldTypeCurrency, inv.Fields[1].Type)
	require.Contains(t, inv.ExtractionPrompt, "{text}")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestByCategory(t *testing.T) {
	reg, err := Load(writeTestRegistry(t), nil)
	require.NoError(t, err)

	byCat := reg.ByCategory()
	require.Len(t, byCat[constants.CategoryCommercial], 2)
	require.Len(t, byCat[constants.CategoryUnknown], 1)
}

func TestFallback(t *testing.T) {
	reg := Fallback()

	// The sentinel type must always be present.
	require.True(t, reg.Has(constants.DocTypeOther))
	require.False(t, reg.Lookup(constants.DocTypeOther).Extract)

	// Extraction-enabled fallback entries carry full field specs and a
	// prompt template with a text slot.
	for _, d := range reg.Documents {
		if d.Extract {
			require.NotEmpty(t, d.Fields, d.Type)
			require.Contains(t, d.ExtractionPrompt, "{text}", d.Type)
		}
	}
}
