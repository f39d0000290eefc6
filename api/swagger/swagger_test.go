package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestRegisteredDocIsValidJSON(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "/api/v1", doc["basePath"])
}

func TestUploadDescribesIsPublicAsStoredFlag(t *testing.T) {
	var doc struct {
		Paths map[string]map[string]struct {
			Parameters []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			} `json:"parameters"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docTemplate), &doc))

	upload, ok := doc.Paths["/materials/upload"]["post"]
	require.True(t, ok)
	var description string
	for _, p := range upload.Parameters {
		if p.Name == "is_public" {
			description = p.Description
		}
	}
	assert.Contains(t, description, "not filtered")
	assert.NotContains(t, description, "Visible to")
}
