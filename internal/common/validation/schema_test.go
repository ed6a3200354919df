package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var digestSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"recipientId", "summary"},
	"properties": map[string]interface{}{
		"recipientId": map[string]interface{}{"type": "string"},
		"summary": map[string]interface{}{
			"type":      "string",
			"maxLength": 240,
		},
	},
}

func TestValidateAccepts(t *testing.T) {
	result, err := Validate(digestSchema, map[string]interface{}{
		"recipientId": "user-1",
		"summary":     "Top projects: Urban Garden.",
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateCollectsErrors(t *testing.T) {
	result, err := Validate(digestSchema, map[string]interface{}{
		"summary": 42,
	})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestRequireNamesFirstViolation(t *testing.T) {
	err := Require(digestSchema, map[string]interface{}{
		"recipientId": "user-1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary")
}
