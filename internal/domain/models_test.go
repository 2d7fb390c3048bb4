package domain

import (
	"testing"

	"github.com/storedir/store-directory/internal/searchurl"
	"github.com/stretchr/testify/assert"
)

func TestDefaultStores_HaveValidTemplates(t *testing.T) {
	stores := DefaultStores()
	assert.Len(t, stores, 3)

	for _, s := range stores {
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.Location)
		assert.True(t, s.CanSearch(), s.Name)
		assert.NoError(t, searchurl.Validate(s.SearchURLTemplate), s.Name)
	}
}

func TestGetValidationMessage(t *testing.T) {
	assert.Equal(t, "This field is required", GetValidationMessage("required"))
	assert.Equal(t, "Validation failed: custom", GetValidationMessage("custom"))
}
