package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "tenant_9f8b1c2d_3e4f_5a6b_7c8d_9e0f1a2b3c4d",
		SchemaName("9f8b1c2d-3e4f-5a6b-7c8d-9e0f1a2b3c4d"))
	assert.Equal(t, "tenant_abc123", SchemaName("abc123"))
}

func TestValidSchema(t *testing.T) {
	assert.NoError(t, validSchema("tenant_abc_123"))

	// Anything that could smuggle SQL through the identifier is rejected
	for _, name := range []string{
		"tenant_abc;drop schema public",
		`tenant_"abc"`,
		"tenant_ABC",
		"tenant abc",
		"",
	} {
		assert.Error(t, validSchema(name), name)
	}
}
