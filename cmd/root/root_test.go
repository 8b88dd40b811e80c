package root_test

import (
	"testing"

	"dkowalski/mbank-ledger/cmd/root"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "mbank-ledger", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "mBank")
	assert.Contains(t, root.Cmd.Long, "Windows-1250")
	assert.NotNil(t, root.Cmd.Run)
	assert.NotNil(t, root.Cmd.PersistentPreRunE)
}

func TestTenantID(t *testing.T) {
	original := root.SharedFlags.Tenant
	defer func() { root.SharedFlags.Tenant = original }()

	root.SharedFlags.Tenant = ""
	_, err := root.TenantID()
	assert.Error(t, err)

	root.SharedFlags.Tenant = "not-a-uuid"
	_, err = root.TenantID()
	assert.Error(t, err)

	want := uuid.New()
	root.SharedFlags.Tenant = want.String()
	got, err := root.TenantID()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGlobalVariables_Initialization(t *testing.T) {
	assert.NotNil(t, root.Log)
	assert.NotNil(t, root.Cmd)
}
