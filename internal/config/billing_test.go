package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBillingConfigDefaultsWhenFileMissing(t *testing.T) {
	holder, err := newBillingConfigHolder(zap.NewNop(), t.TempDir())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 0, cfg.ClientDueDays)
	assert.Equal(t, 0, cfg.SupplierDueDays)
	assert.Equal(t, []string{"pcs", "kg", "m", "l"}, cfg.Units)
	assert.True(t, cfg.AllowsUnit("kg"))
	assert.False(t, cfg.AllowsUnit("box"))
}

func TestBillingConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("billing:\n  clientDueDays: 30\n  supplierDueDays: 14\n  units: [pcs, kg, box]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.yml"), content, 0o600))

	holder, err := newBillingConfigHolder(zap.NewNop(), dir)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 30, cfg.ClientDueDays)
	assert.Equal(t, 14, cfg.SupplierDueDays)
	assert.True(t, cfg.AllowsUnit("box"))
	assert.False(t, cfg.AllowsUnit("l"))
}

func TestBillingConfigRejectsNegativeTerms(t *testing.T) {
	dir := t.TempDir()
	content := []byte("billing:\n  clientDueDays: -1\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.yml"), content, 0o600))

	_, err := newBillingConfigHolder(zap.NewNop(), dir)
	assert.Error(t, err)
}
