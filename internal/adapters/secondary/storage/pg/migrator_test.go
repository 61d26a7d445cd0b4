package pg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMigrationName(t *testing.T) {
	version, name, err := parseMigrationName("0002_pending_intents.sql")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
	assert.Equal(t, "pending_intents", name)

	for _, bad := range []string{"init.sql", "0001_.sql", "abc_init.sql", "0000_zero.sql", "-1_neg.sql"} {
		_, _, err := parseMigrationName(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadMigrationsOrdered(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].Version, migrations[i].Version)
	}
	for _, m := range migrations {
		assert.NotEmpty(t, m.Content, m.Name)
	}
}
