package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/wingman/internal/profile"
)

func TestValidateMigrationFileName(t *testing.T) {
	v, err := validateMigrationFileName("07__add_index.sql")
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = validateMigrationFileName("add_index.sql")
	assert.Error(t, err)
	_, err = validateMigrationFileName("x__add_index.sql")
	assert.Error(t, err)
}

func TestSplitSQL(t *testing.T) {
	script := `-- comment
CREATE TABLE a (v TEXT DEFAULT 'x;y');

CREATE INDEX idx ON a (v);
INSERT INTO a (v) VALUES ('tail')`

	stmts := splitSQL(script)
	require.Len(t, stmts, 3)
	assert.Equal(t, "CREATE TABLE a (v TEXT DEFAULT 'x;y')", stmts[0])
	assert.Equal(t, "CREATE INDEX idx ON a (v)", stmts[1])
	assert.Equal(t, "INSERT INTO a (v) VALUES ('tail')", stmts[2])
}

func TestMigrationFiles(t *testing.T) {
	for _, driver := range []string{"sqlite", "postgres"} {
		s := &Store{profile: testProfile(driver)}
		files, err := s.migrationFiles()
		require.NoError(t, err)
		require.NotEmpty(t, files)
		for i := 1; i < len(files); i++ {
			assert.Less(t, files[i-1].version, files[i].version)
		}
		_, err = migrationFS.ReadFile(s.getMigrationBasePath() + LatestSchemaFileName)
		assert.NoError(t, err, driver)
	}
}

func testProfile(driver string) *profile.Profile {
	return &profile.Profile{Driver: driver}
}
