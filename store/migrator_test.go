package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSQL(t *testing.T) {
	script := `-- cue
CREATE TABLE a (x TEXT DEFAULT 'a;b');

CREATE INDEX i ON a (x);
-- trailing comment
INSERT INTO a VALUES ('it''s')`

	got := splitSQL(script)

	assert.Equal(t, []string{
		"CREATE TABLE a (x TEXT DEFAULT 'a;b')",
		"CREATE INDEX i ON a (x)",
		"INSERT INTO a VALUES ('it''s')",
	}, got)
}

func TestSplitSQL_Empty(t *testing.T) {
	assert.Empty(t, splitSQL(""))
	assert.Empty(t, splitSQL("-- only a comment\n\n"))
}

func TestEmbeddedSchemas(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite"} {
		b, err := migrationFS.ReadFile("migration/" + driver + "/" + LatestSchemaFileName)
		assert.NoError(t, err, driver)
		assert.Contains(t, string(b), "UNIQUE (owner_id, key, type)")
	}
}

func TestUpsertCue_Validate(t *testing.T) {
	assert.Error(t, (*UpsertCue)(nil).Validate())
	assert.NoError(t, (&UpsertCue{Key: "k", Type: "skill", Confidence: 1}).Validate())
}
