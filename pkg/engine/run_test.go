package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lacquerai/blocksmith/internal/store"
	"github.com/lacquerai/blocksmith/internal/testhelper"
	"github.com/lacquerai/blocksmith/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `{"blocks": {"languageVersion": 0, "blocks": [
	{"type": "html_element", "fields": {"TAG": "section"}, "inputs": {
		"CONTENT": {"block": {"type": "html_text", "fields": {"TEXT": "Hi"}}}
	}},
	{"type": "css_rule", "fields": {"SELECTOR": "p"}}
]}}`

func TestCompile(t *testing.T) {
	dir := t.TempDir()
	testhelper.WriteLibrary(t, dir)

	var diags []events.Diagnostic
	code, err := Compile([]byte(snapshot), WithLibrary(dir), WithDiagnosticListener(func(d events.Diagnostic) {
		diags = append(diags, d)
	}))
	require.NoError(t, err)
	assert.Equal(t, "<section>\nHi\n</section>\np {\n}\n", code)
	assert.Empty(t, diags)
}

func TestRenderDocument_Database(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "blocks.db")

	st, err := store.OpenSQL(ctx, store.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	for i, rec := range testhelper.Records() {
		require.NoError(t, st.SaveBlock(ctx, rec, i))
	}
	require.NoError(t, st.Close())

	doc, err := RenderDocument("Home", []byte(snapshot), WithDatabase(store.DriverSQLite, dsn), WithContext(ctx))
	require.NoError(t, err)
	assert.Contains(t, doc, "<title>Home</title>")
	assert.Contains(t, doc, "<style>\np {\n}\n</style>")
	assert.Contains(t, doc, "<body>\n<section>\nHi\n</section>\n</body>")
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile([]byte(snapshot), WithLibrary(filepath.Join(t.TempDir(), "missing")))
	assert.ErrorContains(t, err, "library directory not found")

	dir := t.TempDir()
	testhelper.WriteLibrary(t, dir)
	_, err = Compile([]byte(`{"blocks": {"blocks": [{"type": "html_blink"}]}}`), WithLibrary(dir))
	assert.ErrorContains(t, err, "unknown block type")
}
