package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const shopSQL = `
CREATE TABLE Employees (id INTEGER PRIMARY KEY, name TEXT, dept_id INTEGER);
CREATE TABLE Departments (id INTEGER PRIMARY KEY, title TEXT);
`

// newShopDB creates a sqlite file with two tables and returns its path.
func newShopDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(shopSQL)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return path
}

// writeConfig writes a config file pointing the store at a temp directory.
// connection may be empty.
func writeConfig(t *testing.T, connection string) string {
	t.Helper()
	dir := t.TempDir()
	data := fmt.Sprintf("store:\n  path: %s\nlog:\n  level: error\n%s",
		filepath.Join(dir, "store.db"), connection)
	path := filepath.Join(dir, "dbsense.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func sqliteConnection(dbPath string) string {
	return fmt.Sprintf("connection:\n  driver: sqlite\n  dsn: %s\n", dbPath)
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type jsonReport struct {
	Context struct {
		Kind   string `json:"kind"`
		Alias  string `json:"alias"`
		Table  string `json:"table"`
		Prefix string `json:"prefix"`
	} `json:"context"`
	Candidates []struct {
		Text string `json:"text"`
		Kind string `json:"kind"`
	} `json:"candidates"`
}

func TestCompleteCmd_TableNames(t *testing.T) {
	cfg := writeConfig(t, sqliteConnection(newShopDB(t)))

	out, err := runCLI(t, "", "--config", cfg, "complete", "--sql", "SELECT * FROM Em")
	require.NoError(t, err)
	assert.Contains(t, out, "context: TableRef")
	assert.Contains(t, out, "Employees")
	assert.NotContains(t, out, "Departments")
}

func TestCompleteCmd_AliasColumnsJSON(t *testing.T) {
	cfg := writeConfig(t, sqliteConnection(newShopDB(t)))

	out, err := runCLI(t, "", "--config", cfg, "complete",
		"--sql", "SELECT e. FROM Employees e", "--caret", "9", "--json")
	require.NoError(t, err)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "AliasColumn", rep.Context.Kind)
	assert.Equal(t, "", rep.Context.Prefix)

	var texts []string
	for _, c := range rep.Candidates {
		texts = append(texts, c.Text)
		assert.Equal(t, "column", c.Kind)
	}
	assert.Equal(t, []string{"id", "name", "dept_id"}, texts)
}

func TestCompleteCmd_ReadsStdin(t *testing.T) {
	cfg := writeConfig(t, sqliteConnection(newShopDB(t)))

	out, err := runCLI(t, "SELECT * FROM Dep\n", "--config", cfg, "complete")
	require.NoError(t, err)
	assert.Contains(t, out, "Departments")
}

func TestCompleteCmd_KeywordsWithoutConnection(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := runCLI(t, "", "--config", cfg, "complete", "--sql", "SELECT * FROM Employees WH", "--json")
	require.NoError(t, err)

	var rep jsonReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "Default", rep.Context.Kind)
	var texts []string
	for _, c := range rep.Candidates {
		texts = append(texts, c.Text)
	}
	assert.Contains(t, texts, "WHERE")
	assert.NotContains(t, texts, "SELECT")
}

func TestCompleteCmd_DriverFlagOverridesConfig(t *testing.T) {
	cfg := writeConfig(t, "")
	db := newShopDB(t)

	out, err := runCLI(t, "", "--config", cfg, "--driver", "sqlite", "--dsn", db,
		"complete", "--sql", "SELECT * FROM Em")
	require.NoError(t, err)
	assert.Contains(t, out, "Employees")
}

func TestSchemaCmd(t *testing.T) {
	cfg := writeConfig(t, sqliteConnection(newShopDB(t)))

	out, err := runCLI(t, "", "--config", cfg, "schema")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, []string{"TABLE", "COLUMN", "TYPE"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Departments", "id", "INTEGER"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Employees", "dept_id", "INTEGER"}, strings.Fields(lines[5]))
}

func TestSchemaCmd_JSON(t *testing.T) {
	cfg := writeConfig(t, sqliteConnection(newShopDB(t)))

	out, err := runCLI(t, "", "--config", cfg, "schema", "--json")
	require.NoError(t, err)

	var tables []struct {
		Name    string `json:"name"`
		Columns []struct {
			Name string `json:"name"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "Employees", tables[1].Name)
	assert.Len(t, tables[1].Columns, 3)
}

func TestSchemaCmd_RequiresConnection(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := runCLI(t, "", "--config", cfg, "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no connection configured")
}

func TestRootCmd_RejectsInvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "")
	_, err := runCLI(t, "", "--config", cfg, "--driver", "oracle", "schema")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection.driver")
}

func TestZeroArgCommandsRejectPositionalArgs(t *testing.T) {
	cfg := writeConfig(t, "")
	for _, args := range [][]string{
		{"complete", "extra"},
		{"schema", "extra"},
	} {
		_, err := runCLI(t, "", append([]string{"--config", cfg}, args...)...)
		assert.Error(t, err, "args %v", args)
	}
}
