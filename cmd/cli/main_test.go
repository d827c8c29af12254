package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/config"
)

const statementCSV = `Date,Description,Amount,Balance
2025/01/15,WOOLWORTHS SANDTON,-350.50,1649.50
2025/01/16,SALARY ACME,15000.00,16649.50
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.Default()
	cfg.Store.SQLitePath = filepath.Join(dir, "statements.db")
	cfg.Log.Level = "error"
	path := filepath.Join(dir, "statement-core.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func TestDisplayCmd(t *testing.T) {
	out, err := runCLI(t, "display", "POS PURCHASE WOOLWORTHS SANDTON REF 123456")
	require.NoError(t, err)
	assert.Contains(t, out, "display")
	assert.Contains(t, out, "core")
	assert.Contains(t, out, "reference  123456")
}

func TestMatchCmd(t *testing.T) {
	out, err := runCLI(t, "match", "WOOLWORTHS SANDTON", "Woolworths")
	require.NoError(t, err)
	assert.Contains(t, out, "match")
	assert.NotContains(t, out, "no match")

	out, err = runCLI(t, "match", "NETFLIX", "SHOPRITE")
	require.NoError(t, err)
	assert.Contains(t, out, "no match")
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement-core.yaml")

	out, err := runCLI(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = runCLI(t, "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = runCLI(t, "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestIngestCmd_DryRunStoresNothing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := writeConfig(t, dir)
	file := filepath.Join(dir, "fnb-jan.csv")
	require.NoError(t, os.WriteFile(file, []byte(statementCSV), 0o644))

	out, err := runCLI(t, "ingest", file, "--dry-run", "--config", cfgPath, "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, "FNB checking account")
	assert.Contains(t, out, "-350.50")
	assert.Contains(t, out, "Dry run")

	_, err = os.Stat(filepath.Join(dir, "statements.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngestCmd_SecondRunSkipsDuplicates(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := writeConfig(t, dir)
	file := filepath.Join(dir, "fnb-jan.csv")
	require.NoError(t, os.WriteFile(file, []byte(statementCSV), 0o644))

	out, err := runCLI(t, "ingest", file, "--config", cfgPath, "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted 2, skipped 0 duplicates")

	out, err = runCLI(t, "ingest", file, "--config", cfgPath, "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Inserted 0, skipped 2 duplicates")
}

func TestIngestCmd_UnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := writeConfig(t, dir)
	file := filepath.Join(dir, "statement.zip")
	require.NoError(t, os.WriteFile(file, []byte("PK"), 0o644))

	_, err := runCLI(t, "ingest", file, "--dry-run", "--config", cfgPath)
	assert.ErrorContains(t, err, "unsupported file format")
}

func TestIdentifyCmd(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := writeConfig(t, dir)
	file := filepath.Join(dir, "savings.csv")
	require.NoError(t, os.WriteFile(file, []byte("NEDBANK SAVINGS\n"+statementCSV), 0o644))

	out, err := runCLI(t, "identify", file, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Format:  csv")
	assert.Contains(t, out, "Bank:    Nedbank")
	assert.Contains(t, out, "Account: savings")
}

func TestMigrateCmd_SQLite(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := writeConfig(t, dir)

	out, err := runCLI(t, "migrate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date (sqlite)")
}

func TestDetectCmd_RejectsLookback(t *testing.T) {
	_, err := runCLI(t, "detect", "--lookback", "13")
	assert.ErrorContains(t, err, "--lookback must be between 1 and 12")
}

func TestArchiveCmd_Disabled(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfgPath := writeConfig(t, dir)

	_, err := runCLI(t, "archive", filepath.Join(dir, "missing.pdf"), "--config", cfgPath)
	assert.ErrorContains(t, err, "archiving is disabled")
}
