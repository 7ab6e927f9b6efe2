package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "***"},
		{"postgres://u:p@h/db", "po***************db"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	fields := filepath.Join(dir, "fields.csv")
	out := filepath.Join(dir, "schemas")
	content := "cdmTableName,cdmFieldName,cdmDatatype,isRequired,isPrimaryKey\nPERSON,person_id,integer,Yes,Yes\n"
	if err := os.WriteFile(fields, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "cdmschema.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: 1\nlogging:\n  level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{
		"convert",
		"--config", cfgPath,
		"--fields", fields,
		"--vocabulary", filepath.Join(dir, "CONCEPT.csv"),
		"--output", out,
	})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	if err := execute(); err != nil {
		t.Fatalf("convert: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "PERSON.schema.json")); err != nil {
		t.Errorf("schema not written: %v", err)
	}
	if !strings.Contains(buf.String(), "PERSON") || !strings.Contains(buf.String(), "Generated 1 schema files") {
		t.Errorf("unexpected console output:\n%s", buf.String())
	}
}

func TestConvertCommandMissingFields(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "cdmschema.yaml")
	if err := os.WriteFile(cfgPath, []byte("version: 1\nlogging:\n  level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"convert", "--config", cfgPath, "--fields", filepath.Join(dir, "missing.csv"), "--output", filepath.Join(dir, "out")})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	err := execute()
	if err == nil || !strings.Contains(err.Error(), "field metadata file not found") {
		t.Fatalf("expected missing field metadata error, got %v", err)
	}
}

func TestExecuteClosesLogOnError(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	cfgPath := filepath.Join(dir, "cdmschema.yaml")
	content := "version: 1\nlogging:\n  level: info\n  directory: " + logDir + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var opened io.Closer
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"convert", "--config", cfgPath, "--fields", filepath.Join(dir, "missing.csv")})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		err := setup(cmd, args)
		opened = logCloser
		return err
	}
	t.Cleanup(func() { rootCmd.PersistentPreRunE = setup })

	if err := execute(); err == nil {
		t.Fatal("expected an error for the missing field metadata file")
	}
	if logCloser != nil {
		t.Error("log file left open after a failed command")
	}
	entries, err := os.ReadDir(logDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file in %s: %v %v", logDir, entries, err)
	}
	if opened == nil {
		t.Fatal("logging was not set up")
	}
	if err := opened.Close(); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected the log file to be closed already, got %v", err)
	}
}
