package schema

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cdmschema/cdmschema/internal/fieldmeta"
)

func TestMarshalFormat(t *testing.T) {
	rows := []fieldmeta.Row{
		{Field: "location_id", Datatype: "integer", Required: true, PrimaryKey: true},
		{Field: "city", Datatype: "varchar(50)", UserGuidance: "Zürich <main> & more"},
	}
	doc := (&Builder{}).Build("LOCATION", rows).Document

	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Location",
  "type": "object",
  "properties": {
    "location_id": {
      "type": "integer"
    },
    "city": {
      "type": "string",
      "maxLength": 50,
      "description": "User Guidance: Zürich <main> & more"
    }
  },
  "required": [
    "location_id"
  ],
  "x-primaryKey": [
    "location_id"
  ]
}`
	if string(data) != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", data, want)
	}
}

func TestMarshalEmptyProperties(t *testing.T) {
	doc := (&Builder{}).Build("EMPTY", nil).Document
	data, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"properties": {}`) {
		t.Errorf("expected empty properties object:\n%s", data)
	}
}

func TestWriteFileAndLoad(t *testing.T) {
	dir := t.TempDir()
	rows := []fieldmeta.Row{
		{Field: "care_site_id", Datatype: "integer", Required: true},
		{Field: "care_site_name", Datatype: "varchar(255)"},
	}
	doc := (&Builder{}).Build("CARE_SITE", rows).Document

	path, err := WriteFile(dir, "CARE_SITE", doc)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if filepath.Base(path) != "CARE_SITE.schema.json" {
		t.Errorf("unexpected file name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.HasSuffix(data, []byte("\n")) {
		t.Error("file should not end with a newline")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Title != "Care Site" {
		t.Errorf("title = %q", loaded.Title)
	}
	if got := strings.Join(loaded.Properties.Names(), ","); got != "care_site_id,care_site_name" {
		t.Errorf("properties = %s", got)
	}
	if len(loaded.Required) != 1 || loaded.Required[0] != "care_site_id" {
		t.Errorf("required = %v", loaded.Required)
	}
}

func TestWriteFileMissingDirectory(t *testing.T) {
	doc := (&Builder{}).Build("T", nil).Document
	if _, err := WriteFile(filepath.Join(t.TempDir(), "missing"), "T", doc); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}
