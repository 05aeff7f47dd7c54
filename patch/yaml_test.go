package patch

import "testing"

const samplePatchYAML = `
schemaVersion: v1
flows:
  greet:
    stages:
      s1:
        modules:
          - id: m1
            use: greeter
`

func TestParseYAMLDocumentSucceeds(t *testing.T) {
	doc, err := ParseYAMLDocument([]byte(samplePatchYAML))
	if err != nil {
		t.Fatalf("ParseYAMLDocument() error = %v", err)
	}
	if doc.SchemaVersion != "v1" {
		t.Fatalf("SchemaVersion = %q, want v1", doc.SchemaVersion)
	}
	flow, ok := doc.Flows["greet"]
	if !ok {
		t.Fatal(`Flows["greet"] missing`)
	}
	stage, ok := flow.Stages["s1"]
	if !ok {
		t.Fatal(`Stages["s1"] missing`)
	}
	if len(stage.Modules) != 1 || stage.Modules[0].ID != "m1" {
		t.Fatalf("Modules = %+v, want one module id=m1", stage.Modules)
	}
}

func TestParseYAMLDocumentRejectsMalformedYAML(t *testing.T) {
	if _, err := ParseYAMLDocument([]byte("not: [valid")); err == nil {
		t.Fatal("ParseYAMLDocument() error = nil, want parse error")
	}
}
