package domain

import (
	"strings"
	"testing"
)

// TestParseDescriptionPlainText tests that free text survives untouched
func TestParseDescriptionPlainText(t *testing.T) {
	raw := "A commission from 2023.\nSecond line."

	description := ParseDescription(raw)
	if len(description.Segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(description.Segments))
	}
	if description.Segments[0].Raw != raw {
		t.Errorf("Expected raw text to survive, got %q", description.Segments[0].Raw)
	}
	if description.UploadData() != nil {
		t.Error("Expected no upload data in plain text")
	}
	if description.Render() != raw {
		t.Errorf("Expected render to match input, got %q", description.Render())
	}
}

// TestDescriptionUploadDataRoundTrip tests that upload data survives a render and reparse
func TestDescriptionUploadDataRoundTrip(t *testing.T) {
	description := ParseDescription("Human written notes")
	description.SetUploadData(&UploadData{
		ProposedData: &ProposedData{
			Title: "Beach day",
			Tags:  []string{"ych", "beach"},
		},
		Uploads: []UploadRecord{
			{UploaderType: "e621", Link: "https://e621.net/posts/5"},
			{UploaderType: "fa", Link: "https://furaffinity.net/view/9", UploaderTypeInfo: "zeph"},
		},
		AltDescription: "Two characters at the beach",
	})

	rendered := description.Render()
	if !strings.HasPrefix(rendered, "Human written notes\n---\n") {
		t.Errorf("Expected free text before the fence, got %q", rendered)
	}

	reparsed := ParseDescription(rendered)
	data := reparsed.UploadData()
	if data == nil {
		t.Fatal("Expected upload data after round trip")
	}
	if data.ProposedData == nil || data.ProposedData.Title != "Beach day" {
		t.Errorf("Expected proposed title to survive, got %+v", data.ProposedData)
	}
	if len(data.Uploads) != 2 || data.Uploads[1].UploaderTypeInfo != "zeph" {
		t.Errorf("Expected upload records to survive, got %+v", data.Uploads)
	}
	if data.AltDescription != "Two characters at the beach" {
		t.Errorf("Expected alt description to survive, got %q", data.AltDescription)
	}
}

// TestUploadDataOnParseResult tests reading upload data straight off the
// parse result, the way callers chain the two
func TestUploadDataOnParseResult(t *testing.T) {
	description := ParseDescription("notes")
	description.SetUploadData(&UploadData{AltDescription: "alt"})
	rendered := description.Render()

	data := ParseDescription(rendered).UploadData()
	if data == nil || data.AltDescription != "alt" {
		t.Errorf("Expected upload data from a chained parse, got %+v", data)
	}
}

// TestDescriptionSetUploadDataReplaces tests in-place replacement of the managed document
func TestDescriptionSetUploadDataReplaces(t *testing.T) {
	description := ParseDescription("notes")
	description.SetUploadData(&UploadData{AltDescription: "first"})
	description.SetUploadData(&UploadData{AltDescription: "second"})

	if len(description.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(description.Segments))
	}
	if description.UploadData().AltDescription != "second" {
		t.Errorf("Expected replacement, got %q", description.UploadData().AltDescription)
	}
}

// TestDescriptionEmptyUploadDataCollapses tests that emptied documents are removed
func TestDescriptionEmptyUploadDataCollapses(t *testing.T) {
	description := ParseDescription("notes")
	description.SetUploadData(&UploadData{AltDescription: "temp"})
	description.SetUploadData(&UploadData{})

	if description.UploadData() != nil {
		t.Error("Expected emptied upload data to be removed")
	}
	if description.Render() != "notes" {
		t.Errorf("Expected only free text to remain, got %q", description.Render())
	}
}

// TestParseDescriptionIgnoresForeignYaml tests that unrelated YAML stays raw text
func TestParseDescriptionIgnoresForeignYaml(t *testing.T) {
	raw := "notes\n---\ndata_type: something_else\nvalue: 3"

	description := ParseDescription(raw)
	if description.UploadData() != nil {
		t.Error("Expected foreign YAML to stay raw")
	}
	if description.Render() != raw {
		t.Errorf("Expected render to preserve foreign YAML, got %q", description.Render())
	}
}
