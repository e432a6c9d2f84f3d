package domain

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// uploadDataType marks a description document as machine-managed upload data
const uploadDataType = "upload_data"

// descriptionFence separates documents inside a post description
const descriptionFence = "\n---\n"

// ProposedData struct - title, description and tags proposed for the next upload
type ProposedData struct {
	Title       string   `yaml:"title,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// IsEmpty reports whether no proposal fields are set
func (p ProposedData) IsEmpty() bool {
	return p.Title == "" && p.Description == "" && len(p.Tags) == 0
}

// UploadRecord struct - a link to one completed upload of the post elsewhere
type UploadRecord struct {
	UploaderType     string `yaml:"uploader_type"`
	Link             string `yaml:"link"`
	UploaderTypeInfo string `yaml:"uploader_type_info,omitempty"`
}

// UploadData struct - the machine-managed document inside a post description.
// It survives round trips through the catalog untouched by human edits to the
// surrounding free text.
type UploadData struct {
	DataType       string         `yaml:"data_type"`
	ProposedData   *ProposedData  `yaml:"proposed_data,omitempty"`
	Uploads        []UploadRecord `yaml:"uploads,omitempty"`
	AltDescription string         `yaml:"alt_description,omitempty"`
}

// IsEmpty reports whether the document holds no data worth persisting
func (u *UploadData) IsEmpty() bool {
	if u == nil {
		return true
	}
	hasProposal := u.ProposedData != nil && !u.ProposedData.IsEmpty()
	return !hasProposal && len(u.Uploads) == 0 && u.AltDescription == ""
}

// DescriptionSegment struct - one fenced document of a post description.
// Either Raw free text, or a parsed upload data document.
type DescriptionSegment struct {
	Raw        string
	UploadData *UploadData
}

// Description struct - a post description split into its fenced documents
type Description struct {
	Segments []DescriptionSegment
}

// ParseDescription splits a post description on document fences and parses
// any upload data documents it finds. Documents that fail to parse as YAML,
// or parse to something other than upload data, stay as raw text.
func ParseDescription(raw string) Description {
	description := Description{}
	if strings.TrimSpace(raw) == "" {
		return description
	}
	for _, part := range strings.Split(raw, descriptionFence) {
		segment := DescriptionSegment{Raw: part}
		var data UploadData
		if err := yaml.Unmarshal([]byte(part), &data); err == nil && data.DataType == uploadDataType {
			segment.Raw = ""
			segment.UploadData = &data
		}
		description.Segments = append(description.Segments, segment)
	}
	return description
}

// UploadData returns the description's upload data document, or nil
func (d Description) UploadData() *UploadData {
	for _, segment := range d.Segments {
		if segment.UploadData != nil {
			return segment.UploadData
		}
	}
	return nil
}

// SetUploadData replaces the existing upload data document, or appends one.
// An empty document removes the existing one instead.
func (d *Description) SetUploadData(data *UploadData) {
	if data != nil {
		data.DataType = uploadDataType
	}
	for i, segment := range d.Segments {
		if segment.UploadData != nil {
			if data.IsEmpty() {
				d.Segments = append(d.Segments[:i], d.Segments[i+1:]...)
			} else {
				d.Segments[i].UploadData = data
			}
			return
		}
	}
	if !data.IsEmpty() {
		d.Segments = append(d.Segments, DescriptionSegment{UploadData: data})
	}
}

// Render serializes the description back to catalog text, dropping documents
// that collapsed to nothing
func (d Description) Render() string {
	var parts []string
	for _, segment := range d.Segments {
		if segment.UploadData != nil {
			encoded, err := yaml.Marshal(segment.UploadData)
			if err != nil {
				continue
			}
			parts = append(parts, strings.TrimRight(string(encoded), "\n"))
			continue
		}
		if strings.TrimSpace(segment.Raw) == "" {
			continue
		}
		parts = append(parts, segment.Raw)
	}
	return strings.Join(parts, descriptionFence)
}
