package listener

import "strings"

// Media types and names used for generated attachments.
const (
	TextPlain          = "text/plain"
	TabSeparatedValues = "text/tab-separated-values"

	TextOutputName = "Text output"
	DataTableName  = "Data table"
)

// AttachmentContent is attachment payload ready to hand to a sink.
type AttachmentContent struct {
	Name      string
	MediaType string
	// Extension is the file suffix for the stored artifact; empty lets the
	// sink derive one from the media type.
	Extension string
	Data      []byte
}

// AttachmentWriter serializes side artifacts into attachments.
type AttachmentWriter struct{}

// WriteTabular serializes rows as tab-separated lines. Empty rows are
// dropped.
func (AttachmentWriter) WriteTabular(rows [][]string) AttachmentContent {
	var b strings.Builder
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return AttachmentContent{
		Name:      DataTableName,
		MediaType: TabSeparatedValues,
		Extension: "csv",
		Data:      []byte(b.String()),
	}
}

// WriteText wraps free text as a UTF-8 text/plain attachment.
func (AttachmentWriter) WriteText(content string) AttachmentContent {
	return AttachmentContent{
		Name:      TextOutputName,
		MediaType: TextPlain,
		Extension: ".txt",
		Data:      []byte(content),
	}
}

// WriteBinary stores data verbatim.
func (AttachmentWriter) WriteBinary(name, mediaType string, data []byte) AttachmentContent {
	return AttachmentContent{
		Name:      name,
		MediaType: mediaType,
		Data:      data,
	}
}
