package listener

import "testing"

func TestWriteTabular(t *testing.T) {
	var writer AttachmentWriter
	cases := []struct {
		name string
		rows [][]string
		want string
	}{
		{"two columns", [][]string{{"a", "b"}, {"c"}}, "a\tb\nc\n"},
		{"single column", [][]string{{"a"}, {"b"}}, "a\nb\n"},
		{"empty rows dropped", [][]string{{}, {"x", "y"}, nil}, "x\ty\n"},
		{"no rows", nil, ""},
	}
	for _, tc := range cases {
		content := writer.WriteTabular(tc.rows)
		if string(content.Data) != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, content.Data, tc.want)
		}
		if content.MediaType != TabSeparatedValues || content.Extension != "csv" || content.Name != DataTableName {
			t.Fatalf("%s: unexpected metadata %+v", tc.name, content)
		}
	}
}

func TestWriteText(t *testing.T) {
	var writer AttachmentWriter
	content := writer.WriteText("héllo")
	if string(content.Data) != "héllo" {
		t.Fatalf("unexpected data %q", content.Data)
	}
	if content.MediaType != TextPlain || content.Extension != ".txt" || content.Name != TextOutputName {
		t.Fatalf("unexpected metadata %+v", content)
	}
}

func TestWriteBinary(t *testing.T) {
	var writer AttachmentWriter
	content := writer.WriteBinary("shot", "image/png", []byte{0x89, 0x50})
	if content.Name != "shot" || content.MediaType != "image/png" || len(content.Data) != 2 {
		t.Fatalf("unexpected content %+v", content)
	}
}
