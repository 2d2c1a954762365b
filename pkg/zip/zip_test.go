package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveKeepsOrderAndDeduplicatesNames(t *testing.T) {
	data, err := Archive([]Entry{
		{Name: "sources/01_cat.png", Data: []byte("a")},
		{Name: "../sources/01_cat.png", Data: []byte("b")},
		{Name: "", Data: []byte("c")},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	want := []struct{ name, body string }{
		{"sources/01_cat.png", "a"},
		{"sources/01_cat_2.png", "b"},
		{"file", "c"},
	}
	if len(zr.File) != len(want) {
		t.Fatalf("files = %d, want %d", len(zr.File), len(want))
	}
	for i, f := range zr.File {
		if f.Name != want[i].name {
			t.Fatalf("file %d name = %q, want %q", i, f.Name, want[i].name)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != want[i].body {
			t.Fatalf("file %s body = %q", f.Name, body)
		}
	}
}

func TestArchiveEmpty(t *testing.T) {
	data, err := Archive(nil)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("expected empty archive")
	}
}
