package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunReplaysOutputInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.jsonl")
	content := `{"host":"h","user":"u","session":"s","id":1,"timestamp":1,"out_txt":"hello "}
{"host":"h","user":"u","session":"s","id":2,"timestamp":1,"out_txt":"world\n"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	outPath := filepath.Join(dir, "out.txt")
	outFile, err := os.Create(outPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := run(path, 0, outFile); err != nil {
		t.Fatalf("run: %v", err)
	}
	outFile.Close()

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello world\n" {
		t.Fatalf("got %q, want %q", got, "hello world\n")
	}
}

func TestRunMissingFileFails(t *testing.T) {
	if err := run(filepath.Join(t.TempDir(), "missing.jsonl"), 1, os.Stdout); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
