package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/psycho-baller/text2dot/pkg/stream"
)

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	st := stream.Status{Addr: "ws://x/", Conn: stream.ConnOpen, Playback: stream.Playing, Epoch: 2}
	if err := Output(st, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if got["conn"] != "open" || got["playback"] != "playing" {
		t.Errorf("output = %v", got)
	}
}

func TestOutput_YAMLDefault(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(map[string]any{"name": "test"}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "name: test") {
		t.Errorf("output = %q, want YAML", buf.String())
	}
}

func TestOutput_Raw(t *testing.T) {
	var buf bytes.Buffer
	Output([]byte("abc"), OutputOptions{Format: FormatRaw, Writer: &buf})
	Output("def", OutputOptions{Format: FormatRaw, Writer: &buf})
	if buf.String() != "abcdef" {
		t.Errorf("output = %q, want abcdef", buf.String())
	}
}

func TestOutput_UnsupportedFormat(t *testing.T) {
	if err := Output("x", OutputOptions{Format: "table", Writer: io.Discard}); err == nil {
		t.Fatal("Output with unsupported format: want error")
	}
}

func TestOutput_ToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(map[string]int{"n": 1}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"n": 1`) {
		t.Errorf("file = %q", data)
	}
}

func TestOpenSink(t *testing.T) {
	w, err := OpenSink("")
	if err != nil {
		t.Fatalf("OpenSink(\"\") error: %v", err)
	}
	if n, err := w.Write([]byte{1, 2}); n != 2 || err != nil {
		t.Errorf("discard Write = %d, %v", n, err)
	}
	w.Close()

	path := filepath.Join(t.TempDir(), "out.pcm")
	w, err = OpenSink(path)
	if err != nil {
		t.Fatalf("OpenSink(file) error: %v", err)
	}
	w.Write([]byte{1, 2, 3})
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if data, _ := os.ReadFile(path); !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("file = %v", data)
	}

	if _, err := OpenSink(filepath.Join(t.TempDir(), "no", "such", "dir", "x")); err == nil {
		t.Error("OpenSink in missing dir: want error")
	}
}
