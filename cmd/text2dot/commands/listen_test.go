package commands

import (
	"bytes"
	"testing"

	"github.com/itchyny/gojq"

	"github.com/psycho-baller/text2dot/pkg/stream"
)

func TestPrintControl(t *testing.T) {
	frame, err := stream.Classify(stream.TextMessage, []byte(`{"type":"Transcript","text":"hi","words":[1,2]}`))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	msg := frame.Control

	var buf bytes.Buffer
	printControl(&buf, msg, nil)
	if got := buf.String(); got != `{"type":"Transcript","text":"hi","words":[1,2]}`+"\n" {
		t.Errorf("raw output = %q", got)
	}

	tests := []struct {
		expr string
		want string
	}{
		{".text", "hi\n"},
		{".words", "[1,2]\n"},
		{".words[]", "1\n2\n"},
		{".missing // empty", ""},
	}
	for _, tt := range tests {
		q, err := gojq.Parse(tt.expr)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.expr, err)
		}
		buf.Reset()
		printControl(&buf, msg, q)
		if buf.String() != tt.want {
			t.Errorf("printControl(%q) = %q, want %q", tt.expr, buf.String(), tt.want)
		}
	}
}

func TestStatusPrinter_SkipsUnchanged(t *testing.T) {
	var buf bytes.Buffer
	p := statusPrinter{w: &buf, json: true}
	st := stream.Status{Addr: "ws://x/", Conn: stream.ConnOpen}
	p.print(st)
	p.print(st)
	st.Playback = stream.Loading
	p.print(st)

	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 2 {
		t.Errorf("printed %d lines, want 2:\n%s", n, buf.String())
	}
}
