package termui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/coderun/schema"
)

func TestDisplayWritesTranscriptText(t *testing.T) {
	cases := []struct {
		name   string
		echo   bool
		events []schema.SessionEvent
		want   string
	}{
		{
			name: "output-and-marker",
			events: []schema.SessionEvent{
				{Type: schema.EventStarted},
				{Type: schema.EventOutput, Text: "1\n"},
				{Type: schema.EventFinished, Text: "[Process finished]\n"},
			},
			want: "1\n[Process finished]\n",
		},
		{
			name: "no-echo",
			events: []schema.SessionEvent{
				{Type: schema.EventOutput, Text: "Name? "},
				{Type: schema.EventInput, Text: "bob"},
				{Type: schema.EventOutput, Text: "bob\n"},
			},
			want: "Name? bob\n",
		},
		{
			name: "echo",
			echo: true,
			events: []schema.SessionEvent{
				{Type: schema.EventOutput, Text: "Name? "},
				{Type: schema.EventInput, Text: "bob"},
				{Type: schema.EventInput, Text: ""},
				{Type: schema.EventOutput, Text: "bob\n"},
			},
			want: "Name? bob\n\nbob\n",
		},
		{
			name: "failure",
			events: []schema.SessionEvent{
				{Type: schema.EventOutput, Text: "x"},
				{Type: schema.EventFailed, Text: "\n[Process error: boom]\n", Err: "boom"},
			},
			want: "x\n[Process error: boom]\n",
		},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		display := NewDisplay(&out, nil, tc.echo)
		for _, ev := range tc.events {
			display.OnSessionEvent(ev)
		}
		if out.String() != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, out.String())
		}
	}
}

func TestDisplayReportsInputFailures(t *testing.T) {
	var out, errOut bytes.Buffer
	display := NewDisplay(&out, &errOut, false)
	display.OnSessionEvent(schema.SessionEvent{Type: schema.EventInputFailed, Text: "x", Err: "broken pipe"})
	if out.Len() != 0 {
		t.Fatalf("expected nothing on stdout, got %q", out.String())
	}
	if errOut.String() != "input not delivered: broken pipe\n" {
		t.Fatalf("unexpected error output %q", errOut.String())
	}
}

func TestIsTerminalOnRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if IsTerminal(f) || IsTerminal(nil) {
		t.Fatalf("expected regular file not to be a terminal")
	}
}
