package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestMultiFansOut(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{}
	m := Multi{rec, NewWriter(&buf), nil}
	m.Notify(Success, "item added")
	m.Notify(Error, "item not found")

	if rec.Count(Success) != 1 || rec.Count(Error) != 1 {
		t.Fatalf("unexpected recorder state %+v", rec.All())
	}
	out := buf.String()
	if !strings.Contains(out, "✔ item added") || !strings.Contains(out, "✖ item not found") {
		t.Fatalf("unexpected writer output %q", out)
	}
}

func TestRecorderAllIsCopy(t *testing.T) {
	rec := &Recorder{}
	rec.Notify(Info, "a")
	all := rec.All()
	all[0].Message = "changed"
	if rec.All()[0].Message != "a" {
		t.Fatalf("recorder state aliased")
	}
}
