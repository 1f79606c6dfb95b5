package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestTableDataAccumulatesRows(t *testing.T) {
	data := NewTableData("NAME", "STATUS")
	data.AddRow("running", "locked")
	data.AddRow("candidate", "unlocked")

	if got := data.Headers(); len(got) != 2 || got[0] != "NAME" {
		t.Fatalf("Headers() = %v, want [NAME STATUS]", got)
	}
	if len(data.Rows()) != 2 {
		t.Fatalf("Rows() len = %d, want 2", len(data.Rows()))
	}
}

func TestPrintTableRendersRowContent(t *testing.T) {
	data := NewTableData("NAME", "STATUS")
	data.AddRow("running", "locked")

	var buf bytes.Buffer
	if err := PrintTable(&buf, data); err != nil {
		t.Fatalf("PrintTable() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "running") || !strings.Contains(out, "locked") {
		t.Fatalf("output = %q, want it to contain running and locked", out)
	}
}

func TestSimpleTableRendersPairs(t *testing.T) {
	var buf bytes.Buffer
	if err := SimpleTable(&buf, [][2]string{{"owner", "42"}}); err != nil {
		t.Fatalf("SimpleTable() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "owner") || !strings.Contains(out, "42") {
		t.Fatalf("output = %q, want it to contain owner and 42", out)
	}
}
