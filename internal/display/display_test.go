package display

import (
	"bytes"
	"sync"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"object", `{"repoId":7}`, "{\n  \"repoId\": 7\n}"},
		{"array", `[1,2]`, "[\n  1,\n  2\n]"},
		{"empty", ``, "null"},
		{"whitespace", "  \n", "null"},
		{"plain text", `hello`, `"hello"`},
		{"html error page", `<h1>oops</h1>`, `"<h1>oops</h1>"`},
		{"scalar", `"t1"`, `"t1"`},
		{"trailing zero", `{"n":1.0}`, "{\n  \"n\": 1\n}"},
		{"exponent", `[1E3, 2.50, 1e21]`, "[\n  1000,\n  2.5,\n  1e+21\n]"},
		{"negative zero", `-0`, `0`},
		{"out of range kept", `1e400`, `1e400`},
		{"unicode escape", `"caf\u00e9"`, `"café"`},
		{"html kept", `{"msg":"\u003cb\u003e"}`, "{\n  \"msg\": \"<b>\"\n}"},
		{"key order kept", `{"b":1,"a":2}`, "{\n  \"b\": 1,\n  \"a\": 2\n}"},
		{"empty containers", `{"a":[],"b":{}}`, "{\n  \"a\": [],\n  \"b\": {}\n}"},
		{"nested", `{"a":[{"b":null,"c":true}]}`, "{\n  \"a\": [\n    {\n      \"b\": null,\n      \"c\": true\n    }\n  ]\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format([]byte(tt.input)); got != tt.want {
				t.Errorf("Format(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReportSuccessClearsError(t *testing.T) {
	d := New()
	d.ReportError([]byte(`{"message":"bad"}`))

	if d.Result() != ErrorMarker {
		t.Errorf("expected result region %q, got %q", ErrorMarker, d.Result())
	}
	if d.Error() != "{\n  \"message\": \"bad\"\n}" {
		t.Errorf("unexpected error region %q", d.Error())
	}

	d.ReportSuccess([]byte(`{"ok":true}`))
	if d.Result() != "{\n  \"ok\": true\n}" {
		t.Errorf("unexpected result region %q", d.Result())
	}
	if d.Error() != "" {
		t.Errorf("expected error region cleared, got %q", d.Error())
	}
}

func TestRender(t *testing.T) {
	d := New()
	d.ReportSuccess([]byte(`{}`))

	var out, errOut bytes.Buffer
	if err := d.Render(&out, &errOut); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.String() != "{}\n" {
		t.Errorf("unexpected stdout %q", out.String())
	}
	if errOut.Len() != 0 {
		t.Errorf("expected empty stderr, got %q", errOut.String())
	}

	d.ReportError([]byte(`{}`))
	out.Reset()
	if err := d.Render(&out, &errOut); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out.String() != "Error\n" {
		t.Errorf("unexpected stdout %q", out.String())
	}
	if errOut.String() != "{}\n" {
		t.Errorf("unexpected stderr %q", errOut.String())
	}
}

func TestConcurrentReports(t *testing.T) {
	d := New()

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			d.ReportSuccess([]byte(`{"n":1}`))
			d.ReportError([]byte(`{"n":2}`))
		})
	}
	wg.Wait()

	// Last write wins; both regions must come from the same report.
	if d.Result() != ErrorMarker {
		t.Errorf("expected result region %q, got %q", ErrorMarker, d.Result())
	}
	if d.Error() == "" {
		t.Error("expected error region to be set")
	}
}
