package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func TestPrintJSON(t *testing.T) {
	out := captureOutput(t, func() {
		printJSON(struct {
			A int `json:"a"`
		}{A: 1})
	})

	expected := "{\n  \"a\": 1\n}\n"
	if out != expected {
		t.Fatalf("unexpected json output:\n%s", out)
	}
}

func TestRootCmdRegistersCommands(t *testing.T) {
	root := newRootCmd()

	expected := []string{"pay", "reverse", "outstanding", "view", "rebuild", "credit"}
	for _, name := range expected {
		found := false
		for _, cmd := range root.Commands() {
			if cmd.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected command %q to be registered", name)
		}
	}
}

func TestOutstandingCmdHitsAPI(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"unit_id":"unit-7","items":[]}`))
	}))
	defer server.Close()

	root := newRootCmd()
	root.SetArgs([]string{"outstanding", "--url", server.URL, "--client", "hoa-1", "--unit", "unit-7"})

	out := captureOutput(t, func() {
		if err := root.Execute(); err != nil {
			t.Errorf("command failed: %v", err)
		}
	})

	if gotPath != "/api/v1/clients/hoa-1/units/unit-7/outstanding" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}

	if !strings.Contains(out, `"unit_id": "unit-7"`) {
		t.Fatalf("expected formatted response, got %q", out)
	}
}

func TestDoRequestReportsAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"insufficient credit"}`))
	}))
	defer server.Close()

	baseURL = server.URL
	err := doRequest(http.MethodPost, "/api/v1/clients/hoa-1/payments", map[string]any{})
	if err == nil {
		t.Fatal("expected error for 409 response")
	}
	if !strings.Contains(err.Error(), "409") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
