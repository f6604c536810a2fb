package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	for _, testCase := range []struct {
		name      string
		level     string
		format    string
		wantedErr bool
		wantDebug bool
	}{
		{name: "defaults", wantDebug: false},
		{name: "debug-json", level: "debug", format: FormatJSON, wantDebug: true},
		{name: "text", level: "warn", format: FormatText},
		{name: "bad-level", level: "loud", wantedErr: true},
		{name: "bad-format", format: "xml", wantedErr: true},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(&buf, testCase.level, testCase.format)
			if testCase.wantedErr {
				if err == nil {
					t.Fatal("wanted an error; found `nil`")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			logger.Debug("probe")
			if found := strings.Contains(buf.String(), "probe"); found != testCase.wantDebug {
				t.Fatalf("wanted debug logged `%t`; found `%t`", testCase.wantDebug, found)
			}
		})
	}
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", FormatJSON)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx := Context(context.Background(), logger.With("mount", "abc"))
	FromContext(ctx).Info("mounted")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if record["msg"] != "mounted" || record["mount"] != "abc" {
		t.Fatalf("wanted the context logger's attributes; found `%v`", record)
	}

	if FromContext(context.Background()) == nil {
		t.Fatal("wanted a default logger for a bare context")
	}
}
