package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLoggerLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name      string
		logger    Logger
		wantInfo  bool
		wantDebug bool
		wantWarn  bool
	}{
		{name: "quiet", logger: Logger{}, wantInfo: false, wantDebug: false, wantWarn: false},
		{name: "verbose", logger: Logger{Verbose: true}, wantInfo: true, wantDebug: false, wantWarn: true},
		{name: "debug", logger: Logger{Debug: true}, wantInfo: true, wantDebug: true, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := tt.logger
			l.Out = &out
			l.Err = &errOut

			l.Infof("info %d", 1)
			l.Debugf("debug %d", 2)
			l.Warnf("warn %d", 3)
			l.Errorf("error %d", 4)

			if got := strings.Contains(out.String(), "[info] info 1"); got != tt.wantInfo {
				t.Errorf("info shown = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out.String(), "[debug] debug 2"); got != tt.wantDebug {
				t.Errorf("debug shown = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(errOut.String(), "[warn] warn 3"); got != tt.wantWarn {
				t.Errorf("warn shown = %v, want %v", got, tt.wantWarn)
			}
			if !strings.Contains(errOut.String(), "[error] error 4") {
				t.Errorf("Expected error to always be shown, got %q", errOut.String())
			}
		})
	}
}

func TestErrorfAndReturn(t *testing.T) {
	color.NoColor = true
	var errOut bytes.Buffer
	l := Logger{Err: &errOut}

	err := l.ErrorfAndReturn("failed to read %s", "keys.txt")
	if err == nil || err.Error() != "failed to read keys.txt" {
		t.Fatalf("Expected returned error, got %v", err)
	}
	if !strings.Contains(errOut.String(), "[error] failed to read keys.txt") {
		t.Errorf("Expected error to be logged, got %q", errOut.String())
	}
}

func TestWarnfAlways(t *testing.T) {
	color.NoColor = true
	var errOut bytes.Buffer
	l := Logger{Err: &errOut}

	l.WarnfAlways("key file %s is world readable", "keys.txt")
	if !strings.Contains(errOut.String(), "[warn] key file keys.txt is world readable") {
		t.Errorf("Expected warning, got %q", errOut.String())
	}
}
