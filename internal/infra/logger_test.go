package infra

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerProductionIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "")

	logger.Debug().Msg("hidden")
	logger.Info().Str("club", "Chelsea FC").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %s", out)
	}
	if !strings.Contains(out, `"club":"Chelsea FC"`) || !strings.Contains(out, `"message":"visible"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestNewLoggerDevelopmentEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "development", "")

	logger.Debug().Msg("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Fatalf("debug line missing in development: %q", buf.String())
	}
}

func TestNewLoggerLevelOverride(t *testing.T) {
	tests := []struct {
		name      string
		appEnv    string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{name: "debug in production", appEnv: "production", level: "DEBUG", wantDebug: true, wantInfo: true},
		{name: "warn in development", appEnv: "development", level: "warn"},
		{name: "unknown level keeps default", appEnv: "production", level: "loud", wantInfo: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.appEnv, tt.level)
			logger.Debug().Msg("debug line")
			logger.Info().Msg("info line")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Fatalf("debug written = %v, want %v: %q", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "info line"); got != tt.wantInfo {
				t.Fatalf("info written = %v, want %v: %q", got, tt.wantInfo, out)
			}
		})
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	NopLogger().Error().Msg("nowhere")
}
