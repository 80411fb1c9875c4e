package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	cause := errors.New("file not found")

	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{
			name: "with field",
			err:  NewConfigError("limiters.openai", "requests_per_minute must be positive", nil),
			want: "config error in limiters.openai: requests_per_minute must be positive",
		},
		{
			name: "without field",
			err:  NewConfigError("", "failed to load config", cause),
			want: "config error: failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}

	if !errors.Is(NewConfigError("", "x", cause), cause) {
		t.Error("ConfigError should unwrap to its cause")
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("boom")
	err := NewCommandError("simulate", cause)

	if err.Error() != "command simulate failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("CommandError should unwrap to its cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain", err: errors.New("x"), want: ExitFailure},
		{name: "config", err: NewConfigError("", "bad", nil), want: ExitConfig},
		{name: "wrapped config", err: fmt.Errorf("serve: %w", NewConfigError("", "bad", nil)), want: ExitConfig},
		{name: "command", err: NewCommandError("cost", errors.New("x")), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
