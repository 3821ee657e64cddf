package app

import (
	"testing"
)

func TestParseCommand_KnownCommands(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{[]string{"serve"}, CommandServe},
		{[]string{"worker"}, CommandWorker},
		{[]string{"migrate"}, CommandMigrate},
		{[]string{"healthcheck"}, CommandHealthcheck},
	}

	for _, tt := range tests {
		if got := ParseCommand(tt.args); got != tt.want {
			t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestParseCommand_DefaultsToServe(t *testing.T) {
	if got := ParseCommand([]string{}); got != CommandServe {
		t.Errorf("ParseCommand([]) = %q, want %q", got, CommandServe)
	}
}

func TestParseCommand_UnknownDefaultsToServe(t *testing.T) {
	if got := ParseCommand([]string{"unknown"}); got != CommandServe {
		t.Errorf("ParseCommand([unknown]) = %q, want %q", got, CommandServe)
	}
}

func TestParseCommand_IgnoresExtraArgs(t *testing.T) {
	if got := ParseCommand([]string{"worker", "--flag", "value"}); got != CommandWorker {
		t.Errorf("ParseCommand([worker --flag value]) = %q, want %q", got, CommandWorker)
	}
}
