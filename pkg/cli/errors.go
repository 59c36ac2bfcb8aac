package cli

import "fmt"

// ConfigError means the configuration (file, env, or flags) is wrong and
// the command never started doing work.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// NewConfigError creates a ConfigError. Field may be empty when the problem
// is not tied to one setting.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// CommandError means a command started and failed partway through.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError wraps an error with the command that produced it.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}
