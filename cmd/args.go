package cmd

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags
	Flags map[string]any

	// Raw unparsed arguments (for custom parsing)
	Raw []string
}

// String returns the named flag as a string, or the fallback when the
// flag was not set.
func (a *CommandArgs) String(name, fallback string) string {
	if value, ok := a.Flags[name].(string); ok {
		return value
	}
	return fallback
}

// Bool returns the named flag as a bool.
func (a *CommandArgs) Bool(name string) bool {
	value, _ := a.Flags[name].(bool)
	return value
}

// Int returns the named flag as an int64, or the fallback when the flag
// was not set.
func (a *CommandArgs) Int(name string, fallback int64) int64 {
	if value, ok := a.Flags[name].(int64); ok {
		return value
	}
	return fallback
}

// CommandFlagSet defines the expected flags for a command
type CommandFlagSet struct {
	Flags map[string]*CommandFlag
}

// CommandFlag represents a single command-line flag
type CommandFlag struct {
	Name        string `json:"name"`              // e.g., "interval"
	Short       string `json:"short"`             // Single-char shorthand (e.g., "i")
	Type        string `json:"type"`              // "string", "bool", "int"
	Default     any    `json:"default,omitempty"` // Default value
	Required    bool   `json:"required"`          // Must be provided
	Description string `json:"description"`       // Help text
}
