package cmd

import (
	"testing"
)

func testFlagSet() *CommandFlagSet {
	return &CommandFlagSet{
		Flags: map[string]*CommandFlag{
			"interval": {
				Name:    "interval",
				Short:   "i",
				Type:    "int",
				Default: int64(2000),
			},
			"verbose": {
				Name:  "verbose",
				Short: "v",
				Type:  "bool",
			},
			"output": {
				Name: "output",
				Type: "string",
			},
		},
	}
}

func TestParser_Defaults(t *testing.T) {
	args, err := NewParser(testFlagSet()).Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if args.Int("interval", 0) != 2000 {
		t.Errorf("Expected default interval 2000, got %d", args.Int("interval", 0))
	}
	if args.Bool("verbose") {
		t.Error("Expected verbose unset by default")
	}
}

func TestParser_LongAndShortFlags(t *testing.T) {
	args, err := NewParser(testFlagSet()).Parse([]string{"--interval", "500", "-v", "doc.txt"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if args.Int("interval", 0) != 500 {
		t.Errorf("Expected interval 500, got %d", args.Int("interval", 0))
	}
	if !args.Bool("verbose") {
		t.Error("Expected verbose set")
	}
	if len(args.Args) != 1 || args.Args[0] != "doc.txt" {
		t.Errorf("Expected positional [doc.txt], got %v", args.Args)
	}
}

func TestParser_EqualsSyntax(t *testing.T) {
	args, err := NewParser(testFlagSet()).Parse([]string{"--output=result.txt"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if args.String("output", "") != "result.txt" {
		t.Errorf("Expected output result.txt, got %q", args.String("output", ""))
	}
}

func TestParser_UnknownFlag(t *testing.T) {
	if _, err := NewParser(testFlagSet()).Parse([]string{"--bogus"}); err == nil {
		t.Error("Expected error for unknown flag")
	}
}

func TestParser_BadIntValue(t *testing.T) {
	if _, err := NewParser(testFlagSet()).Parse([]string{"--interval", "soon"}); err == nil {
		t.Error("Expected error for non-integer value")
	}
}

func TestParser_MissingValue(t *testing.T) {
	if _, err := NewParser(testFlagSet()).Parse([]string{"--output"}); err == nil {
		t.Error("Expected error for flag without value")
	}
}

func TestParser_DoubleDashStopsParsing(t *testing.T) {
	args, err := NewParser(testFlagSet()).Parse([]string{"--", "--interval", "500"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(args.Args) != 2 {
		t.Errorf("Expected flags after -- as positionals, got %v", args.Args)
	}
	if args.Int("interval", 0) != 2000 {
		t.Error("Flag after -- must not be parsed")
	}
}

func TestParser_RequiredFlag(t *testing.T) {
	flagSet := &CommandFlagSet{
		Flags: map[string]*CommandFlag{
			"target": {Name: "target", Type: "string", Required: true},
		},
	}
	if _, err := NewParser(flagSet).Parse(nil); err == nil {
		t.Error("Expected error for missing required flag")
	}
	if _, err := NewParser(flagSet).Parse([]string{"--target", "x"}); err != nil {
		t.Errorf("Parse failed with required flag present: %v", err)
	}
}

func TestParser_NilFlagSet(t *testing.T) {
	args, err := NewParser(nil).Parse([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(args.Args) != 2 {
		t.Errorf("Expected 2 positionals, got %v", args.Args)
	}
}
