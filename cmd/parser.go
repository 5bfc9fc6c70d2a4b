package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses user-defined arguments into flags
type Parser struct {
	flagSet *CommandFlagSet
}

func NewParser(flagSet *CommandFlagSet) *Parser {
	if flagSet == nil {
		flagSet = &CommandFlagSet{}
	}
	return &Parser{
		flagSet: flagSet,
	}
}

func (cp *Parser) Parse(raw []string) (*CommandArgs, error) {
	args := &CommandArgs{
		Flags: make(map[string]any),
		Raw:   raw,
	}

	longToName := make(map[string]string)
	shortToName := make(map[string]string)
	for flagName, flag := range cp.flagSet.Flags {
		if flag.Default != nil {
			args.Flags[flagName] = flag.Default
		}
		longToName[flag.Name] = flagName
		if flag.Short != "" {
			shortToName[flag.Short] = flagName
		}
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			args.Args = append(args.Args, raw[i+1:]...)
			break
		}

		var flagName string
		var inline string
		var hasInline bool

		switch {
		case strings.HasPrefix(arg, "--"):
			key := strings.TrimPrefix(arg, "--")
			if idx := strings.Index(key, "="); idx >= 0 {
				key, inline, hasInline = key[:idx], key[idx+1:], true
			}
			name, exists := longToName[key]
			if !exists {
				return nil, fmt.Errorf("unknown flag: --%s", key)
			}
			flagName = name

		case strings.HasPrefix(arg, "-") && len(arg) > 1 && arg != "-":
			key := arg[1:2]
			name, exists := shortToName[key]
			if !exists {
				return nil, fmt.Errorf("unknown flag: -%s", key)
			}
			flagName = name
			if len(arg) > 2 {
				inline, hasInline = arg[2:], true
			}

		default:
			args.Args = append(args.Args, arg)
			continue
		}

		flag := cp.flagSet.Flags[flagName]
		if flag.Type == "bool" {
			args.Flags[flagName] = true
			continue
		}

		var value string
		if hasInline {
			value = inline
		} else if i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			value = raw[i+1]
			i++
		} else {
			return nil, fmt.Errorf("flag --%s requires a value", flag.Name)
		}

		coerced, err := coerce(value, flag.Type)
		if err != nil {
			return nil, fmt.Errorf("flag --%s: %v", flag.Name, err)
		}
		args.Flags[flagName] = coerced
	}

	for flagName, flag := range cp.flagSet.Flags {
		if flag.Required {
			if _, ok := args.Flags[flagName]; !ok {
				return nil, fmt.Errorf("required flag: --%s", flag.Name)
			}
		}
	}

	return args, nil
}

func coerce(value string, typeStr string) (any, error) {
	switch typeStr {
	case "int":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", value)
		}
		return v, nil
	case "bool":
		return value == "true" || value == "1" || value == "yes", nil
	default:
		return value, nil
	}
}
