package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Input is the parsed argument and option map of one invocation
type Input struct {
	Args    map[string]string
	Options map[string]any
}

// NewInput creates an empty input
func NewInput() *Input {
	return &Input{
		Args:    make(map[string]string),
		Options: make(map[string]any),
	}
}

// WithArg sets an argument and returns the input for chaining
func (in *Input) WithArg(name, value string) *Input {
	if in.Args == nil {
		in.Args = make(map[string]string)
	}
	in.Args[name] = value
	return in
}

// WithOption sets an option and returns the input for chaining
func (in *Input) WithOption(name string, value any) *Input {
	if in.Options == nil {
		in.Options = make(map[string]any)
	}
	in.Options[name] = value
	return in
}

func (in *Input) Arg(name string) string {
	if in == nil {
		return ""
	}
	return in.Args[name]
}

func (in *Input) Option(name string) (any, bool) {
	if in == nil || in.Options == nil {
		return nil, false
	}
	v, ok := in.Options[name]
	return v, ok
}

// HasOption reports whether the option is present with a non-empty value
func (in *Input) HasOption(name string) bool {
	v, ok := in.Option(name)
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

func (in *Input) StringOption(name string) string {
	v, ok := in.Option(name)
	if !ok || v == nil {
		return ""
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}

// BoolOption treats true, non-zero numbers and strings accepted by
// strconv.ParseBool as true
func (in *Input) BoolOption(name string) bool {
	v, ok := in.Option(name)
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

// IntOption returns def when the option is missing or not a number
func (in *Input) IntOption(name string, def int) int {
	v, ok := in.Option(name)
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// Summary renders the input as a stable single line for logs.
// Options whose name contains "token", "secret" or "password" are masked.
func (in *Input) Summary() string {
	if in == nil {
		return ""
	}

	parts := make([]string, 0, len(in.Args)+len(in.Options))
	for _, k := range sortedKeys(in.Args) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, in.Args[k]))
	}
	for _, k := range sortedKeys(in.Options) {
		value := fmt.Sprint(in.Options[k])
		if isSensitive(k) {
			value = "***"
		}
		parts = append(parts, fmt.Sprintf("--%s=%s", k, value))
	}
	return strings.Join(parts, " ")
}

func isSensitive(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range []string{"token", "secret", "password"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
