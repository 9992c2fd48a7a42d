package bot

import (
	"strconv"
	"strings"
)

// commandName splits "/cmd@botname rest" into the lower-cased command and
// the rest of the text.
func commandName(text string) (name, rest string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	name, rest, _ = strings.Cut(text, " ")
	if at := strings.Index(name, "@"); at != -1 {
		name = name[:at]
	}
	return strings.ToLower(name), strings.TrimSpace(rest)
}

// splitArgs splits on whitespace. Double quotes group words and are removed.
func splitArgs(s string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		inArg   bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			inArg = true
		case !quoted && (r == ' ' || r == '\t' || r == '\n'):
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, current.String())
	}
	return args
}

// commandArgs holds positional arguments and key=value options.
type commandArgs struct {
	positional []string
	options    map[string]string
}

// parseArgs splits s into positional arguments and options. Only the given
// keys are options, so passwords containing "=" stay positional.
func parseArgs(s string, keys ...string) commandArgs {
	args := commandArgs{options: make(map[string]string)}
	for _, token := range splitArgs(s) {
		key, value, found := strings.Cut(token, "=")
		if found && isOptionKey(strings.ToLower(key), keys) {
			args.options[strings.ToLower(key)] = value
			continue
		}
		args.positional = append(args.positional, token)
	}
	return args
}

func isOptionKey(key string, keys []string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func (a commandArgs) arg(i int) string {
	if i < 0 || i >= len(a.positional) {
		return ""
	}
	return a.positional[i]
}

func (a commandArgs) option(key string) (string, bool) {
	v, ok := a.options[key]
	return v, ok
}

// optionPtr returns nil when key was not given.
func (a commandArgs) optionPtr(key string) *string {
	v, ok := a.options[key]
	if !ok {
		return nil
	}
	return &v
}

// parseID parses a positive record id.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "si", "sí", "true", "1", "yes":
		return true
	}
	return false
}
