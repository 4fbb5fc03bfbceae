package markdown

import (
	"fmt"
	"strings"

	"github.com/wyatt915/treeblood"
)

// ValidateTeX performs the structural checks applied before typesetting:
// balanced braces, paired \left/\right, matching \begin/\end environments
// and no dangling backslash.
func ValidateTeX(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("empty expression")
	}

	depth := 0
	lefts := 0
	var envs []string
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return fmt.Errorf("unexpected } at offset %d", i)
			}
		case '\\':
			if i+1 >= len(expr) {
				return fmt.Errorf("trailing backslash")
			}
			name := commandName(expr[i+1:])
			if name == "" {
				// escaped symbol such as \{ or \\
				i++
				continue
			}
			i += len(name)
			switch name {
			case "left":
				lefts++
			case "right":
				lefts--
				if lefts < 0 {
					return fmt.Errorf(`\right without matching \left`)
				}
			case "begin", "end":
				env, consumed, ok := braceArgument(expr[i+1:])
				if !ok {
					return fmt.Errorf(`\%s without environment name`, name)
				}
				i += consumed
				if name == "begin" {
					envs = append(envs, env)
					continue
				}
				if len(envs) == 0 || envs[len(envs)-1] != env {
					return fmt.Errorf(`\end{%s} does not close an open environment`, env)
				}
				envs = envs[:len(envs)-1]
			}
		}
	}
	switch {
	case depth != 0:
		return fmt.Errorf("unbalanced braces")
	case lefts != 0:
		return fmt.Errorf(`\left without matching \right`)
	case len(envs) != 0:
		return fmt.Errorf(`unclosed environment %q`, envs[len(envs)-1])
	}
	return nil
}

func commandName(s string) string {
	end := 0
	for end < len(s) && isASCIILetter(s[end]) {
		end++
	}
	return s[:end]
}

func braceArgument(s string) (string, int, bool) {
	trimmed := strings.TrimLeft(s, " ")
	skipped := len(s) - len(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		return "", 0, false
	}
	closeIdx := strings.IndexByte(trimmed, '}')
	if closeIdx < 0 {
		return "", 0, false
	}
	return trimmed[1:closeIdx], skipped + closeIdx + 1, true
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// MathMLRenderer typesets TeX into presentation MathML with treeblood.
// Macros are expanded before conversion.
type MathMLRenderer struct {
	Macros map[string]string
}

func (r MathMLRenderer) RenderMath(expr string, display bool) (string, error) {
	var (
		out string
		err error
	)
	if display {
		out, err = treeblood.DisplayStyle(expr, r.Macros)
	} else {
		out, err = treeblood.InlineStyle(expr, r.Macros)
	}
	if err != nil {
		return "", err
	}
	return out, nil
}
