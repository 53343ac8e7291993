package stage

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRE = regexp.MustCompile(`\{([^{}]*)\}`)

// Expand substitutes {token} placeholders in a command template. Values are
// shell-quoted because the expanded command runs through the shell. Unknown
// tokens are an error so a typo never reaches the tool as a literal brace.
func Expand(template string, vars map[string]string) (string, error) {
	var expandErr error
	expanded := placeholderRE.ReplaceAllStringFunc(template, func(match string) string {
		token := strings.TrimSuffix(strings.TrimPrefix(match, "{"), "}")
		value, ok := vars[token]
		if !ok {
			if expandErr == nil {
				expandErr = fmt.Errorf("unknown placeholder {%s}", token)
			}
			return match
		}
		return shellQuote(value)
	})
	if expandErr != nil {
		return "", expandErr
	}
	return expanded, nil
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
