package wat

import (
	"errors"
	"fmt"
	"strings"
)

// FuncShape summarises one function of a WAT text.
type FuncShape struct {
	Symbol string
	Line   int
	Blocks int // number of "(block" openings
	Closed bool
}

// Scan walks the parenthesis structure of text, skipping ";;" line
// comments, "(; ;)" block comments and string literals. It returns the
// functions found at module level.
func Scan(text string) ([]FuncShape, error) {
	var (
		funcs []FuncShape
		cur   = -1
		depth int
		line  = 1
		errs  []error
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\n':
			line++
		case c == ';' && i+1 < len(text) && text[i+1] == ';':
			for i < len(text) && text[i] != '\n' {
				i++
			}
			line++
		case c == '(' && i+1 < len(text) && text[i+1] == ';':
			end := strings.Index(text[i+2:], ";)")
			if end < 0 {
				errs = append(errs, fmt.Errorf("line %d: unterminated block comment", line))
				i = len(text)
				break
			}
			line += strings.Count(text[i:i+2+end], "\n")
			i += end + 3
		case c == '"':
			j := i + 1
			for j < len(text) && text[j] != '"' {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(text) {
				errs = append(errs, fmt.Errorf("line %d: unterminated string", line))
			}
			i = j
		case c == '(':
			depth++
			word := keywordAt(text, i+1)
			if depth == 2 && word == "func" {
				funcs = append(funcs, FuncShape{Symbol: symbolAt(text, i+1+len(word)), Line: line})
				cur = len(funcs) - 1
			} else if cur >= 0 && word == "block" {
				funcs[cur].Blocks++
			}
		case c == ')':
			depth--
			if depth < 0 {
				errs = append(errs, fmt.Errorf("line %d: unbalanced ')'", line))
				depth = 0
			}
			if depth == 1 && cur >= 0 {
				funcs[cur].Closed = true
				cur = -1
			}
		}
	}
	if cur >= 0 {
		errs = append(errs, fmt.Errorf("function $%s (line %d) is not closed", funcs[cur].Symbol, funcs[cur].Line))
	}
	if depth != 0 {
		errs = append(errs, fmt.Errorf("%d unclosed '(' at end of text", depth))
	}
	return funcs, errors.Join(errs...)
}

// CheckBalance reports whether every parenthesis in text is matched.
func CheckBalance(text string) error {
	_, err := Scan(text)
	return err
}

// Validate checks balance and that the text is a single module.
func Validate(text string) error {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "(module") {
		return errors.New("text does not start with (module")
	}
	return CheckBalance(text)
}

func keywordAt(text string, i int) string {
	j := i
	for j < len(text) {
		c := text[j]
		if c == ' ' || c == '\t' || c == '\n' || c == '(' || c == ')' {
			break
		}
		j++
	}
	return text[i:j]
}

func symbolAt(text string, i int) string {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i >= len(text) || text[i] != '$' {
		return ""
	}
	return keywordAt(text, i+1)
}
