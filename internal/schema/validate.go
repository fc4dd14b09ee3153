package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError is one schema violation. Soft marks the soft word/
// sentence-count constraints (`x-min*`/`x-max*`), which the LLM adapter
// downgrades to warnings rather than treating as a hard validation
// failure.
type ValidationError struct {
	Path    string
	Message string
	Soft    bool
}

// Validate checks value against node's shape, recursively. It is the
// strict-JSON-schema response validator the LLM adapter (C12) runs the
// parsed AI payload through before accepting it.
func Validate(node *Node, value any) []ValidationError {
	return validateAt(node, value, "")
}

func validateAt(node *Node, value any, path string) []ValidationError {
	if node == nil {
		return nil
	}
	var errs []ValidationError

	switch node.Kind {
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return []ValidationError{{Path: path, Message: fmt.Sprintf("expected object, got %T", value)}}
		}
		for _, req := range node.Required {
			if _, ok := obj[req]; !ok {
				errs = append(errs, ValidationError{Path: joinPathDot(path, req), Message: "required property is missing"})
			}
		}
		for name, childNode := range node.Properties {
			if v, ok := obj[name]; ok {
				errs = append(errs, validateAt(childNode, v, joinPathDot(path, name))...)
			}
		}

	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			return []ValidationError{{Path: path, Message: fmt.Sprintf("expected array, got %T", value)}}
		}
		for i, v := range arr {
			errs = append(errs, validateAt(node.Items, v, fmt.Sprintf("%s[%d]", path, i))...)
		}

	case KindLeaf:
		errs = append(errs, validateLeaf(node, value, path)...)
	}

	return errs
}

func joinPathDot(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func validateLeaf(node *Node, value any, path string) []ValidationError {
	var errs []ValidationError

	switch node.Type {
	case "string":
		s, ok := value.(string)
		if !ok {
			return []ValidationError{{Path: path, Message: fmt.Sprintf("expected string, got %T", value)}}
		}
		errs = append(errs, validateStringKeywords(node.Keywords, s, path)...)
	case "number":
		if _, ok := toFloat(value); !ok {
			return []ValidationError{{Path: path, Message: fmt.Sprintf("expected number, got %T", value)}}
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return []ValidationError{{Path: path, Message: fmt.Sprintf("expected boolean, got %T", value)}}
		}
	}
	return errs
}

func validateStringKeywords(kw map[string]any, s, path string) []ValidationError {
	var errs []ValidationError

	if pattern, ok := kw["pattern"].(string); ok && pattern != "" {
		if matched, err := regexp.MatchString(pattern, s); err == nil && !matched {
			errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("value does not match pattern %q", pattern)})
		}
	}
	if enum, ok := kw["enum"].([]string); ok && len(enum) > 0 {
		found := false
		for _, e := range enum {
			if e == s {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("value %q is not one of the enumerated values", s)})
		}
	}
	if minLen, ok := intKeyword(kw, "minLength"); ok && len(s) < minLen {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("length %d is below minLength %d", len(s), minLen)})
	}
	if maxLen, ok := intKeyword(kw, "maxLength"); ok && len(s) > maxLen {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("length %d exceeds maxLength %d", len(s), maxLen)})
	}

	words := len(strings.Fields(s))
	if minWords, ok := intKeyword(kw, "x-minWords"); ok && words < minWords {
		errs = append(errs, ValidationError{Path: path, Soft: true, Message: fmt.Sprintf("%d words is below the recommended minimum of %d", words, minWords)})
	}
	if maxWords, ok := intKeyword(kw, "x-maxWords"); ok && words > maxWords {
		errs = append(errs, ValidationError{Path: path, Soft: true, Message: fmt.Sprintf("%d words exceeds the recommended maximum of %d", words, maxWords)})
	}

	sentences := countSentences(s)
	if minSentences, ok := intKeyword(kw, "x-minSentences"); ok && sentences < minSentences {
		errs = append(errs, ValidationError{Path: path, Soft: true, Message: fmt.Sprintf("%d sentences is below the recommended minimum of %d", sentences, minSentences)})
	}
	if maxSentences, ok := intKeyword(kw, "x-maxSentences"); ok && sentences > maxSentences {
		errs = append(errs, ValidationError{Path: path, Soft: true, Message: fmt.Sprintf("%d sentences exceeds the recommended maximum of %d", sentences, maxSentences)})
	}

	return errs
}

func intKeyword(kw map[string]any, key string) (int, bool) {
	switch n := kw[key].(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func countSentences(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n := 0
	for _, r := range s {
		if r == '.' || r == '!' || r == '?' {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}
