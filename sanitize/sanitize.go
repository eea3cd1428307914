package sanitize

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

const (
	// MaxTextLength is the maximum length of sanitized text in runes.
	MaxTextLength = 1000

	// MaxDepth is the default maximum nesting depth for structured values.
	MaxDepth = 5

	// MaxSliceLen is the maximum number of slice elements retained per level.
	MaxSliceLen = 100

	// MaxMapKeys is the maximum number of map keys retained per level.
	MaxMapKeys = 50
)

// Patterns stripped from untrusted text. Each is applied independently and
// case-insensitively; truncation happens only after all of them have run.
var strippedPatterns = []*regexp.Regexp{
	// Complete script elements, open tag through matching close tag.
	// Non-greedy so only a single non-nested block is consumed per match.
	regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script[^>]*>`),

	// URI schemes that execute or smuggle content.
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)data:`),

	// Inline event handler attributes (onclick=, onerror=, ...).
	regexp.MustCompile(`(?i)\bon\w+\s*=`),

	// CSS expression() and dynamic-code call openings.
	regexp.MustCompile(`(?i)expression\s*\(`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bFunction\s*\(`),
	regexp.MustCompile(`(?i)\bsetTimeout\s*\(`),
	regexp.MustCompile(`(?i)\bsetInterval\s*\(`),
}

// Text strips attack patterns from s, trims surrounding whitespace, and
// truncates the result to MaxTextLength runes. It never fails; sanitizing
// already-sanitized text is a no-op.
func Text(s string) string {
	for _, re := range strippedPatterns {
		s = re.ReplaceAllString(s, "")
	}
	s = strings.TrimSpace(s)
	return truncate(s, MaxTextLength)
}

// Coerce sanitizes v when it is a string and returns the empty string for
// every other value, nil included. It is the boundary for callers holding
// dynamically-typed input that must become display-safe text.
func Coerce(v any) string {
	if s, ok := v.(string); ok {
		return Text(s)
	}
	return ""
}

// Structured sanitizes v with the default depth bound. See StructuredDepth.
func Structured(v any) any {
	return StructuredDepth(v, MaxDepth)
}

// StructuredDepth recursively sanitizes an arbitrary value. Maps and slices
// are truncated to MaxMapKeys keys and MaxSliceLen elements before their
// contents are visited; string map keys and string scalars pass through
// Text; non-string scalars are returned unchanged. Levels nested deeper
// than maxDepth are replaced with nil, which bounds both output size and
// recursion against adversarial input. The depth counter alone guarantees
// termination, so cyclic input degrades to truncation rather than hanging.
func StructuredDepth(v any, maxDepth int) any {
	// The root container sits at depth 1, so at most maxDepth container
	// levels survive.
	return walk(v, 1, maxDepth)
}

func walk(v any, depth, maxDepth int) any {
	if v == nil {
		return nil
	}
	if depth > maxDepth {
		return nil
	}

	switch t := v.(type) {
	case string:
		return Text(t)
	case map[string]any:
		return walkStringMap(t, depth, maxDepth)
	case []any:
		return walkSlice(reflect.ValueOf(t), depth, maxDepth)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return walk(rv.Elem().Interface(), depth, maxDepth)
	case reflect.Map:
		return walkMap(rv, depth, maxDepth)
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		return walkSlice(rv, depth, maxDepth)
	case reflect.String:
		return Text(rv.String())
	default:
		// Numbers, booleans, and other scalars carry no markup.
		return v
	}
}

// Keys that sanitize to the same string collapse to one entry, so a map can
// come out with fewer keys than went in. Which value survives follows map
// iteration order.
func walkStringMap(m map[string]any, depth, maxDepth int) map[string]any {
	out := make(map[string]any, min(len(m), MaxMapKeys))
	n := 0
	for k, val := range m {
		if n >= MaxMapKeys {
			break
		}
		out[Text(k)] = walk(val, depth+1, maxDepth)
		n++
	}
	return out
}

// walkMap handles map kinds other than map[string]any. Keys are sanitized
// when they are strings and stringified otherwise, normalizing the result
// to map[string]any. As in walkStringMap, keys that sanitize alike collapse
// to one entry.
func walkMap(rv reflect.Value, depth, maxDepth int) map[string]any {
	out := make(map[string]any, min(rv.Len(), MaxMapKeys))
	iter := rv.MapRange()
	n := 0
	for iter.Next() {
		if n >= MaxMapKeys {
			break
		}
		key := iter.Key()
		var k string
		if key.Kind() == reflect.String {
			k = Text(key.String())
		} else {
			k = Text(fmt.Sprint(key.Interface()))
		}
		out[k] = walk(iter.Value().Interface(), depth+1, maxDepth)
		n++
	}
	return out
}

func walkSlice(rv reflect.Value, depth, maxDepth int) []any {
	n := min(rv.Len(), MaxSliceLen)
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = walk(rv.Index(i).Interface(), depth+1, maxDepth)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
