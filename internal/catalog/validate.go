package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

var (
	// ErrSchema is matched by every SchemaError.
	ErrSchema = errors.New("catalog schema invalid")
	// ErrNegativeValue is matched by every NegativeValueError.
	ErrNegativeValue = errors.New("catalog contains negative value")
)

// SchemaError reports a catalog whose shape cannot be priced.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid catalog: %s", e.Reason)
	}
	return fmt.Sprintf("invalid catalog at %s: %s", e.Path, e.Reason)
}

// Is lets errors.Is match ErrSchema.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// NegativeValueError names the first numeric leaf found below zero.
type NegativeValueError struct {
	Path string
}

func (e *NegativeValueError) Error() string {
	return fmt.Sprintf("invalid catalog: negative value at %s", e.Path)
}

// Is lets errors.Is match ErrNegativeValue.
func (e *NegativeValueError) Is(target error) bool { return target == ErrNegativeValue }

// ValidateDocument checks a raw decoded catalog document. The root must be an
// object; nested objects are walked with keys in sorted order and the first
// negative numeric leaf is reported by its dotted path. Other leaves are ignored.
func ValidateDocument(doc any) error {
	root, ok := doc.(map[string]any)
	if !ok {
		return &SchemaError{Reason: "catalog root must be an object"}
	}
	for _, leaf := range flatten("", root) {
		if isNegative(leaf.value) {
			return &NegativeValueError{Path: leaf.path}
		}
	}
	return nil
}

type flatLeaf struct {
	path  string
	value any
}

func flatten(prefix string, m map[string]any) []flatLeaf {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []flatLeaf
	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := m[k].(map[string]any); ok {
			out = append(out, flatten(path, nested)...)
			continue
		}
		out = append(out, flatLeaf{path: path, value: m[k]})
	}
	return out
}

func isNegative(v any) bool {
	switch n := v.(type) {
	case json.Number:
		return negativeLiteral(string(n))
	case float64:
		return n < 0
	case float32:
		return n < 0
	case int:
		return n < 0
	case int64:
		return n < 0
	case int32:
		return n < 0
	default:
		return false
	}
}

// negativeLiteral reads the sign from a JSON number literal so values outside
// float64 range are still caught. "-0" and "-0.0e5" are not negative.
func negativeLiteral(lit string) bool {
	if !strings.HasPrefix(lit, "-") {
		return false
	}
	mantissa, _, _ := strings.Cut(strings.ToLower(lit), "e")
	return strings.ContainsAny(mantissa, "123456789")
}

var (
	validateOnce sync.Once
	structCheck  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		structCheck = v
	})
	return structCheck
}

// Validate runs the typed checks over a parsed catalog. Items are checked in
// code order so the reported path is stable.
func Validate(c *Catalog) error {
	if c == nil {
		return &SchemaError{Reason: "catalog is nil"}
	}
	if c.Items == nil {
		return &SchemaError{Reason: "catalog has no item table"}
	}
	v := structValidator()
	for _, code := range c.Codes() {
		if code == ReservedKey {
			return &SchemaError{Path: code, Reason: "reserved key used as item code"}
		}
		if strings.TrimSpace(code) == "" {
			return &SchemaError{Path: code, Reason: "item code is blank"}
		}
		if err := v.Struct(c.Items[code]); err != nil {
			return translate(code, err)
		}
	}
	if err := v.Struct(c.Display); err != nil {
		return translate(ReservedKey, err)
	}
	return nil
}

func translate(root string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &SchemaError{Path: root, Reason: err.Error()}
	}
	fe := fieldErrs[0]
	path := root
	if ns := fe.Namespace(); ns != "" {
		// drop the struct type name
		if idx := strings.Index(ns, "."); idx >= 0 {
			path = root + "." + ns[idx+1:]
		}
	}
	if fe.Tag() == "gte" && isNegativeReflect(fe.Value()) {
		return &NegativeValueError{Path: path}
	}
	return &SchemaError{Path: path, Reason: fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())}
}

func isNegativeReflect(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() < 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() < 0
	default:
		return false
	}
}
