package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError means an upstream producer broke the payload contract.
// Jobs never retry it.
type ValidationError struct {
	Payload string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %v", e.Payload, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// DecodeStrict decodes a JSON object into v and rejects unknown keys, missing
// required keys and values outside their allowed sets. Keys must match the
// json tags exactly; encoding/json alone would accept case variants. A field is required
// when its json tag has no omitempty option; an explicit null does not count
// as present.
func DecodeStrict(name string, data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ValidationError{Payload: name, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &ValidationError{Payload: name, Err: errors.New("unexpected data after JSON object")}
	}

	var present map[string]json.RawMessage
	if err := json.Unmarshal(data, &present); err != nil {
		return &ValidationError{Payload: name, Err: err}
	}

	known, required := jsonKeys(reflect.TypeOf(v))
	var unknown []string
	for key := range present {
		if _, ok := known[key]; known != nil && !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{Payload: name, Err: fmt.Errorf("unknown fields: %s", strings.Join(unknown, ", "))}
	}

	var missing []string
	for _, key := range required {
		raw, ok := present[key]
		if !ok || string(bytes.TrimSpace(raw)) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Payload: name, Err: fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))}
	}

	if err := getValidator().Struct(v); err != nil {
		return &ValidationError{Payload: name, Err: err}
	}
	return nil
}

// jsonKeys returns every json key of a struct type and, in declaration
// order, the keys without omitempty.
func jsonKeys(t reflect.Type) (map[string]struct{}, []string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, nil
	}

	known := make(map[string]struct{}, t.NumField())
	required := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" || name == "-" {
			continue
		}
		known[name] = struct{}{}
		if !strings.Contains(opts, "omitempty") {
			required = append(required, name)
		}
	}
	return known, required
}
