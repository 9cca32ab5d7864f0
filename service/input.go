package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"projtrack/response"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
)

var errNotInteger = errors.New("not an integer")

// fieldReader pulls loosely typed JSON members out of one object, coercing
// them into Go values and collecting an issue for every member it rejects.
// A member can be absent, explicitly null, or carry a value.
type fieldReader struct {
	raw    map[string]json.RawMessage
	prefix string
	issues *[]response.Issue
}

func newFieldReader(data []byte) (*fieldReader, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, invalidBody("body must be a JSON object")
	}
	return &fieldReader{raw: raw, issues: &[]response.Issue{}}, nil
}

func (r *fieldReader) child(name string, raw map[string]json.RawMessage) *fieldReader {
	return &fieldReader{raw: raw, prefix: name, issues: r.issues}
}

func (r *fieldReader) name(key string) string {
	if r.prefix == "" {
		return key
	}
	if key == "" {
		return r.prefix
	}
	return r.prefix + "." + key
}

func (r *fieldReader) fail(key, msg string) {
	*r.issues = append(*r.issues, response.Issue{Field: r.name(key), Message: msg})
}

func (r *fieldReader) err() error {
	if len(*r.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: *r.issues}
}

func (r *fieldReader) has(key string) bool {
	_, ok := r.raw[key]
	return ok
}

// value decodes a member with numbers kept as json.Number.
func (r *fieldReader) value(key string) (any, bool) {
	raw, ok := r.raw[key]
	if !ok {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, true
	}
	return v, true
}

// blank reports a member that is present but null or an empty string.
func (r *fieldReader) blank(key string) bool {
	v, ok := r.value(key)
	if !ok {
		return false
	}
	if v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && strings.TrimSpace(s) == ""
}

func (r *fieldReader) require(key string) {
	if !r.has(key) || r.blank(key) {
		r.fail(key, "is required")
	}
}

func (r *fieldReader) notEmpty(key string) {
	if r.blank(key) {
		r.fail(key, "cannot be empty")
	}
}

// text reads a string member. Numbers keep their literal text and blank
// strings read as nil.
func (r *fieldReader) text(key string) *string {
	v, ok := r.value(key)
	if !ok || v == nil {
		return nil
	}
	var s string
	switch v := v.(type) {
	case string:
		s = strings.TrimSpace(v)
	case json.Number:
		s = v.String()
	default:
		r.fail(key, "must be a string")
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// integer reads a whole number given either as a JSON number or as a
// numeric string.
func (r *fieldReader) integer(key string) *int {
	v, ok := r.value(key)
	if !ok || v == nil {
		return nil
	}
	var (
		n   int64
		err error
	)
	switch v := v.(type) {
	case json.Number:
		n, err = parseInteger(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		n, err = parseInteger(s)
	default:
		err = errNotInteger
	}
	if err != nil {
		r.fail(key, "must be an integer")
		return nil
	}
	i := int(n)
	return &i
}

func parseInteger(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errNotInteger
	}
	return int64(f), nil
}

// date reads YYYY-MM-DD or an RFC 3339 timestamp, keeping only the day.
func (r *fieldReader) date(key string) *datatypes.Date {
	v, ok := r.value(key)
	if !ok || v == nil {
		return nil
	}
	s, isString := v.(string)
	if !isString {
		r.fail(key, "must be a date (YYYY-MM-DD)")
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		r.fail(key, "must be a date (YYYY-MM-DD)")
		return nil
	}
	d := datatypes.Date(t)
	return &d
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func enumText[T ~string](r *fieldReader, key string) *T {
	s := r.text(key)
	if s == nil {
		return nil
	}
	v := T(*s)
	return &v
}

// object returns a reader over a nested object member, or nil when the
// member is absent or null.
func (r *fieldReader) object(key string) *fieldReader {
	raw, ok := r.raw[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		r.fail(key, "must be an object")
		return nil
	}
	return r.child(r.name(key), obj)
}

// objects returns one reader per element of an array-of-objects member.
// ok is false when the member is present but not an array.
func (r *fieldReader) objects(key string) (items []*fieldReader, ok bool) {
	raw, present := r.raw[key]
	if !present || string(bytes.TrimSpace(raw)) == "null" {
		return nil, true
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		r.fail(key, "must be an array")
		return nil, false
	}
	for i, elem := range elems {
		name := fmt.Sprintf("%s[%d]", r.name(key), i)
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			*r.issues = append(*r.issues, response.Issue{Field: name, Message: "must be an object"})
			continue
		}
		items = append(items, r.child(name, obj))
	}
	return items, true
}

var registerTagNames sync.Once

// validate runs the binding tags of obj through gin's validator and records
// every failure under the reader's prefix.
func (r *fieldReader) validate(obj any) {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})
	err := binding.Validator.ValidateStruct(obj)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		r.fail("", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		r.fail(fe.Field(), describe(fe))
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " check"
	}
}
