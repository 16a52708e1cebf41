// Package query defines the contract between the application and the query engine:
// the dynamically-typed values an engine returns, the per-statement responses, and the
// decoder that turns those responses into records.
package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindNumber
	KindString
	KindDatetime
	KindArray
	KindObject
	KindThing
)

// String returns the string representation of the value kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Bool"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindDatetime:
		return "Datetime"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	case KindThing:
		return "Thing"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a dynamically-typed engine value. The set of implementations is closed;
// callers switch on the concrete type.
type Value interface {
	Kind() Kind
	value()
}

// None is the absence of a value (SQL NULL).
type None struct{}

// Bool is a boolean value.
type Bool bool

// Number is a numeric value.
type Number float64

// String is a text value.
type String string

// Datetime is a point in time.
type Datetime time.Time

// Array is an ordered list of values.
type Array []Value

// Object is a record: field names mapped to values.
type Object map[string]Value

// Thing is a reference to a stored record: the table it lives in and its identifier.
type Thing struct {
	Table string
	ID    string
}

func (None) Kind() Kind     { return KindNone }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Datetime) Kind() Kind { return KindDatetime }
func (Array) Kind() Kind    { return KindArray }
func (Object) Kind() Kind   { return KindObject }
func (Thing) Kind() Kind    { return KindThing }

func (None) value()     {}
func (Bool) value()     {}
func (Number) value()   {}
func (String) value()   {}
func (Datetime) value() {}
func (Array) value()    {}
func (Object) value()   {}
func (Thing) value()    {}

// KindOf returns the kind of v, treating a nil Value as None.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNone
	}
	return v.Kind()
}

// String returns the canonical external form "table:id".
// A Thing without a table renders as its bare id.
func (t Thing) String() string {
	if t.Table == "" {
		return t.ID
	}
	return t.Table + ":" + t.ID
}

// IsZero reports whether t carries no identifier.
func (t Thing) IsZero() bool { return t.ID == "" }

// Text returns the text value of field, if the field holds a String.
func (o Object) Text(field string) (string, bool) {
	switch v := o[field].(type) {
	case String:
		return string(v), true
	default:
		return "", false
	}
}

// Thing returns the reference held by field, if the field holds a Thing.
func (o Object) Thing(field string) (Thing, bool) {
	switch v := o[field].(type) {
	case Thing:
		if v.IsZero() {
			return Thing{}, false
		}
		return v, true
	default:
		return Thing{}, false
	}
}

// Datetime returns the time held by field, if the field holds a Datetime.
func (o Object) Datetime(field string) (time.Time, bool) {
	switch v := o[field].(type) {
	case Datetime:
		return time.Time(v), true
	default:
		return time.Time{}, false
	}
}

/***************
 * JSON rendering
 ***************/

func (None) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (b Bool) MarshalJSON() ([]byte, error) { return json.Marshal(bool(b)) }

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(n), 'f', -1, 64)), nil
}

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }

func (d Datetime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).UTC().Format(time.RFC3339Nano))
}

func (a Array) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Value(a))
}

func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Value(o))
}

func (t Thing) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }
