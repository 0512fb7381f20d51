// Package value implements the tagged-union scalar type shared by every
// other package: schema defaults, expression constants, row cells, and
// DataObject fields are all value.Value.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yborm/yborm-go/ybormerr"
)

// Type is the discriminator of a Value.
type Type int

const (
	Invalid Type = iota
	Integer
	LongInt
	Float
	String
	Decimal
	DateTime
	Blob
)

func (t Type) String() string {
	switch t {
	case Invalid:
		return "Invalid"
	case Integer:
		return "Integer"
	case LongInt:
		return "LongInt"
	case Float:
		return "Float"
	case String:
		return "String"
	case Decimal:
		return "Decimal"
	case DateTime:
		return "DateTime"
	case Blob:
		return "Blob"
	default:
		return "Unknown"
	}
}

// Decimal is a fixed-point value stored as an int64 unscaled integer plus
// a scale, to keep comparisons and rendering exact and alloc-light. Its
// range is that of int64, so parseDecimalString rejects a literal whose
// digits do not fit in an int64 even when it has fewer than 38 of them.
type Decimal struct {
	Unscaled int64
	Scale    int
}

func (d Decimal) Float() float64 {
	return float64(d.Unscaled) / math.Pow10(d.Scale)
}

func (d Decimal) String() string {
	s := strconv.FormatInt(d.Unscaled, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if d.Scale <= 0 {
		if neg {
			return "-" + s
		}
		return s
	}
	for len(s) <= d.Scale {
		s = "0" + s
	}
	whole, frac := s[:len(s)-d.Scale], s[len(s)-d.Scale:]
	out := whole + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// Value is a closed tagged union over the SQL scalar domain described by
// spec §3. The zero Value is Invalid (SQL NULL).
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
	d   Decimal
	t   time.Time
	b   []byte
}

func Null() Value { return Value{typ: Invalid} }

func NewInteger(v int32) Value { return Value{typ: Integer, i: int64(v)} }
func NewLongInt(v int64) Value { return Value{typ: LongInt, i: v} }
func NewFloat(v float64) Value { return Value{typ: Float, f: v} }
func NewString(v string) Value { return Value{typ: String, s: v} }
func NewDecimal(unscaled int64, scale int) Value {
	return Value{typ: Decimal, d: Decimal{Unscaled: unscaled, Scale: scale}}
}
func NewDateTime(t time.Time) Value { return Value{typ: DateTime, t: t} }
func NewBlob(b []byte) Value        { return Value{typ: Blob, b: append([]byte(nil), b...)} }

// Sysdate is the sentinel default meaning "current timestamp on the server",
// distinguished from an ordinary DateTime literal default (spec §3, Column).
var Sysdate = Value{typ: DateTime, s: "sysdate"}

func (v Value) IsSysdate() bool { return v.typ == DateTime && v.s == "sysdate" }
func (v Value) Type() Type      { return v.typ }
func (v Value) IsNull() bool    { return v.typ == Invalid }

func (v Value) AsInteger() int32 {
	switch v.typ {
	case Integer, LongInt:
		return int32(v.i)
	}
	return 0
}

func (v Value) AsLongInt() int64 {
	switch v.typ {
	case Integer, LongInt:
		return v.i
	}
	return 0
}

func (v Value) AsFloat() float64 {
	switch v.typ {
	case Float:
		return v.f
	case Decimal:
		return v.d.Float()
	case Integer, LongInt:
		return float64(v.i)
	}
	return 0
}

func (v Value) AsString() string {
	switch v.typ {
	case String:
		return v.s
	case Invalid:
		return ""
	default:
		return v.renderPlain()
	}
}

func (v Value) AsDecimal() Decimal {
	if v.typ == Decimal {
		return v.d
	}
	return Decimal{}
}

func (v Value) AsDateTime() time.Time {
	if v.typ == DateTime {
		return v.t
	}
	return time.Time{}
}

func (v Value) AsBlob() []byte {
	if v.typ == Blob {
		return v.b
	}
	return nil
}

func (v Value) renderPlain() string {
	switch v.typ {
	case Integer, LongInt:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Decimal:
		return v.d.String()
	case DateTime:
		return v.t.Format("2006-01-02 15:04:05.000")
	case Blob:
		return fmt.Sprintf("%x", v.b)
	default:
		return ""
	}
}

// FixType returns a copy of the Value coerced to t (the receiver is left
// unchanged), failing with BadTypeCast when the
// conversion cannot be performed (spec §3).
func (v Value) FixType(t Type) (Value, error) {
	if v.typ == t || v.IsNull() {
		if v.IsNull() {
			return Value{typ: t}, nil
		}
		return v, nil
	}
	switch t {
	case Integer:
		i, err := v.toInt64()
		if err != nil {
			return Value{}, err
		}
		return NewInteger(int32(i)), nil
	case LongInt:
		i, err := v.toInt64()
		if err != nil {
			return Value{}, err
		}
		return NewLongInt(i), nil
	case Float:
		switch v.typ {
		case Integer, LongInt:
			return NewFloat(float64(v.i)), nil
		case Decimal:
			return NewFloat(v.d.Float()), nil
		case String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
			if err != nil {
				return Value{}, badTypeCast(v, t)
			}
			return NewFloat(f), nil
		}
	case String:
		return NewString(v.renderPlain()), nil
	case Decimal:
		switch v.typ {
		case Integer, LongInt:
			return NewDecimal(v.i, 0), nil
		case String:
			return parseDecimalString(v.s)
		}
	case DateTime:
		if v.typ == String {
			parsed, err := parseDateTimeString(v.s)
			if err != nil {
				return Value{}, badTypeCast(v, t)
			}
			return parsed, nil
		}
	case Blob:
		if v.typ == String {
			return NewBlob([]byte(v.s)), nil
		}
	}
	return Value{}, badTypeCast(v, t)
}

func (v Value) toInt64() (int64, error) {
	switch v.typ {
	case Integer, LongInt:
		return v.i, nil
	case Float:
		return int64(v.f), nil
	case Decimal:
		return int64(v.d.Float()), nil
	case String:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return 0, badTypeCast(v, LongInt)
		}
		return i, nil
	}
	return 0, badTypeCast(v, LongInt)
}

func parseDecimalString(s string) (Value, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	dot := strings.IndexByte(s, '.')
	var whole, frac string
	if dot < 0 {
		whole = s
	} else {
		whole, frac = s[:dot], s[dot+1:]
	}
	digits := whole + frac
	if digits == "" {
		return Value{}, ybormerr.New(ybormerr.Value, "invalid decimal literal %q", s)
	}
	if len(digits) > 38 {
		return Value{}, ybormerr.New(ybormerr.Value, "decimal overflow: %q has more than 38 significant digits", s)
	}
	unscaled, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Value{}, ybormerr.Wrap(ybormerr.Value, err, "invalid decimal literal %q", s)
	}
	if neg {
		unscaled = -unscaled
	}
	return NewDecimal(unscaled, len(frac)), nil
}

func parseDateTimeString(s string) (Value, error) {
	layouts := []string{
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return NewDateTime(t), nil
		}
	}
	return Value{}, fmt.Errorf("unparseable datetime %q", s)
}

func badTypeCast(v Value, to Type) error {
	return ybormerr.New(ybormerr.Value, "bad type cast: cannot convert %s value %q to %s", v.typ, v.AsString(), to)
}

// SQLStr renders v as a SQL literal: quoted/escaped strings, dialect-neutral
// timestamp literal for dates, bare numerics, and the literal NULL for a
// null Value (spec §3).
func (v Value) SQLStr() string {
	switch v.typ {
	case Invalid:
		return "NULL"
	case Integer, LongInt:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Decimal:
		return v.d.String()
	case String:
		return "'" + strings.ReplaceAll(v.s, "'", "''") + "'"
	case DateTime:
		if v.IsSysdate() {
			return "sysdate"
		}
		return "'" + v.t.Format("2006-01-02 15:04:05") + "'"
	case Blob:
		return "'" + fmt.Sprintf("%x", v.b) + "'"
	default:
		return "NULL"
	}
}

// Equal implements coercion-aware equality: nulls are equal only to nulls,
// and non-null values compare equal only when both sides agree on type
// family (spec §3).
func (v Value) Equal(other Value) bool {
	if v.IsNull() || other.IsNull() {
		return v.IsNull() && other.IsNull()
	}
	if numericFamily(v.typ) && numericFamily(other.typ) {
		return v.AsFloat() == other.AsFloat()
	}
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case String:
		return v.s == other.s
	case DateTime:
		return v.t.Equal(other.t)
	case Blob:
		return string(v.b) == string(other.b)
	default:
		return v.AsFloat() == other.AsFloat()
	}
}

func numericFamily(t Type) bool {
	return t == Integer || t == LongInt || t == Float || t == Decimal
}

// CompareTotal implements the total order from spec §3: null < any non-null;
// within a type natural ordering; across numeric types promotion to the
// widest form; otherwise comparison of the rendered string form. No other
// package of this module calls it.
func CompareTotal(a, b Value) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		return -1
	}
	if b.IsNull() {
		return 1
	}
	if numericFamily(a.typ) && numericFamily(b.typ) {
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if a.typ == b.typ {
		switch a.typ {
		case String:
			return strings.Compare(a.s, b.s)
		case DateTime:
			switch {
			case a.t.Before(b.t):
				return -1
			case a.t.After(b.t):
				return 1
			default:
				return 0
			}
		case Blob:
			return strings.Compare(string(a.b), string(b.b))
		}
	}
	return strings.Compare(a.AsString(), b.AsString())
}
