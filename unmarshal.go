package brace

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Unmarshal parses a document and stores the result in the value pointed to by v.
//
// Unmarshal uses struct tags to map labels to struct fields:
//   - `brace:"label"` - decodes the first entry labeled "label" into this field
//   - `brace:"label,required"` - fails if no entry carries the label
//   - `brace:"label,all"` - decodes every entry labeled "label" into this slice field
//   - `brace:"-"` - ignores this field
//
// Untagged fields use the lower-cased field name as their label. Floats
// decode into integer fields only when they are integral and in range.
//
// Example:
//
//	type Stop struct {
//	    Name string `brace:"name"`
//	    Pos  struct {
//	        X float64 `brace:"x"`
//	        Y float64 `brace:"y"`
//	    } `brace:"pos"`
//	    Signals []uint8 `brace:"signal,all"`
//	}
func Unmarshal(data []byte, v any) error {
	t, err := Parse(string(data))
	if err != nil {
		return err
	}
	return UnmarshalTable(t, v)
}

// UnmarshalTable decodes a parsed table into v.
// v must be a non-nil pointer to a struct, slice, map, Table or interface.
func UnmarshalTable(t Table, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be a non-nil pointer")
	}

	elem := rv.Elem()
	switch elem.Kind() {
	case reflect.Struct, reflect.Slice, reflect.Map, reflect.Interface:
	default:
		return fmt.Errorf("unmarshal target must point to a struct, slice, map or interface, not %s", elem.Kind())
	}
	return setField(elem, Object(t))
}

var (
	tableType  = reflect.TypeFor[Table]()
	objectType = reflect.TypeFor[Object]()
)

// setField decodes value into field.
func setField(field reflect.Value, value Value) error {
	if typ := field.Type(); typ == tableType || typ == objectType {
		obj, ok := value.(Object)
		if !ok {
			return mismatch(field, value)
		}
		field.Set(reflect.ValueOf(obj).Convert(typ))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		return setString(field, value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, value)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(field, value)
	case reflect.Float32, reflect.Float64:
		return setFloat(field, value)
	case reflect.Slice:
		return setSlice(field, value)
	case reflect.Map:
		return setMap(field, value)
	case reflect.Struct:
		return setStruct(field, value)
	case reflect.Pointer:
		return setPointer(field, value)
	case reflect.Interface:
		if value == nil {
			return mismatch(field, value)
		}
		rv := reflect.ValueOf(value)
		if !rv.Type().AssignableTo(field.Type()) {
			return mismatch(field, value)
		}
		field.Set(rv)
		return nil
	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
}

func mismatch(field reflect.Value, value Value) error {
	return fmt.Errorf("cannot decode %s into %s", kindOf(value), field.Type())
}

func setString(field reflect.Value, value Value) error {
	s, ok := value.(String)
	if !ok {
		return mismatch(field, value)
	}
	field.SetString(string(s))
	return nil
}

func setInt(field reflect.Value, value Value) error {
	f, ok := value.(Float)
	if !ok {
		return mismatch(field, value)
	}
	x := float64(f)
	if x != math.Trunc(x) {
		return fmt.Errorf("cannot decode non-integral %v into %s", x, field.Type())
	}
	if x < math.MinInt64 || x >= -math.MinInt64 || field.OverflowInt(int64(x)) {
		return fmt.Errorf("%v overflows %s", x, field.Type())
	}
	field.SetInt(int64(x))
	return nil
}

func setUint(field reflect.Value, value Value) error {
	f, ok := value.(Float)
	if !ok {
		return mismatch(field, value)
	}
	x := float64(f)
	if x != math.Trunc(x) {
		return fmt.Errorf("cannot decode non-integral %v into %s", x, field.Type())
	}
	if x < 0 || x >= math.MaxUint64 || field.OverflowUint(uint64(x)) {
		return fmt.Errorf("%v overflows %s", x, field.Type())
	}
	field.SetUint(uint64(x))
	return nil
}

func setFloat(field reflect.Value, value Value) error {
	f, ok := value.(Float)
	if !ok {
		return mismatch(field, value)
	}
	if field.OverflowFloat(float64(f)) {
		return fmt.Errorf("%v overflows %s", float64(f), field.Type())
	}
	field.SetFloat(float64(f))
	return nil
}

// setSlice decodes each entry of an object into one element. Labels are ignored.
func setSlice(field reflect.Value, value Value) error {
	obj, ok := value.(Object)
	if !ok {
		return mismatch(field, value)
	}
	slice := reflect.MakeSlice(field.Type(), len(obj), len(obj))
	for i, e := range obj {
		if err := setField(slice.Index(i), e.Value); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	field.Set(slice)
	return nil
}

// setMap decodes the labeled entries of an object. Every entry must be
// labeled and labels must be unique.
func setMap(field reflect.Value, value Value) error {
	obj, ok := value.(Object)
	if !ok {
		return mismatch(field, value)
	}
	if field.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("unsupported map key type: %s", field.Type().Key())
	}

	m := reflect.MakeMapWithSize(field.Type(), len(obj))
	for i, e := range obj {
		if !e.Labeled() {
			return fmt.Errorf("index %d: unlabeled entry cannot be stored in %s", i, field.Type())
		}
		key := reflect.ValueOf(e.Label).Convert(field.Type().Key())
		if m.MapIndex(key).IsValid() {
			return fmt.Errorf("duplicate label %s", e.Label)
		}
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := setField(elem, e.Value); err != nil {
			return fmt.Errorf("label %s: %w", e.Label, err)
		}
		m.SetMapIndex(key, elem)
	}
	field.Set(m)
	return nil
}

func setStruct(field reflect.Value, value Value) error {
	obj, ok := value.(Object)
	if !ok {
		return mismatch(field, value)
	}
	return unmarshalStruct(Table(obj), field)
}

// unmarshalStruct decodes a table into a struct value.
func unmarshalStruct(t Table, v reflect.Value) error {
	typ := v.Type()

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldValue := v.Field(i)

		// Skip unexported fields
		if !fieldValue.CanSet() {
			continue
		}

		tag := field.Tag.Get("brace")
		if tag == "-" {
			continue
		}

		label, opts := parseTag(tag)
		if label == "" {
			label = strings.ToLower(field.Name)
		}

		if hasOption(opts, "all") {
			if fieldValue.Kind() != reflect.Slice {
				return fmt.Errorf("field %s: option all needs a slice, not %s", field.Name, field.Type)
			}
			values := t.All(label)
			if len(values) == 0 && hasOption(opts, "required") {
				return fmt.Errorf("required field %s not found", label)
			}
			slice := reflect.MakeSlice(field.Type, len(values), len(values))
			for j, item := range values {
				if err := setField(slice.Index(j), item); err != nil {
					return fmt.Errorf("field %s: index %d: %w", field.Name, j, err)
				}
			}
			fieldValue.Set(slice)
			continue
		}

		value, ok := t.Get(label)
		if !ok {
			if hasOption(opts, "required") {
				return fmt.Errorf("required field %s not found", label)
			}
			continue
		}

		if err := setField(fieldValue, value); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}

	return nil
}

func setPointer(field reflect.Value, value Value) error {
	ptr := reflect.New(field.Type().Elem())
	if err := setField(ptr.Elem(), value); err != nil {
		return err
	}
	field.Set(ptr)
	return nil
}

func parseTag(tag string) (string, []string) {
	parts := strings.Split(tag, ",")
	return parts[0], parts[1:]
}

func hasOption(opts []string, option string) bool {
	for _, opt := range opts {
		if opt == option {
			return true
		}
	}
	return false
}
