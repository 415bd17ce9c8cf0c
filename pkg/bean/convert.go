package bean

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// assign stores v into target, converting literals through cty when the
// types differ, e.g. the string "30" into an int field.
func assign(target reflect.Value, v any) error {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target.Type()) {
		target.Set(rv)
		return nil
	}
	if target.Kind() == reflect.Interface || target.Kind() == reflect.Pointer {
		return fmt.Errorf("cannot use %T as %s", v, target.Type())
	}

	want, err := gocty.ImpliedType(reflect.Zero(target.Type()).Interface())
	if err != nil {
		return fmt.Errorf("unsupported target type %s: %w", target.Type(), err)
	}
	val, err := ToCty(v)
	if err != nil {
		return err
	}
	converted, err := convert.Convert(val, want)
	if err != nil {
		return fmt.Errorf("cannot convert %T to %s: %w", v, target.Type(), err)
	}
	return gocty.FromCtyValue(converted, target.Addr().Interface())
}

// ToCty converts plain Go values, as produced by YAML decoding or directive
// parameters, into a cty.Value.
func ToCty(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return val, nil
	case string:
		return cty.StringVal(val), nil
	case bool:
		return cty.BoolVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case *big.Float:
		return cty.NumberVal(val), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cty.NumberIntVal(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cty.NumberUIntVal(rv.Uint()), nil
	case reflect.Float32:
		return cty.NumberFloatVal(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, rv.Len())
		for i := range elems {
			e, err := ToCty(rv.Index(i).Interface())
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = e
		}
		return cty.TupleVal(elems), nil
	case reflect.Map:
		if rv.Len() == 0 {
			return cty.EmptyObjectVal, nil
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j]) })
		attrs := make(map[string]cty.Value, len(keys))
		for _, k := range keys {
			e, err := ToCty(rv.MapIndex(k).Interface())
			if err != nil {
				return cty.NilVal, err
			}
			attrs[fmt.Sprint(k.Interface())] = e
		}
		return cty.ObjectVal(attrs), nil
	}
	return cty.NilVal, fmt.Errorf("unsupported literal of type %T", v)
}
