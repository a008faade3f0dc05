package json

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"computeduck/internal/runtime/builtins"
	"computeduck/internal/value"
)

// Module is the dllimport name of this package.
const Module = "json"

func init() {
	registerParse()
	registerStringify()
}

func registerParse() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "json_parse",
			Module:     Module,
			Arity:      1,
			ParamNames: []string{"text"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			textVal := args[0]
			if textVal.Kind != value.KindString {
				return false, value.Value{}, fmt.Errorf("json_parse expects a string")
			}
			parsed, err := parseJSON(textVal.Str.S)
			if err != nil {
				return false, value.Value{}, err
			}
			return true, parsed, nil
		},
	})
}

func registerStringify() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			Name:       "json_stringify",
			Module:     Module,
			Arity:      1,
			ParamNames: []string{"value"},
		},
		Call: func(env builtins.Env, args []value.Value) (bool, value.Value, error) {
			out, err := stringifyJSON(args[0])
			if err != nil {
				return false, value.Value{}, err
			}
			return true, value.Str(out), nil
		},
	})
}

func parseJSON(text string) (value.Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var data interface{}
	if err := dec.Decode(&data); err != nil {
		return value.Value{}, fmt.Errorf("json_parse: %w", err)
	}
	// Ensure there is no trailing data.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return value.Value{}, fmt.Errorf("json_parse: extra data after JSON value")
		}
		return value.Value{}, fmt.Errorf("json_parse: %w", err)
	}

	return jsonToValue(data)
}

func jsonToValue(v interface{}) (value.Value, error) {
	switch val := v.(type) {
	case nil:
		return value.Nil(), nil
	case bool:
		return value.Bool(val), nil
	case string:
		return value.Str(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return value.Value{}, fmt.Errorf("json_parse: invalid number %q", val.String())
		}
		return value.Number(f), nil
	case []interface{}:
		items := make([]value.Value, len(val))
		for i, item := range val {
			converted, err := jsonToValue(item)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = converted
		}
		return value.NewArray(items), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]value.Value, len(keys))
		for i, k := range keys {
			converted, err := jsonToValue(val[k])
			if err != nil {
				return value.Value{}, err
			}
			vals[i] = converted
		}
		return value.NewStruct(keys, vals), nil
	default:
		return value.Value{}, fmt.Errorf("json_parse: unsupported JSON value %T", v)
	}
}

func stringifyJSON(val value.Value) (string, error) {
	var b strings.Builder
	if err := writeJSONValue(&b, val, make(map[interface{}]bool)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// writeJSONValue encodes val. path holds the containers being encoded
// further up; meeting one again means the value contains itself.
func writeJSONValue(b *strings.Builder, val value.Value, path map[interface{}]bool) error {
	switch val.Kind {
	case value.KindNil:
		b.WriteString("null")
		return nil
	case value.KindNumber:
		if math.IsNaN(val.Num) || math.IsInf(val.Num, 0) {
			return fmt.Errorf("json_stringify: cannot encode non-finite number")
		}
		b.WriteString(strconv.FormatFloat(val.Num, 'g', -1, 64))
		return nil
	case value.KindString:
		return writeJSONString(b, val.Str.S)
	case value.KindBool:
		if val.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
		return nil
	case value.KindArray:
		if path[val.Arr] {
			return fmt.Errorf("json_stringify: cannot encode a cyclic array")
		}
		path[val.Arr] = true
		defer delete(path, val.Arr)
		b.WriteByte('[')
		for i, item := range val.Arr.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSONValue(b, item, path); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	case value.KindStruct:
		if path[val.Struct] {
			return fmt.Errorf("json_stringify: cannot encode a cyclic struct")
		}
		path[val.Struct] = true
		defer delete(path, val.Struct)
		b.WriteByte('{')
		for i, k := range val.Struct.Order {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeJSONString(b, k); err != nil {
				return err
			}
			b.WriteByte(':')
			if err := writeJSONValue(b, val.Struct.Members[k], path); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("json_stringify: unsupported value type %v", val.Kind)
	}
}

func writeJSONString(b *strings.Builder, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("json_stringify: invalid string: %w", err)
	}
	b.Write(encoded)
	return nil
}
