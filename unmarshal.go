package plist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Dictionary is a decoded plist dictionary.
type Dictionary map[string]interface{}

// Unmarshal maps the dictionary onto v using "plist" field tags.
func (m Dictionary) Unmarshal(v interface{}) error {
	return unmarshalValue(map[string]interface{}(m), reflect.ValueOf(v))
}

var timeType = reflect.TypeOf(time.Time{})

// unmarshalValue stores a decoded tree value into val. The source is
// always one of the builder's output types.
func unmarshalValue(v interface{}, val reflect.Value) error {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			val.Set(reflect.New(val.Type().Elem()))
		}
		val = val.Elem()
	}
	if val.Kind() == reflect.Interface && val.NumMethod() == 0 {
		val.Set(reflect.ValueOf(v))
		return nil
	}
	switch pval := v.(type) {
	case string:
		if val.Kind() != reflect.String {
			return fmt.Errorf("plist: not a string field: %v", val.Type())
		}
		val.SetString(pval)
	case int64:
		return setInt(val, uint64(pval))
	case uint64:
		return setInt(val, pval)
	case float64:
		if val.Kind() != reflect.Float32 && val.Kind() != reflect.Float64 {
			return fmt.Errorf("plist: not a float field: %v", val.Type())
		}
		val.SetFloat(pval)
	case bool:
		if val.Kind() != reflect.Bool {
			return fmt.Errorf("plist: not a bool field: %v", val.Type())
		}
		val.SetBool(pval)
	case []byte:
		if val.Kind() != reflect.Slice || val.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("plist: not a data field: %v", val.Type())
		}
		val.SetBytes(pval)
	case time.Time:
		if val.Type() != timeType {
			return fmt.Errorf("plist: not a date field: %v", val.Type())
		}
		val.Set(reflect.ValueOf(pval))
	case []interface{}:
		if val.Kind() != reflect.Slice {
			return fmt.Errorf("plist: not a slice field: %v", val.Type())
		}
		return unmarshalSlice(pval, val)
	case map[string]interface{}:
		switch val.Kind() {
		case reflect.Map:
			return unmarshalMap(pval, val)
		case reflect.Struct:
			return unmarshalStruct(pval, val)
		default:
			return fmt.Errorf("plist: not a map or struct field: %v", val.Type())
		}
	default:
		return fmt.Errorf("plist: not a plist type: %v", reflect.TypeOf(v))
	}
	return nil
}

func setInt(val reflect.Value, bits uint64) error {
	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		val.SetInt(int64(bits))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		val.SetUint(bits)
	default:
		return fmt.Errorf("plist: not an integer field: %v", val.Type())
	}
	return nil
}

func unmarshalSlice(array []interface{}, val reflect.Value) error {
	val.Set(reflect.MakeSlice(val.Type(), len(array), len(array)))
	for i, v := range array {
		if err := unmarshalValue(v, val.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalMap(dict map[string]interface{}, val reflect.Value) error {
	if val.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("plist: map keys must be strings: %v", val.Type())
	}
	val.Set(reflect.MakeMap(val.Type()))
	for k, v := range dict {
		elem := reflect.New(val.Type().Elem())
		if err := unmarshalValue(v, elem); err != nil {
			return err
		}
		val.SetMapIndex(reflect.ValueOf(k), elem.Elem())
	}
	return nil
}

func unmarshalStruct(dict map[string]interface{}, val reflect.Value) error {
	tinfo, err := getTypeInfo(val.Type())
	if err != nil {
		return err
	}
	for _, finfo := range tinfo.fields {
		if dval, ok := dict[finfo.name]; ok {
			if err := unmarshalValue(dval, finfo.value(val)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ConvertToJSON decodes the property list in data and re-encodes its
// root dictionary as JSON.
func ConvertToJSON(data []byte) ([]byte, error) {
	objdict := make(Dictionary)
	if err := NewDecoder(bytes.NewReader(data)).Decode(objdict); err != nil {
		return nil, err
	}
	return json.Marshal(objdict)
}
