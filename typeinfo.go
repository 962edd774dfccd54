package plist

import (
	"reflect"
	"strings"
	"sync"
)

// typeInfo holds the plist field layout of a struct type.
type typeInfo struct {
	fields []fieldInfo
}

type fieldInfo struct {
	idx       []int
	name      string
	omitEmpty bool
}

var tinfoMap sync.Map // reflect.Type → *typeInfo

// getTypeInfo returns the cached field layout for typ, resolving
// "plist" tags and embedded structs the way encoding/xml resolves
// theirs.
func getTypeInfo(typ reflect.Type) (*typeInfo, error) {
	if cached, ok := tinfoMap.Load(typ); ok {
		return cached.(*typeInfo), nil
	}
	tinfo := &typeInfo{}
	if typ.Kind() == reflect.Struct {
		n := typ.NumField()
		for i := 0; i < n; i++ {
			f := typ.Field(i)
			if f.Tag.Get("plist") == "-" || (!f.Anonymous && f.PkgPath != "") {
				continue // skipped or unexported
			}

			if f.Anonymous {
				t := f.Type
				if t.Kind() == reflect.Ptr {
					t = t.Elem()
				}
				if t.Kind() == reflect.Struct {
					inner, err := getTypeInfo(t)
					if err != nil {
						return nil, err
					}
					for _, finfo := range inner.fields {
						finfo.idx = append([]int{i}, finfo.idx...)
						addFieldInfo(tinfo, &finfo)
					}
					continue
				}
			}

			finfo := structFieldInfo(&f)
			addFieldInfo(tinfo, finfo)
		}
	}
	tinfoMap.Store(typ, tinfo)
	return tinfo, nil
}

func structFieldInfo(f *reflect.StructField) *fieldInfo {
	finfo := &fieldInfo{idx: f.Index}
	tag := f.Tag.Get("plist")
	tokens := strings.Split(tag, ",")
	tag = tokens[0]
	for _, flag := range tokens[1:] {
		if flag == "omitempty" {
			finfo.omitEmpty = true
		}
	}
	if tag == "" {
		finfo.name = f.Name
	} else {
		finfo.name = tag
	}
	return finfo
}

// addFieldInfo adds newf unless a shallower field of the same name
// already exists; deeper same-name fields are dropped, matching Go's
// own rules for embedded field resolution.
func addFieldInfo(tinfo *typeInfo, newf *fieldInfo) {
	var conflicts []int
	for i := range tinfo.fields {
		if newf.name == tinfo.fields[i].name {
			conflicts = append(conflicts, i)
		}
	}
	if conflicts == nil {
		tinfo.fields = append(tinfo.fields, *newf)
		return
	}
	for _, i := range conflicts {
		if len(tinfo.fields[i].idx) < len(newf.idx) {
			return
		}
	}
	for c := len(conflicts) - 1; c >= 0; c-- {
		i := conflicts[c]
		copy(tinfo.fields[i:], tinfo.fields[i+1:])
		tinfo.fields = tinfo.fields[:len(tinfo.fields)-1]
	}
	tinfo.fields = append(tinfo.fields, *newf)
}

// value returns v's field for finfo, allocating intermediate pointers
// as needed.
func (finfo *fieldInfo) value(v reflect.Value) reflect.Value {
	for i, x := range finfo.idx {
		if i > 0 {
			t := v.Type()
			if t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct {
				if v.IsNil() {
					v.Set(reflect.New(v.Type().Elem()))
				}
				v = v.Elem()
			}
		}
		v = v.Field(x)
	}
	return v
}
