package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	latLngType   = reflect.TypeOf(nums.LatLng{})
	pointType    = reflect.TypeOf(nums.Point{})
)

// EvalObject assigns value to obj, object attributes are matched to
// struct fields by their hcl tag.
func EvalObject(objName string, obj any, value cty.Value) error {
	ref := reflect.ValueOf(obj)
	if ref.Kind() != reflect.Pointer || ref.IsNil() {
		return fmt.Errorf("%s should be a non-nil pointer", objName)
	}
	return EvalReflectValue(objName, ref, value)
}

func EvalReflectValue(refName string, ref reflect.Value, value cty.Value) error {
	if ref.Kind() == reflect.Pointer {
		if ref.IsNil() {
			ref.Set(reflect.New(ref.Type().Elem()))
		}
		ref = ref.Elem()
	}
	if value.IsNull() {
		return nil
	}
	if !value.IsWhollyKnown() {
		return fmt.Errorf("%s is not known", refName)
	}

	switch ref.Type() {
	case durationType:
		if value.Type() == cty.Number {
			// plain numbers are milliseconds
			var ms int64
			if err := gocty.FromCtyValue(value, &ms); err != nil {
				return fmt.Errorf("%s should be duration, %s", refName, err.Error())
			}
			ref.SetInt(int64(time.Duration(ms) * time.Millisecond))
			return nil
		}
		if value.Type() != cty.String {
			return fmt.Errorf("%s should be duration", refName)
		}
		d, err := time.ParseDuration(value.AsString())
		if err != nil {
			return fmt.Errorf("%s should be duration, %s", refName, err.Error())
		}
		ref.SetInt(int64(d))
		return nil
	case latLngType, pointType:
		pair, err := floatPair(refName, value)
		if err != nil {
			return err
		}
		if ref.Type() == latLngType {
			ref.Set(reflect.ValueOf(nums.LatLng{Lat: pair[0], Lng: pair[1]}))
		} else {
			ref.Set(reflect.ValueOf(nums.Point{X: pair[0], Y: pair[1]}))
		}
		return nil
	}

	switch ref.Kind() {
	case reflect.Struct:
		if !value.Type().IsObjectType() && !value.Type().IsMapType() {
			return fmt.Errorf("%s should be object as %s", refName, ref.Type().Name())
		}
		for k, v := range value.AsValueMap() {
			field, ok := fieldByName(ref, k)
			if !ok {
				return fmt.Errorf("%s field not found in %s", k, refName)
			}
			if err := EvalReflectValue(fmt.Sprintf("%s.%s", refName, k), field, v); err != nil {
				return err
			}
		}
	case reflect.String:
		v, err := convert.Convert(value, cty.String)
		if err != nil {
			return fmt.Errorf("%s should be string", refName)
		}
		ref.SetString(v.AsString())
	case reflect.Bool:
		var b bool
		v, err := convert.Convert(value, cty.Bool)
		if err == nil {
			err = gocty.FromCtyValue(v, &b)
		}
		if err != nil {
			return fmt.Errorf("%s should be bool", refName)
		}
		ref.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		v, err := convert.Convert(value, cty.Number)
		if err == nil {
			err = gocty.FromCtyValue(v, &i)
		}
		if err != nil {
			return fmt.Errorf("%s should be int", refName)
		}
		ref.SetInt(i)
	case reflect.Float32, reflect.Float64:
		var f float64
		v, err := convert.Convert(value, cty.Number)
		if err == nil {
			err = gocty.FromCtyValue(v, &f)
		}
		if err != nil {
			return fmt.Errorf("%s should be float", refName)
		}
		ref.SetFloat(f)
	case reflect.Slice:
		if !value.CanIterateElements() || value.Type().IsMapType() || value.Type().IsObjectType() {
			return fmt.Errorf("%s should be list", refName)
		}
		vs := value.AsValueSlice()
		slice := reflect.MakeSlice(ref.Type(), len(vs), len(vs))
		for i, elm := range vs {
			if err := EvalReflectValue(fmt.Sprintf("%s[%d]", refName, i), slice.Index(i), elm); err != nil {
				return err
			}
		}
		ref.Set(slice)
	case reflect.Map:
		if ref.Type().Key().Kind() != reflect.String {
			return fmt.Errorf("%s unsupported map key type %v", refName, ref.Type().Key())
		}
		if !value.Type().IsMapType() && !value.Type().IsObjectType() {
			return fmt.Errorf("%s should be map", refName)
		}
		maps := reflect.MakeMap(ref.Type())
		for k, v := range value.AsValueMap() {
			val := reflect.New(ref.Type().Elem()).Elem()
			if err := EvalReflectValue(fmt.Sprintf("%s[%q]", refName, k), val, v); err != nil {
				return err
			}
			maps.SetMapIndex(reflect.ValueOf(k), val)
		}
		ref.Set(maps)
	default:
		return fmt.Errorf("unsupported reflection %s type: %s", refName, ref.Kind())
	}
	return nil
}

func floatPair(refName string, value cty.Value) ([2]float64, error) {
	var ret [2]float64
	if !value.Type().IsTupleType() && !value.Type().IsListType() {
		return ret, fmt.Errorf("%s should be [number, number]", refName)
	}
	vs := value.AsValueSlice()
	if len(vs) != 2 {
		return ret, fmt.Errorf("%s should have 2 elements, got %d", refName, len(vs))
	}
	for i, v := range vs {
		n, err := convert.Convert(v, cty.Number)
		if err == nil {
			err = gocty.FromCtyValue(n, &ret[i])
		}
		if err != nil {
			return ret, fmt.Errorf("%s[%d] should be number", refName, i)
		}
	}
	return ret, nil
}

// fieldByName finds the field tagged `hcl:"name"`, falling back to a
// case-insensitive match of the field name.
func fieldByName(ref reflect.Value, name string) (reflect.Value, bool) {
	typ := ref.Type()
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("hcl")
		if tag == "-" {
			continue
		}
		if tag == name || (tag == "" && strings.EqualFold(f.Name, name)) {
			return ref.Field(i), true
		}
	}
	return reflect.Value{}, false
}
