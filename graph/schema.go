package graph

import (
	"fmt"
	"reflect"
)

// Reducer defines how a state value should be updated.
// It takes the current value and the new value, and returns the merged value.
type Reducer func(current, new any) (any, error)

// Common Reducers

// OverwriteReducer replaces the old value with the new one.
func OverwriteReducer(_, new any) (any, error) {
	return new, nil
}

// AppendReducer appends the new value to the current slice.
// It supports appending a slice to a slice, or a single element to a slice.
// The current slice is never modified in place.
func AppendReducer(current, new any) (any, error) {
	if new == nil {
		return current, nil
	}
	newVal := reflect.ValueOf(new)

	if current == nil {
		if newVal.Kind() == reflect.Slice {
			return new, nil
		}
		slice := reflect.MakeSlice(reflect.SliceOf(newVal.Type()), 0, 1)
		return reflect.Append(slice, newVal).Interface(), nil
	}

	currVal := reflect.ValueOf(current)
	if currVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("current value is not a slice")
	}

	if newVal.Kind() == reflect.Slice {
		if currVal.Type().Elem() != newVal.Type().Elem() {
			// Types don't match, convert both to []any
			result := make([]any, 0, currVal.Len()+newVal.Len())
			for i := range currVal.Len() {
				result = append(result, currVal.Index(i).Interface())
			}
			for i := range newVal.Len() {
				result = append(result, newVal.Index(i).Interface())
			}
			return result, nil
		}
		out := reflect.MakeSlice(currVal.Type(), 0, currVal.Len()+newVal.Len())
		out = reflect.AppendSlice(out, currVal)
		return reflect.AppendSlice(out, newVal).Interface(), nil
	}

	elemType := currVal.Type().Elem()
	if !newVal.Type().AssignableTo(elemType) {
		result := make([]any, 0, currVal.Len()+1)
		for i := range currVal.Len() {
			result = append(result, currVal.Index(i).Interface())
		}
		return append(result, new), nil
	}
	out := reflect.MakeSlice(currVal.Type(), 0, currVal.Len()+1)
	out = reflect.AppendSlice(out, currVal)
	return reflect.Append(out, newVal).Interface(), nil
}

// ConcatReducer appends strings: "ab" + "c" = "abc".
func ConcatReducer(current, new any) (any, error) {
	s, ok := new.(string)
	if !ok {
		return nil, fmt.Errorf("new value is %T, not string", new)
	}
	if current == nil {
		return s, nil
	}
	c, ok := current.(string)
	if !ok {
		return nil, fmt.Errorf("current value is %T, not string", current)
	}
	return c + s, nil
}
