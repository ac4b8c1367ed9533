package jsonutil

import "encoding/json"

func MapToStruct(source map[string]any, target interface{}) error {
	data, err := json.Marshal(source)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, target)
}

func StructToMap(source interface{}) (map[string]any, error) {
	data, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}

	var target map[string]any
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, err
	}

	return target, nil
}

// DeepCopy clones an arbitrary JSON document via a marshal round-trip.
func DeepCopy(source map[string]any) (map[string]any, error) {
	return StructToMap(source)
}
