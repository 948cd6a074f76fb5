package repositories

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
)

// ErrUnexpectedShape is returned when a backend response does not match the
// contract the caller expects.
var ErrUnexpectedShape = errors.New("unexpected response shape")

var validate = validator.New()

// decodeList decodes a JSON array whose every element carries the required
// paths.
func decodeList[T any](body []byte, required ...string) ([]T, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrUnexpectedShape)
	}
	res := gjson.ParseBytes(body)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrUnexpectedShape, res.Type)
	}

	var shapeErr error
	res.ForEach(func(key, item gjson.Result) bool {
		if err := checkPaths(item, required); err != nil {
			shapeErr = fmt.Errorf("element %d: %w", key.Int(), err)
			return false
		}
		return true
	})
	if shapeErr != nil {
		return nil, shapeErr
	}

	out := make([]T, 0, len(res.Array()))
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	for i := range out {
		if err := validate.Struct(&out[i]); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrUnexpectedShape, i, err)
		}
	}
	return out, nil
}

// decodeOne decodes a single object. A one-element array, as returned by
// inserts with return=representation, is accepted too.
func decodeOne[T any](body []byte, required ...string) (*T, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrUnexpectedShape)
	}
	res := gjson.ParseBytes(body)
	if res.IsArray() {
		items := res.Array()
		if len(items) != 1 {
			return nil, fmt.Errorf("%w: expected one row, got %d", ErrUnexpectedShape, len(items))
		}
		res = items[0]
	}
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrUnexpectedShape, res.Type)
	}
	if err := checkPaths(res, required); err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal([]byte(res.Raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if err := validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return &out, nil
}

func checkPaths(item gjson.Result, required []string) error {
	if !item.IsObject() {
		return fmt.Errorf("%w: expected object, got %s", ErrUnexpectedShape, item.Type)
	}
	for _, path := range required {
		if !item.Get(path).Exists() {
			return fmt.Errorf("%w: missing %q", ErrUnexpectedShape, path)
		}
	}
	return nil
}
