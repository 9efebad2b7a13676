package ops

import (
	"fmt"
	"strconv"
)

// Params holds operation parameters as strings, parsed on demand.
type Params map[string]string

func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}

// StringOr returns the parameter or def if it is not set.
func (p Params) StringOr(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

func (p Params) Float(key string) (float64, error) {
	s, err := p.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalidParam, key, s, err)
	}
	return v, nil
}

func (p Params) Int(key string) (int, error) {
	s, err := p.String(key)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %w", ErrInvalidParam, key, s, err)
	}
	return v, nil
}

// PositiveInt is Int restricted to values > 0.
func (p Params) PositiveInt(key string) (int, error) {
	v, err := p.Int(key)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%w: %s=%d must be positive", ErrInvalidParam, key, v)
	}
	return v, nil
}
