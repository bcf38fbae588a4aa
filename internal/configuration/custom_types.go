package configuration

import (
	"fmt"
	"github.com/markusressel/psu2go/internal/util"
	"github.com/mitchellh/mapstructure"
	"reflect"
	"strconv"
)

// Optional is a generic container for optional configuration values.
type Optional[T any] struct {
	// Value holds the actual as unmarshalled.
	Value T
	// Present indicates if the value was present in the configuration.
	Present bool
	// RuntimeOverride indicates if the value was overridden at runtime.
	RuntimeOverride bool
}

// Get returns the value if present or overridden, otherwise it returns the provided defaultValue.
func (o *Optional[T]) Get() T {
	return o.Value
}

// SetOverride sets the value and marks it as overridden at runtime.
func (o *Optional[T]) SetOverride(value T) {
	o.RuntimeOverride = true
	o.Value = value
}

// DefaultTrueBool is a boolean type that defaults to true if not present and not overridden.
type DefaultTrueBool struct {
	Optional[bool]
}

// Get returns the boolean value, defaulting to true if not present and not overridden.
func (b *DefaultTrueBool) Get() bool {
	if !b.Present && !b.RuntimeOverride {
		return true
	}
	return b.Value
}

// Decimal is a number that may be written with a decimal comma, e.g. "5,0"
type Decimal float64

// DecimalHookFunc returns a mapstructure decode hook function for Decimal.
func DecimalHookFunc() mapstructure.DecodeHookFuncType {
	decimalType := reflect.TypeOf(Decimal(0))

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {

		if t != decimalType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			value, err := util.ParseNumber(v)
			if err != nil {
				return nil, err
			}
			return Decimal(value), nil
		case int:
			return Decimal(v), nil
		case int64:
			return Decimal(v), nil
		case float32:
			return Decimal(v), nil
		case float64:
			return Decimal(v), nil
		case Decimal:
			return v, nil
		default:
			return nil, fmt.Errorf("cannot convert %T to a decimal number", data)
		}
	}
}

// DefaultTrueBoolHookFunc returns a mapstructure decode hook function for DefaultTrueBool.
func DefaultTrueBoolHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {

		// Only target our specific named type
		if t != reflect.TypeOf(DefaultTrueBool{}) {
			return data, nil
		}

		var val bool
		switch v := data.(type) {
		case bool:
			val = v
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return data, nil
			}
			val = parsed
		default:
			return data, nil
		}

		// Return the specific type with the inner Optional initialized
		return DefaultTrueBool{
			Optional: Optional[bool]{
				Value:   val,
				Present: true,
			},
		}, nil
	}
}
