// Package permissions holds the process-wide permission registry and the
// resolution of a participant's effective permission values.
package permissions

// Descriptor is the registered metadata for one permission: its unique key,
// the default value and a validator for values assigned to it. Descriptors
// are immutable once registered.
type Descriptor struct {
	Key          string
	DefaultValue any
	Validate     func(value any) bool
}

// NewBool declares a boolean permission.
func NewBool(key string, defaultValue bool) Descriptor {
	return Descriptor{
		Key:          key,
		DefaultValue: defaultValue,
		Validate: func(value any) bool {
			_, ok := value.(bool)
			return ok
		},
	}
}

// NewInt declares an integer permission. JSON decoding yields float64, so
// integral floats are accepted as well.
func NewInt(key string, defaultValue int) Descriptor {
	return Descriptor{
		Key:          key,
		DefaultValue: defaultValue,
		Validate: func(value any) bool {
			switch v := value.(type) {
			case int:
				return true
			case int64:
				return true
			case float64:
				return v == float64(int64(v))
			default:
				return false
			}
		},
	}
}

// NewString declares a string permission.
func NewString(key string, defaultValue string) Descriptor {
	return Descriptor{
		Key:          key,
		DefaultValue: defaultValue,
		Validate: func(value any) bool {
			_, ok := value.(string)
			return ok
		},
	}
}
