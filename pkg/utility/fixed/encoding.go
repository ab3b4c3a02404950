package fixed

import (
	"database/sql/driver"
	"fmt"
)

func (p Point) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Point) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Scan implements sql.Scanner so tape rows can be read straight into a Point.
func (p *Point) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Zero
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	case int64:
		*p = FromInt64(v, 0)
	case float64:
		*p = FromFloat64(v)
	default:
		return fmt.Errorf("unsupported scan source %T", src)
	}
	return nil
}

func (p Point) Value() (driver.Value, error) {
	return p.String(), nil
}
