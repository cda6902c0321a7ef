package utils

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexInt decodes integers the gateway sends as numbers, numeric strings or
// protobuf Long objects ({"low":..,"high":..}).
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = FlexInt(n)
	case '{':
		var long struct {
			Low  int64 `json:"low"`
			High int64 `json:"high"`
		}
		if err := json.Unmarshal(data, &long); err != nil {
			return err
		}
		*f = FlexInt(long.High<<32 | (long.Low & 0xffffffff))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		v, err := n.Int64()
		if err != nil {
			fv, ferr := n.Float64()
			if ferr != nil {
				return err
			}
			v = int64(fv)
		}
		*f = FlexInt(v)
	}
	return nil
}
