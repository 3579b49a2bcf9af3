package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseID normalises an identifier that a backend may send either as a JSON
// number or as a numeric string.
func ParseID(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, fmt.Errorf("missing id")
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, fmt.Errorf("decode id: %w", err)
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.Atoi(s)
	if err == nil {
		return n, nil
	}
	// Numbers like 3.0 are still whole ids.
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("id %q is not an integer", s)
	}
	return int(f), nil
}
