package adapters

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// FlexFloat decodes a JSON number that sources emit as either a number or a
// numeric string ("2.41"). Empty and null decode to 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt decodes a JSON integer that sources emit as either a number or a
// numeric string (millisecond timestamps). Empty and null decode to 0.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = FlexInt(v)
	return nil
}

// FlexString decodes a JSON value that sources emit as either a string or a
// bare number (numeric event ids).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		var err error
		if unquoted, err = strconv.Unquote(s); err != nil {
			return err
		}
		*f = FlexString(unquoted)
		return nil
	}
	*f = FlexString(s)
	return nil
}

// startTimeFormats are the scheduled-time encodings seen across scraper
// outputs, most specific first.
var startTimeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseStartTime resolves a scraper start-time string into UTC. An empty
// string resolves to the zero time without error; such records can still be
// matched by external id.
func ParseStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range startTimeFormats {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
