package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// TimeFormat selects how message timestamps are rendered
type TimeFormat string

const (
	TimeFormatTime     TimeFormat = "time"
	TimeFormatDateTime TimeFormat = "datetime"
	TimeFormatRFC3339  TimeFormat = "rfc3339"
)

// DefaultTimeFormat is used when no format is configured
const DefaultTimeFormat = TimeFormatDateTime

// Validate checks if the TimeFormat is known
func (f TimeFormat) Validate() error {
	switch f {
	case TimeFormatTime, TimeFormatDateTime, TimeFormatRFC3339:
		return nil
	default:
		return goerr.New("unknown time format", goerr.V("format", string(f)))
	}
}

func (f TimeFormat) layout() string {
	switch f {
	case TimeFormatTime:
		return "15:04:05"
	case TimeFormatRFC3339:
		return time.RFC3339
	default:
		return "2006-01-02 15:04:05"
	}
}

// Formatter renders Slack timestamps for display
type Formatter struct {
	format   TimeFormat
	location *time.Location
}

// NewFormatter creates a Formatter. A nil location means UTC.
func NewFormatter(format TimeFormat, loc *time.Location) *Formatter {
	if format == "" {
		format = DefaultTimeFormat
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{format: format, location: loc}
}

// Format renders ts ("1234567890.000200"). Malformed input is returned unchanged.
func (x *Formatter) Format(ts string) string {
	t, err := ParseTS(ts)
	if err != nil {
		return ts
	}
	return t.In(x.location).Format(x.format.layout())
}

// ParseTS converts a Slack timestamp (decimal seconds as a string) to time.Time
func ParseTS(ts string) (time.Time, error) {
	sec, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid slack timestamp", goerr.V("ts", ts))
	}

	var nsec int64
	if frac != "" {
		// pad or truncate to nanosecond precision
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		n, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, goerr.Wrap(err, "invalid slack timestamp", goerr.V("ts", ts))
		}
		nsec = n
	}

	return time.Unix(s, nsec), nil
}
