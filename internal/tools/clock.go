package tools

import (
	"context"
	"strings"
	"time"

	"github.com/brightfieldai/researchcore/internal/toolhub"
)

// Clock answers current-time queries, branching on whether the query asks
// for local time, UTC, or a named time zone.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

// NewClock builds a Clock tool using the local time zone and wall clock.
func NewClock() *Clock {
	return &Clock{now: time.Now, loc: time.Local}
}

func (c *Clock) Description() string {
	return "Reports the current date and time, in local time, UTC, or a named time zone."
}

func (c *Clock) Capabilities() []string { return []string{"time", "get_time", "date"} }

func (c *Clock) Execute(ctx context.Context, input any) (toolhub.Result, error) {
	query, _ := input.(string)
	lower := strings.ToLower(strings.TrimSpace(query))

	switch {
	case strings.Contains(lower, "utc"):
		return c.utcResult(), nil
	case strings.Contains(lower, "timezone") || strings.Contains(lower, "time zone"):
		return c.timezoneResult(lower), nil
	default:
		return c.currentResult(), nil
	}
}

func (c *Clock) currentResult() toolhub.Result {
	now := c.now().In(c.loc)
	return toolhub.Result{
		Success: true,
		Result:  now.Format("2006-01-02 15:04:05 MST"),
		Meta: map[string]any{
			"current_time": now.Format(time.RFC3339),
			"timestamp":    now.Unix(),
			"timezone":     c.loc.String(),
			"formatted":    "The current time is " + now.Format("2006-01-02 15:04"),
		},
	}
}

func (c *Clock) utcResult() toolhub.Result {
	now := c.now().UTC()
	return toolhub.Result{
		Success: true,
		Result:  now.Format("2006-01-02 15:04:05 UTC"),
		Meta: map[string]any{
			"utc_time":  now.Format(time.RFC3339),
			"timestamp": now.Unix(),
			"timezone":  "UTC",
			"formatted": "The current UTC time is " + now.Format("2006-01-02 15:04"),
		},
	}
}

// timeZoneAliases maps a few common query terms to IANA zone names.
var timeZoneAliases = map[string]string{
	"shanghai":     "Asia/Shanghai",
	"beijing":      "Asia/Shanghai",
	"tokyo":        "Asia/Tokyo",
	"new york":     "America/New_York",
	"london":       "Europe/London",
	"los angeles":  "America/Los_Angeles",
}

func (c *Clock) timezoneResult(lower string) toolhub.Result {
	zoneName := c.loc.String()
	loc := c.loc
	for alias, iana := range timeZoneAliases {
		if strings.Contains(lower, alias) {
			if l, err := time.LoadLocation(iana); err == nil {
				loc = l
				zoneName = iana
			}
			break
		}
	}

	now := c.now().In(loc)
	return toolhub.Result{
		Success: true,
		Result:  now.Format("2006-01-02 15:04:05 MST"),
		Meta: map[string]any{
			"current_time": now.Format(time.RFC3339),
			"timestamp":    now.Unix(),
			"timezone":     zoneName,
			"formatted":    "The current time in " + zoneName + " is " + now.Format("2006-01-02 15:04"),
		},
	}
}
