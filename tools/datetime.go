package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/tools"
)

var datetimeLogger = logrus.WithField("tool", "current_time")

// DateTimeTool tells the agent the current time, so it can reason about
// event dates on tickets.
type DateTimeTool struct {
	now func() time.Time
}

func NewDateTimeTool() *DateTimeTool {
	return &DateTimeTool{now: time.Now}
}

func (d *DateTimeTool) Name() string {
	return "current_time"
}

func (d *DateTimeTool) Description() string {
	return "This tool returns the current date and time. Input is an optional IANA time zone such as 'America/New_York'; defaults to UTC."
}

func (d *DateTimeTool) Call(ctx context.Context, input string) (string, error) {
	zone := strings.Trim(strings.TrimSpace(input), `"'`)
	if zone == "" || zone == "{}" {
		zone = "UTC"
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		datetimeLogger.WithField("zone", zone).Warn("Unknown time zone requested")
		return fmt.Sprintf("Unknown time zone %q. Use an IANA name such as 'Europe/London'.", zone), nil
	}

	now := d.now().In(loc)
	datetimeLogger.WithFields(logrus.Fields{"zone": zone}).Debug("Current time requested")
	return fmt.Sprintf("Current time in %s: %s", zone, now.Format(time.RFC1123)), nil
}

var _ tools.Tool = (*DateTimeTool)(nil)
