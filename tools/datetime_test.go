package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeTool(t *testing.T) {
	tool := &DateTimeTool{now: func() time.Time {
		return time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC)
	}}

	out, err := tool.Call(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Current time in UTC: Fri, 14 Mar 2025 18:30:00 UTC", out)

	out, err = tool.Call(context.Background(), "Not/AZone")
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown time zone")
}
