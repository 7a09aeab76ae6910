package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in   string
		want DataType
	}{
		{"BOOLEAN", DataTypeBoolean},
		{"INT", DataTypeInt},
		{"LONG", DataTypeLong},
		{"DOUBLE", DataTypeDouble},
		{"STRING", DataTypeString},
		{"BIG_STRING", DataTypeBigString},
		{"TIMESTAMP", DataTypeTimestamp},
		{"DECIMAL", DataTypeString},
		{"", DataTypeString},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDataType(tt.in))
		})
	}
}

func TestClipValidate(t *testing.T) {
	clip := &Clip{
		TrackID:   "track-1",
		TimeRange: TimeRange{Start: 10, End: 20},
	}
	require.NoError(t, clip.Validate())

	clip.TimeRange = TimeRange{Start: 20, End: 20}
	require.Error(t, clip.Validate())

	clip.TimeRange = TimeRange{Start: -1, End: 20}
	require.Error(t, clip.Validate())

	clip.TimeRange = TimeRange{Start: 0, End: 1}
	clip.Progress = 120
	require.Error(t, clip.Validate())
}

func TestClipCloneIsDeep(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	clip := &Clip{
		ID:            "clip-1",
		TrackID:       "track-1",
		TimeRange:     TimeRange{Start: 0, End: 3600},
		AbsoluteStart: &start,
		AbsoluteEnd:   &end,
	}

	clone := clip.Clone()
	require.NotSame(t, clip, clone)
	require.NotSame(t, clip.AbsoluteStart, clone.AbsoluteStart)

	*clone.AbsoluteStart = clone.AbsoluteStart.Add(time.Minute)
	assert.Equal(t, start, *clip.AbsoluteStart)
}

func TestCompatible(t *testing.T) {
	long := &Track{Unit: "count", DataType: DataTypeLong}
	alsoLong := &Track{Unit: "count", DataType: DataTypeLong}
	percent := &Track{Unit: "%", DataType: DataTypeLong}
	double := &Track{Unit: "count", DataType: DataTypeDouble}

	assert.True(t, Compatible(long, alsoLong))
	assert.False(t, Compatible(long, percent))
	assert.False(t, Compatible(long, double))
	assert.False(t, Compatible(nil, long))
	assert.False(t, Compatible(long, nil))
}

func TestTimeRangeDuration(t *testing.T) {
	assert.Equal(t, 100.0, TimeRange{Start: 100, End: 200}.Duration())
}
