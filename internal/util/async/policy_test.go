package async

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSaturationPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want SaturationPolicy
	}{
		{in: "Reject", want: Reject},
		{in: "block", want: Block},
		{in: "CallerRuns", want: CallerRuns},
		{in: "caller-runs", want: CallerRuns},
		{in: " CALLER_RUNS ", want: CallerRuns},
		{in: "drop-oldest", want: DropOldest},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSaturationPolicy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSaturationPolicy("discard")
	assert.Error(t, err)
}

func TestSaturationPolicy_Text(t *testing.T) {
	t.Parallel()

	text, err := DropOldest.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DropOldest", string(text))

	var p SaturationPolicy
	require.NoError(t, p.UnmarshalText([]byte("caller-runs")))
	assert.Equal(t, CallerRuns, p)

	_, err = SaturationPolicy(99).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "SaturationPolicy(99)", SaturationPolicy(99).String())
}
