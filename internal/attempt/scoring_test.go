package attempt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeXP(t *testing.T) {
	cases := []struct {
		name    string
		correct int
		elapsed time.Duration
		want    int
	}{
		{"nothing correct", 0, 0, 0},
		{"nothing correct ignores bonus", 0, 10 * time.Second, 0},
		{"instant", 5, 0, 98},
		{"past the bonus window", 3, 250 * time.Second, 30},
		{"partial bonus", 2, 60 * time.Second, 56},
		{"sub-second is floored", 1, 4999 * time.Millisecond, 57},
		{"exactly four minutes", 4, 240 * time.Second, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeXP(tc.correct, tc.elapsed))
		})
	}
}
