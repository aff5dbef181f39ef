package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStreakMilestone(t *testing.T) {
	assert.True(t, IsStreakMilestone(7))
	assert.True(t, IsStreakMilestone(100))
	assert.False(t, IsStreakMilestone(0))
	assert.False(t, IsStreakMilestone(8))
}
