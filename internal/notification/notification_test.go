package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"gritfulAPI/internal/logger"
)

func TestStringData(t *testing.T) {
	got := StringData(map[string]any{"challenge_id": "abc", "streak": 7, "done": true})
	assert.Equal(t, map[string]string{"challenge_id": "abc", "streak": "7", "done": "true"}, got)
}

func TestNewFCMServiceWithoutCredentials(t *testing.T) {
	_, err := NewFCMService(context.Background(), "", "", logger.Nop())
	assert.ErrorIs(t, err, ErrNoFCMCredentials)

	_, err = NewFCMService(context.Background(), "%%%not-base64", "", logger.Nop())
	assert.Error(t, err)

	_, err = NewFCMService(context.Background(), "", "/does/not/exist.json", logger.Nop())
	assert.Error(t, err)
}

func TestLogPushProvider(t *testing.T) {
	p := &LogPushProvider{Log: logger.Nop()}
	assert.NoError(t, p.SendPush(context.Background(), []DeviceToken{{Token: "t", Platform: "ios"}}, "hi", "there", nil))
}
