package logging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud").GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, New("info").Formatter)
}

func TestRequestIDInContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))

	entry := Entry(ctx, Discard())
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.NotContains(t, Entry(context.Background(), Discard()).Data, "request_id")
}
