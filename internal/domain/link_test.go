package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLink_IsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Link{}).IsExpired(now), "link without expires_at never expires")
	assert.False(t, (&Link{ExpiresAt: &future}).IsExpired(now))
	assert.True(t, (&Link{ExpiresAt: &past}).IsExpired(now))
}

func TestLink_RemainingLifetime(t *testing.T) {
	now := time.Now()
	defaultTTL := time.Hour

	noExpiry := &Link{}
	assert.Equal(t, defaultTTL, noExpiry.RemainingLifetime(now, defaultTTL))

	farAway := now.Add(48 * time.Hour)
	longLived := &Link{ExpiresAt: &farAway}
	assert.Equal(t, defaultTTL, longLived.RemainingLifetime(now, defaultTTL))

	soon := now.Add(10 * time.Minute)
	shortLived := &Link{ExpiresAt: &soon}
	assert.Equal(t, 10*time.Minute, shortLived.RemainingLifetime(now, defaultTTL))
}
