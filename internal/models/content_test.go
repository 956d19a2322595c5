package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolFor(t *testing.T) {
	tests := []struct {
		name     string
		likes    int
		dislikes int
		want     Pool
	}{
		{"no ratings", 0, 0, PoolRegular},
		{"too few ratings", 4, 0, PoolRegular},
		{"strong but few likes", 8, 1, PoolAccepted},
		{"highly liked", 10, 2, PoolHighlyLiked},
		{"accepted", 6, 4, PoolAccepted},
		{"disliked", 2, 5, PoolDisliked},
		{"split evenly", 5, 5, PoolRegular},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PoolFor(tt.likes, tt.dislikes))
		})
	}
}

func TestUpdatePoolKeepsPremium(t *testing.T) {
	c := &Content{Pool: PoolPremium, Stats: ContentStats{Likes: 1, Dislikes: 20}}
	c.UpdatePool()
	assert.Equal(t, PoolPremium, c.Pool)

	c = &Content{Pool: PoolRegular, Stats: ContentStats{Likes: 12}}
	c.UpdatePool()
	assert.Equal(t, PoolHighlyLiked, c.Pool)
}

func TestTierDailyLimit(t *testing.T) {
	assert.Equal(t, 5, TierFree.DailyLimit())
	assert.Equal(t, 10, TierBasic.DailyLimit())
	assert.Equal(t, 20, TierPremium.DailyLimit())
	assert.Equal(t, 100, TierEnterprise.DailyLimit())
	assert.Equal(t, 5, Tier("bogus").DailyLimit())
}

func TestRoleIsStaff(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleModerator.IsStaff())
	assert.True(t, RoleContentCreator.IsStaff())
	assert.False(t, RoleUser.IsStaff())
	assert.False(t, Role("root").Valid())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short", Summarize("short"))
	long := strings.Repeat("é", 130)
	assert.Equal(t, strings.Repeat("é", 120)+"...", Summarize(long))
}
