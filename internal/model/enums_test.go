package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionImplementation(t *testing.T) {
	tests := []struct {
		from ImplementationStatus
		to   ImplementationStatus
		want bool
	}{
		{ImplNotStarted, ImplContacting, true},
		{ImplNotStarted, ImplCancelled, true},
		{ImplNotStarted, ImplInProgress, false},
		{ImplNotStarted, ImplCompleted, false},
		{ImplContacting, ImplInProgress, true},
		{ImplContacting, ImplCancelled, true},
		{ImplContacting, ImplCompleted, false},
		{ImplInProgress, ImplCompleted, true},
		{ImplInProgress, ImplDelayed, true},
		{ImplInProgress, ImplCancelled, true},
		{ImplInProgress, ImplNotStarted, false},
		{ImplDelayed, ImplInProgress, true},
		{ImplDelayed, ImplCompleted, true},
		{ImplDelayed, ImplCancelled, true},
		{ImplCompleted, ImplContacting, false},
		{ImplCompleted, ImplCancelled, false},
		{ImplCancelled, ImplContacting, true},
		{ImplCancelled, ImplInProgress, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionImplementation(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestNormalizeTeam(t *testing.T) {
	assert.Equal(t, TeamA, NormalizeTeam("team_a"))
	assert.Equal(t, TeamA, NormalizeTeam("甲班"))
	assert.Equal(t, TeamC, NormalizeTeam("丙班"))
	assert.Equal(t, TeamNone, NormalizeTeam("none"))
	// 未知输入原样返回，由过滤层自然查不到
	assert.Equal(t, Team("unknown"), NormalizeTeam("unknown"))
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, TypeSafety.Valid())
	assert.False(t, SuggestionType("video").Valid())
	assert.True(t, StatusApproved.Valid())
	assert.False(t, ReviewStatus("draft").Valid())
	assert.True(t, ImplDelayed.Valid())
	assert.False(t, ImplementationStatus("paused").Valid())
	assert.True(t, RoleShiftSupervisor.Valid())
	assert.False(t, UserRole("admin").Valid())
}
