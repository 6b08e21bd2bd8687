package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusPending, JobStatusGenerating, true},
		{JobStatusPending, JobStatusCompleted, true},
		{JobStatusPending, JobStatusFailed, true},
		{JobStatusGenerating, JobStatusCompleted, true},
		{JobStatusGenerating, JobStatusFailed, true},
		{JobStatusGenerating, JobStatusPending, false},
		{JobStatusCompleted, JobStatusFailed, false},
		{JobStatusCompleted, JobStatusGenerating, false},
		{JobStatusFailed, JobStatusGenerating, false},
		{JobStatusFailed, JobStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPredecessors(t *testing.T) {
	assert.Equal(t, []JobStatus{JobStatusPending}, Predecessors(JobStatusGenerating))
	assert.Equal(t, []JobStatus{JobStatusPending, JobStatusGenerating}, Predecessors(JobStatusCompleted))
	assert.Empty(t, Predecessors(JobStatusPending))
}

func TestCancelledMessage(t *testing.T) {
	assert.Equal(t, "cancelled", CancelledMessage(""))
	msg := CancelledMessage("stopped before article stage")
	assert.True(t, IsCancelledMessage(msg))
	assert.False(t, IsCancelledMessage("provider unavailable"))
}

func TestArticleInvariants(t *testing.T) {
	score := 7.5
	tests := []struct {
		name    string
		a       Article
		wantErr bool
	}{
		{"pending", Article{Status: JobStatusPending}, false},
		{"completed", Article{Status: JobStatusCompleted, Content: "x", Score: &score}, false},
		{"completed without payload", Article{Status: JobStatusCompleted}, true},
		{"failed", Article{Status: JobStatusFailed, ErrorMessage: "boom"}, false},
		{"failed without message", Article{Status: JobStatusFailed}, true},
		{"failed with payload", Article{Status: JobStatusFailed, ErrorMessage: "boom", Content: "x"}, true},
		{"generating with error", Article{Status: JobStatusGenerating, ErrorMessage: "stale"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.a.CheckInvariants()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUsage(t *testing.T) {
	u := NewUsage(120, 80).Add(NewUsage(10, 5))
	assert.Equal(t, Usage{PromptTokens: 130, CompletionTokens: 85, TotalTokens: 215}, u)
	assert.True(t, u.Consistent())
	assert.True(t, Usage{}.IsZero())
}

func TestCharCountCountsRunes(t *testing.T) {
	assert.Equal(t, 7, CharCount("Привет!"))
}
