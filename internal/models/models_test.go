package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskUpdateDistinguishesOmittedFromNull(t *testing.T) {
	var u TaskUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","sprintId":null}`), &u))

	require.NotNil(t, u.Title)
	assert.Equal(t, "x", *u.Title)
	assert.True(t, u.SprintID.IsSet())
	assert.True(t, u.SprintID.IsNull())
	assert.Nil(t, u.SprintID.Ptr())
	assert.False(t, u.AssignedTo.IsSet())
	assert.False(t, u.GitHubPR.IsSet())
}

func TestOptionalValue(t *testing.T) {
	var u TaskUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"sprintId":"s1","githubPR":{"number":5,"status":"open"}}`), &u))

	require.NotNil(t, u.SprintID.Ptr())
	assert.Equal(t, "s1", *u.SprintID.Ptr())
	assert.False(t, u.SprintID.IsNull())
	require.NotNil(t, u.GitHubPR.Ptr())
	assert.Equal(t, 5, u.GitHubPR.Ptr().Number)

	assert.True(t, Some(3).IsSet())
	assert.True(t, Null[int]().IsNull())
	var zero Optional[int]
	assert.False(t, zero.IsSet())
	assert.Nil(t, zero.Ptr())
}

func TestOptionalRejectsBadValue(t *testing.T) {
	var o Optional[int]
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &o))
}

func TestSuggestedTaskStatus(t *testing.T) {
	cases := []struct {
		status PRStatus
		want   TaskStatus
	}{
		{PRStatusOpen, TaskStatusInProgress},
		{PRStatusMerged, TaskStatusCompleted},
		{PRStatusClosed, TaskStatusBacklog},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.status.SuggestedTaskStatus())
		})
	}
}

func TestStatusValidation(t *testing.T) {
	assert.True(t, TaskStatusInProgress.Valid())
	assert.False(t, TaskStatus("done").Valid())
	assert.True(t, SprintStatusPlanning.Valid())
	assert.False(t, SprintStatus("").Valid())
	assert.True(t, RoleQA.Valid())
	assert.False(t, UserRole("boss").Valid())
	assert.False(t, PRStatus("draft").Valid())
	assert.Equal(t, "Merged", PRStatusMerged.Label())
	assert.Equal(t, "bg-gray-100 text-gray-800", PRStatus("draft").Color())
}
