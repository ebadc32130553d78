package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		input    string
		expected Stage
		wantErr  bool
	}{
		{"", StageNone, false},
		{"none", StageNone, false},
		{"Override", StageOverrideBase, false},
		{"override_base", StageOverrideBase, false},
		{"before", StageBeforeBase, false},
		{" after ", StageAfterBase, false},
		{"during", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStage(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("BASE")
	require.NoError(t, err)
	assert.Equal(t, RoleBase, r)

	r, err = ParseRole("decorator")
	require.NoError(t, err)
	assert.Equal(t, RoleDecorator, r)

	_, err = ParseRole("sidecar")
	assert.Error(t, err)
}

func TestRoleStage_JSONRoundTrip(t *testing.T) {
	type entry struct {
		Role  Role  `json:"role"`
		Stage Stage `json:"stage"`
	}

	data, err := json.Marshal(entry{Role: RoleDecorator, Stage: StageAfterBase})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"decorator","stage":"after"}`, string(data))

	var decoded entry
	require.NoError(t, json.Unmarshal([]byte(`{"role":"base","stage":"none"}`), &decoded))
	assert.Equal(t, RoleBase, decoded.Role)
	assert.Equal(t, StageNone, decoded.Stage)

	assert.Error(t, json.Unmarshal([]byte(`{"role":"nope"}`), &decoded))
}

func TestDescriptor_RunsIn(t *testing.T) {
	base := Descriptor{Name: "b", Role: RoleBase, Stage: StageAfterBase}
	after := Descriptor{Name: "a", Role: RoleDecorator, Stage: StageAfterBase}
	passive := Descriptor{Name: "p", Role: RoleDecorator, Stage: StageNone}

	assert.True(t, base.IsBase())
	assert.False(t, base.RunsIn(StageAfterBase), "base never runs in a decorator stage")
	assert.True(t, after.RunsIn(StageAfterBase))
	assert.False(t, after.RunsIn(StageBeforeBase))
	assert.False(t, passive.RunsIn(StageNone))

	assert.Equal(t, "b(base)", base.String())
	assert.Equal(t, "a(decorator,after)", after.String())
}
