package roles

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"owner", Owner, false},
		{" ADMIN ", Admin, false},
		{"member", Member, false},
		{"viewer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDepartmentRole_RejectsOwner(t *testing.T) {
	_, err := ParseDepartmentRole("owner")
	assert.Error(t, err)

	r, err := ParseDepartmentRole("admin")
	require.NoError(t, err)
	assert.Equal(t, Admin, r)
}

func TestDefaultPermissions(t *testing.T) {
	owner := DefaultPermissions(Owner)
	admin := DefaultPermissions(Admin)
	member := DefaultPermissions(Member)

	assert.True(t, owner.Equal(All))
	assert.True(t, owner.Has(DeleteTeam))

	assert.False(t, admin.Has(DeleteTeam))
	assert.True(t, admin.Has(AddMembers))
	assert.True(t, admin.Has(ChangeMemberRoles))
	assert.True(t, admin.Equal(All.Without(DeleteTeam)))

	assert.True(t, member.Has(ManageOwnProjects))
	assert.False(t, member.Has(AddMembers))
	assert.Equal(t, []string{"manage_own_projects"}, member.Strings())
}

func TestEffectivePermissions(t *testing.T) {
	stored := NewPermissionSet(AddMembers)
	assert.True(t, EffectivePermissions(Member, stored).Equal(stored))
	assert.True(t, EffectivePermissions(Member, PermissionSet{}).Equal(DefaultPermissions(Member)))
	assert.True(t, EffectivePermissions(Owner, PermissionSet{}).Equal(All))
}

func TestParsePermissionSet(t *testing.T) {
	set, err := ParsePermissionSet([]string{"add_members", "remove_members"})
	require.NoError(t, err)
	assert.True(t, set.Has(AddMembers))
	assert.True(t, set.Has(RemoveMembers))
	assert.False(t, set.Has(DeleteTeam))

	_, err = ParsePermissionSet([]string{"add_members", "launch_rockets"})
	assert.Error(t, err)

	empty, err := ParsePermissionSet(nil)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.NotNil(t, empty.Strings())
}

func TestPermissionSet_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewPermissionSet(RemoveMembers, AddMembers))
	require.NoError(t, err)
	assert.JSONEq(t, `["add_members","remove_members"]`, string(data))
}

func TestPermissionSet_MarshalJSON_EmptyAndEmbedded(t *testing.T) {
	data, err := json.Marshal(PermissionSet{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	data, err = json.Marshal(struct {
		Permissions PermissionSet `json:"permissions"`
	}{All.Without(DeleteTeam)})
	require.NoError(t, err)

	var decoded struct {
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, All.Without(DeleteTeam).Strings(), decoded.Permissions)
}
