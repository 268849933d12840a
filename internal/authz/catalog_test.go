package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidCode(t *testing.T) {
	require.True(t, ValidCode("SALES.READ"))
	require.True(t, ValidCode("PO.VENDOR.READ"), "actions may contain dots")
	require.True(t, ValidCode("ADMIN.USER.MANAGE"))

	require.False(t, ValidCode("SALES"))
	require.False(t, ValidCode("SALES."))
	require.False(t, ValidCode(".READ"))
	require.False(t, ValidCode("SALES.FLY"))
	require.False(t, ValidCode("BOGUS.READ"))
	require.False(t, ValidCode(""))
}

func TestAllCodesCoverEveryService(t *testing.T) {
	codes := AllCodes()
	require.NotEmpty(t, codes)

	byService := make(map[string]int)
	for _, code := range codes {
		require.True(t, ValidCode(code), code)
		svc, _ := SplitCode(code)
		byService[svc]++
	}
	for _, svc := range Services() {
		require.Equal(t, len(ServiceActions[svc]), byService[svc], svc)
	}
}

func TestAllCodesSortedAndStable(t *testing.T) {
	require.Equal(t, AllCodes(), AllCodes())
	codes := AllCodes()
	for i := 1; i < len(codes); i++ {
		require.Less(t, codes[i-1], codes[i])
	}
}

func TestRolePresetsCodesAreValid(t *testing.T) {
	var owner *RolePreset
	for i := range RolePresets {
		preset := &RolePresets[i]
		for _, code := range preset.Codes {
			require.True(t, ValidCode(code), "%s grants unknown code %s", preset.Name, code)
		}
		if preset.Kind == RoleSuperuser {
			owner = preset
		}
	}
	require.NotNil(t, owner, "one preset must be the superuser role")
	require.Empty(t, owner.Codes, "superuser preset carries no explicit codes")
}
