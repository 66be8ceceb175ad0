package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccess_Has(t *testing.T) {
	assert.True(t, KEY_READ.Has(KEY_QUERY_VALUE))
	assert.True(t, KEY_READ.Has(KEY_ENUMERATE_SUB_KEYS))
	assert.False(t, KEY_READ.Has(KEY_SET_VALUE))
	assert.True(t, KEY_ALL_ACCESS.Has(KEY_WRITE))
	assert.False(t, KEY_READ.Writes())
	assert.True(t, KEY_WRITE.Writes())
}

func TestAccess_String(t *testing.T) {
	assert.Equal(t, "KEY_READ", KEY_READ.String())
	assert.Equal(t, "QUERY_VALUE|SET_VALUE", (KEY_QUERY_VALUE | KEY_SET_VALUE).String())
}

func TestParseRootKey(t *testing.T) {
	tests := []struct {
		in   string
		want RootKey
		ok   bool
	}{
		{"HKEY_LOCAL_MACHINE", HKEY_LOCAL_MACHINE, true},
		{"hklm", HKEY_LOCAL_MACHINE, true},
		{"HKCU", HKEY_CURRENT_USER, true},
		{"HKEY_CURRENT_USER_LOCAL_SETTINGS", HKEY_CURRENT_USER_LOCAL_SETTINGS, true},
		{"HKEY_NOPE", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRootKey(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitRootPath(t *testing.T) {
	root, rest, ok := SplitRootPath(`HKCU\Software\Vendor`)
	assert.True(t, ok)
	assert.Equal(t, HKEY_CURRENT_USER, root)
	assert.Equal(t, `Software\Vendor`, rest)

	root, rest, ok = SplitRootPath(`HKEY_USERS`)
	assert.True(t, ok)
	assert.Equal(t, HKEY_USERS, root)
	assert.Empty(t, rest)

	_, _, ok = SplitRootPath(`Software\Vendor`)
	assert.False(t, ok)
}

func TestRootKey_Names(t *testing.T) {
	assert.Equal(t, "HKEY_CLASSES_ROOT", HKEY_CLASSES_ROOT.String())
	assert.Equal(t, "HKCR", HKEY_CLASSES_ROOT.Short())
	assert.Equal(t, "HKEY_DYN_DATA", HKEY_DYN_DATA.Short())
	assert.True(t, HKEY_PERFORMANCE_TEXT.Performance())
	assert.False(t, HKEY_USERS.Performance())
	assert.Len(t, Roots(), 10)
	assert.False(t, RootKey(1).Valid())
}
