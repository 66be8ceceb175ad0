package types

import (
	"fmt"
	"strings"
)

// Access is the REGSAM bitset requested when a key is opened or created.
type Access uint32

const (
	KEY_QUERY_VALUE        Access = 0x0001
	KEY_SET_VALUE          Access = 0x0002
	KEY_CREATE_SUB_KEY     Access = 0x0004
	KEY_ENUMERATE_SUB_KEYS Access = 0x0008
	KEY_NOTIFY             Access = 0x0010
	KEY_CREATE_LINK        Access = 0x0020
	KEY_WOW64_64KEY        Access = 0x0100
	KEY_WOW64_32KEY        Access = 0x0200
	KEY_WOW64_RES          Access = 0x0300

	DELETE                Access = 0x00010000
	READ_CONTROL          Access = 0x00020000
	STANDARD_RIGHTS_READ  Access = READ_CONTROL
	STANDARD_RIGHTS_WRITE Access = READ_CONTROL

	KEY_READ       Access = 0x20019
	KEY_WRITE      Access = 0x20006
	KEY_EXECUTE    Access = 0x20019
	KEY_ALL_ACCESS Access = 0xF003F
)

// writeMask is every right that lets a handle change the tree.
const writeMask = KEY_SET_VALUE | KEY_CREATE_SUB_KEY | KEY_CREATE_LINK | DELETE

// Has reports whether every bit of mask is granted.
func (a Access) Has(mask Access) bool { return a&mask == mask }

// Writes reports whether a requests any mutating right.
func (a Access) Writes() bool { return a&writeMask != 0 }

var accessNames = []struct {
	bit  Access
	name string
}{
	{KEY_QUERY_VALUE, "QUERY_VALUE"},
	{KEY_SET_VALUE, "SET_VALUE"},
	{KEY_CREATE_SUB_KEY, "CREATE_SUB_KEY"},
	{KEY_ENUMERATE_SUB_KEYS, "ENUMERATE_SUB_KEYS"},
	{KEY_NOTIFY, "NOTIFY"},
	{KEY_CREATE_LINK, "CREATE_LINK"},
	{KEY_WOW64_64KEY, "WOW64_64KEY"},
	{KEY_WOW64_32KEY, "WOW64_32KEY"},
	{DELETE, "DELETE"},
	{READ_CONTROL, "READ_CONTROL"},
}

func (a Access) String() string {
	switch a {
	case KEY_ALL_ACCESS:
		return "KEY_ALL_ACCESS"
	case KEY_READ:
		return "KEY_READ"
	case KEY_WRITE:
		return "KEY_WRITE"
	case 0:
		return "0"
	}
	var parts []string
	rest := a
	for _, n := range accessNames {
		if a&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// -----------------------------------------------------------------------------
// Predefined roots
// -----------------------------------------------------------------------------

// RootKey identifies one of the predefined registry roots. The values are the
// pseudo-handle constants from winreg.h.
type RootKey uint32

const (
	HKEY_CLASSES_ROOT                RootKey = 0x80000000
	HKEY_CURRENT_USER                RootKey = 0x80000001
	HKEY_LOCAL_MACHINE               RootKey = 0x80000002
	HKEY_USERS                       RootKey = 0x80000003
	HKEY_PERFORMANCE_DATA            RootKey = 0x80000004
	HKEY_CURRENT_CONFIG              RootKey = 0x80000005
	HKEY_DYN_DATA                    RootKey = 0x80000006
	HKEY_CURRENT_USER_LOCAL_SETTINGS RootKey = 0x80000007
	HKEY_PERFORMANCE_TEXT            RootKey = 0x80000050
	HKEY_PERFORMANCE_NLSTEXT         RootKey = 0x80000060
)

var rootNames = []struct {
	root  RootKey
	long  string
	short string
}{
	{HKEY_CLASSES_ROOT, "HKEY_CLASSES_ROOT", "HKCR"},
	{HKEY_CURRENT_USER, "HKEY_CURRENT_USER", "HKCU"},
	{HKEY_LOCAL_MACHINE, "HKEY_LOCAL_MACHINE", "HKLM"},
	{HKEY_USERS, "HKEY_USERS", "HKU"},
	{HKEY_PERFORMANCE_DATA, "HKEY_PERFORMANCE_DATA", ""},
	{HKEY_CURRENT_CONFIG, "HKEY_CURRENT_CONFIG", "HKCC"},
	{HKEY_DYN_DATA, "HKEY_DYN_DATA", ""},
	{HKEY_CURRENT_USER_LOCAL_SETTINGS, "HKEY_CURRENT_USER_LOCAL_SETTINGS", ""},
	{HKEY_PERFORMANCE_TEXT, "HKEY_PERFORMANCE_TEXT", ""},
	{HKEY_PERFORMANCE_NLSTEXT, "HKEY_PERFORMANCE_NLSTEXT", ""},
}

// Roots lists every predefined root in declaration order.
func Roots() []RootKey {
	out := make([]RootKey, len(rootNames))
	for i, n := range rootNames {
		out[i] = n.root
	}
	return out
}

func (r RootKey) String() string {
	for _, n := range rootNames {
		if n.root == r {
			return n.long
		}
	}
	return fmt.Sprintf("RootKey(0x%08x)", uint32(r))
}

// Short returns the common abbreviation (HKLM, HKCU, ...) or the long name
// when there is none.
func (r RootKey) Short() string {
	for _, n := range rootNames {
		if n.root == r {
			if n.short != "" {
				return n.short
			}
			return n.long
		}
	}
	return r.String()
}

// Valid reports whether r is a known predefined root.
func (r RootKey) Valid() bool {
	for _, n := range rootNames {
		if n.root == r {
			return true
		}
	}
	return false
}

// Performance reports whether r is one of the read-only performance roots.
func (r RootKey) Performance() bool {
	return r == HKEY_PERFORMANCE_DATA || r == HKEY_PERFORMANCE_TEXT || r == HKEY_PERFORMANCE_NLSTEXT
}

// ParseRootKey resolves a long or short root name, case-insensitively.
func ParseRootKey(s string) (RootKey, bool) {
	for _, n := range rootNames {
		if strings.EqualFold(s, n.long) || (n.short != "" && strings.EqualFold(s, n.short)) {
			return n.root, true
		}
	}
	return 0, false
}

// SplitRootPath splits "HKLM\Software\Vendor" into the root and the
// remaining relative path.
func SplitRootPath(full string) (RootKey, string, bool) {
	head, rest, _ := strings.Cut(full, `\`)
	root, ok := ParseRootKey(head)
	if !ok {
		return 0, "", false
	}
	return root, rest, true
}
