package paedu

// Permission is a bitmask of account capabilities.
type Permission int

const (
	// PermNone has no capabilities (anonymous)
	PermNone Permission = 0x000
	// PermStudent is the baseline account capability
	PermStudent Permission = 0x001
	// PermParent marks parent/guardian accounts
	PermParent Permission = 0x002
	// PermTeacher marks teacher accounts
	PermTeacher Permission = 0x004
	// PermAdmin has every capability bit set
	PermAdmin Permission = 0xfff
)

// Has reports whether p contains every bit of perm.
func (p Permission) Has(perm Permission) bool {
	return p&perm == perm
}

// IsAdmin reports whether p carries the full admin bitmask.
func (p Permission) IsAdmin() bool {
	return p.Has(PermAdmin)
}

// Add returns p with the bits of perm set.
func (p Permission) Add(perm Permission) Permission {
	return p | perm
}

// Remove returns p with the bits of perm cleared.
func (p Permission) Remove(perm Permission) Permission {
	return p &^ perm
}

// DefaultPermissions resolves the bitmask assigned at registration: the full
// admin mask when email matches the configured administrator address,
// otherwise the student baseline.
func DefaultPermissions(email, adminEmail string) Permission {
	if adminEmail != "" && email == adminEmail {
		return PermAdmin
	}
	return PermStudent
}
