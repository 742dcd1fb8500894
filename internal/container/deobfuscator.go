package container

// Deobfuscator maps between the obfuscated keys the game writes and stable
// key names.
type Deobfuscator interface {
	// Deobfuscate rewrites payload keys in place and returns the keys it
	// could not map.
	Deobfuscate(payload map[string]any, isAccount bool) map[string]struct{}
	// Obfuscate rewrites payload keys back to the form the game reads.
	Obfuscate(payload map[string]any, isAccount bool)
}

// IdentityMapper is the Deobfuscator used when no mapping is configured. It
// leaves payloads untouched and reports no unknown keys.
type IdentityMapper struct{}

// Deobfuscate implements Deobfuscator.
func (IdentityMapper) Deobfuscate(map[string]any, bool) map[string]struct{} { return nil }

// Obfuscate implements Deobfuscator.
func (IdentityMapper) Obfuscate(map[string]any, bool) {}
