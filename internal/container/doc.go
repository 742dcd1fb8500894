// Package container holds the in-memory record of one save slot or of the
// account data slot.
//
// A Container has a fixed identity (meta index and everything derived from
// it) and mutable state that the platform engine fills in: the decoded meta
// block as an immutable [meta.Extra] snapshot, the parsed JSON payload, file
// locations, backups and watcher flags. Decode failures are recorded on the
// container instead of being returned, so an incompatible slot can still be
// listed and inspected.
//
// # Payload Access
//
// Values are addressed by dotted paths with optional array indices:
//
//	units, ok := c.Int("PlayerStateData.Units")
//	err := c.SetValue("PlayerStateData.PersistentPlayerBases[0].Owner.UID", uid)
//
// Each key is matched against its plain name first and its obfuscated name
// second, so the same path works on saves written with either key set.
//
// # Observers
//
// Subscribers registered with [Container.OnBackupCreated],
// [Container.OnJSONChanged] and [Container.OnPropertiesChanged] run after the
// triggering mutation has been applied, on the goroutine that made it.
package container
