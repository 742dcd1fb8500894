// Package platform is the engine that loads, writes and moves save
// containers of one save directory.
//
// A [Platform] owns the containers of a directory and drives a [Hooks]
// implementation that knows the on-disk layout of one storage platform.
// The hooks live in the subpackages steam, gog, microsoft, playstation and
// nswitch.
//
// # Loading
//
// The [LoadingStrategy] in [Settings] decides how much is decoded:
//
//   - [Empty]: nothing at construction; Load decodes the meta block
//   - [Hollow]: every meta block at construction, payloads never
//   - [Current]: Load parses the payload and unloads the previous one
//   - [Partial]: Load parses the payload and keeps it
//   - [Full]: every payload at construction
//
// Decode failures never surface as errors from Load. They are recorded on
// the container and reported through IncompatibilityTag.
//
// # File operations
//
// Copy, Move, Swap and Delete validate every argument before changing
// anything and return an error wrapping errors.ErrOperationAborted when a
// precondition fails. Backup archives the raw files; Restore loads an
// archive into its container for the next Write.
//
// # Detection
//
// A [Registry] maps kinds to hooks factories. [DetectLayout] checks a
// directory against the anchor files of one kind:
//
//	for _, r := range registry.Detect(dir, platform.KindSteam) {
//	    fmt.Printf("%s: %s\n", r.Kind, r.Status)
//	}
//
// # Thread Safety
//
// Platform methods are safe for concurrent use. Only one Platform may work
// on a directory at a time.
package platform
