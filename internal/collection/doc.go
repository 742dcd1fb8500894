// Package collection finds save directories and classifies single save
// files.
//
// [Detect] and [DetectFile] look at the first bytes of one file and tell
// which platform wrote it and which meta index its name points at. This
// serves ad-hoc analysis of files copied out of their directory.
//
// A [Collection] walks a directory tree and opens a platform for every
// directory that holds a recognizable layout:
//
//	c := collection.New(collection.WithLogger(logger))
//	platforms, err := c.Analyze(ctx, root, platform.KindSteam)
//
// Each directory is checked against the registered kinds, preferred kind
// first. The first kind whose anchors exist and whose platform decodes at
// least one meta block wins.
package collection
