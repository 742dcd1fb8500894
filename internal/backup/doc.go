// Package backup creates and restores zip archives of single save
// containers.
//
// Every archive holds the container's raw data and meta bytes exactly as
// they are stored on disk, plus a manifest with SHA256 hashes used to verify
// the entries on extraction. Archives live in one flat directory and are
// named
//
//	backup.<platform>.<NN>.<yyyyMMddHHmmssfff>.<version>.zip
//
// where NN is the two digit meta index and version the base game version,
// so a directory listing sorts per container and by age.
//
// # Creating Archives
//
//	mgr := backup.NewManager(backup.WithBackupDir(dir))
//	a, err := mgr.Create(backup.Content{
//	    Platform:  "steam",
//	    MetaIndex: 2,
//	    GameVer:   4153,
//	    Data:      data,
//	    Meta:      meta,
//	})
//
// # Retention
//
// The manager only stores the configured retention count; evicting the
// oldest archives of a container is done by the caller with [Manager.Remove]
// once it knows the container's current list.
//
// # Error Handling
//
//   - [ErrNoBackupsFound]: no archive exists for the container
//   - [ErrBackupCorrupted]: an entry is missing or fails its hash check
//   - [ErrInvalidName]: a file name does not follow the archive naming scheme
package backup
