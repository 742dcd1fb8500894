package container

import (
	"slices"
	"sync"

	"github.com/thoreinstein/nmsio/internal/backup"
)

// Property names passed to PropertiesChangedFunc subscribers.
const (
	PropertyExtra         = "Extra"
	PropertyCompatibility = "IsCompatible"
	PropertySynced        = "IsSynced"
	PropertyExists        = "Exists"
	PropertyLastWriteTime = "LastWriteTime"
	PropertyBackups       = "Backups"
	PropertyWatcherChange = "HasWatcherChange"
)

// BackupCreatedFunc is notified after a backup archive was added.
type BackupCreatedFunc func(c *Container, a backup.Archive)

// JSONChangedFunc is notified after the payload was replaced or edited.
type JSONChangedFunc func(c *Container)

// PropertiesChangedFunc is notified after a named property changed.
type PropertiesChangedFunc func(c *Container, property string)

type observers struct {
	mu            sync.Mutex
	backupCreated []BackupCreatedFunc
	jsonChanged   []JSONChangedFunc
	propsChanged  []PropertiesChangedFunc
}

// OnBackupCreated subscribes fn to backup creation.
func (c *Container) OnBackupCreated(fn BackupCreatedFunc) {
	c.observers.mu.Lock()
	c.observers.backupCreated = append(c.observers.backupCreated, fn)
	c.observers.mu.Unlock()
}

// OnJSONChanged subscribes fn to payload changes.
func (c *Container) OnJSONChanged(fn JSONChangedFunc) {
	c.observers.mu.Lock()
	c.observers.jsonChanged = append(c.observers.jsonChanged, fn)
	c.observers.mu.Unlock()
}

// OnPropertiesChanged subscribes fn to property changes.
func (c *Container) OnPropertiesChanged(fn PropertiesChangedFunc) {
	c.observers.mu.Lock()
	c.observers.propsChanged = append(c.observers.propsChanged, fn)
	c.observers.mu.Unlock()
}

func (c *Container) notifyBackupCreated(a backup.Archive) {
	c.observers.mu.Lock()
	subs := slices.Clone(c.observers.backupCreated)
	c.observers.mu.Unlock()
	for _, fn := range subs {
		fn(c, a)
	}
}

func (c *Container) notifyJSONChanged() {
	c.observers.mu.Lock()
	subs := slices.Clone(c.observers.jsonChanged)
	c.observers.mu.Unlock()
	for _, fn := range subs {
		fn(c)
	}
}

func (c *Container) notifyPropertyChanged(property string) {
	c.observers.mu.Lock()
	subs := slices.Clone(c.observers.propsChanged)
	c.observers.mu.Unlock()
	for _, fn := range subs {
		fn(c, property)
	}
}
