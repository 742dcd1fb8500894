package doctor

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/nmsio/internal/config"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/paths"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/pkg/fileutil"
)

// ConfigCheck validates the configuration file.
type ConfigCheck struct {
	path string
}

var _ Check = (*ConfigCheck)(nil)

// NewConfigCheck creates a check of the configuration file at path.
func NewConfigCheck(path string) *ConfigCheck {
	return &ConfigCheck{path: path}
}

// Name returns the unique identifier for this check.
func (c *ConfigCheck) Name() string { return "config-file" }

// Category returns the grouping for this check.
func (c *ConfigCheck) Category() string { return "config" }

// Run reads and validates the configuration file.
func (c *ConfigCheck) Run() *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.path},
	}

	data, err := fileutil.ReadFileWithLimit(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		result.Status = SeverityInfo
		result.Message = "no configuration file; defaults apply"
		result.FixHint = "nmsio config init"
		return result
	case err != nil:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot read configuration file: %v", err)
		return result
	}

	cfg := config.Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("configuration file is not valid YAML: %v", err)
		result.FixHint = "nmsio config init --force"
		return result
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		problems := make([]string, len(errs))
		for i, e := range errs {
			problems[i] = e.Error()
		}
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d configuration problem(s)", len(errs))
		result.Details["problems"] = problems
		result.FixHint = "nmsio config edit"
		return result
	}

	result.Status = SeverityPass
	result.Message = "configuration is valid"
	return result
}

// SaveRootCheck looks for the save roots of the PC platforms.
type SaveRootCheck struct {
	root func(string) string
}

var _ Check = (*SaveRootCheck)(nil)

// NewSaveRootCheck creates a save root check for this computer.
func NewSaveRootCheck() *SaveRootCheck {
	return &SaveRootCheck{root: paths.SaveRoot}
}

// Name returns the unique identifier for this check.
func (c *SaveRootCheck) Name() string { return "save-roots" }

// Category returns the grouping for this check.
func (c *SaveRootCheck) Category() string { return "saves" }

// Run checks which save roots exist.
func (c *SaveRootCheck) Run() *CheckResult {
	roots := make(map[string]any)
	var found []string
	for _, name := range paths.Platforms() {
		dir := c.root(name)
		exists := false
		if dir != "" {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				exists = true
				found = append(found, name)
			}
		}
		roots[name] = map[string]any{"path": dir, "exists": exists}
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"roots": roots},
	}
	if len(found) == 0 {
		result.Status = SeverityWarning
		result.Message = "no save root found on this computer"
		result.FixHint = "pass the save directory with --dir"
		return result
	}
	result.Status = SeverityPass
	result.Message = fmt.Sprintf("save roots found: %v", found)
	return result
}

// BackupDirectoryCheck verifies that backups can be written.
type BackupDirectoryCheck struct {
	PermissionFixer
	dir string
}

var (
	_ Check = (*BackupDirectoryCheck)(nil)
	_ Fixer = (*BackupDirectoryCheck)(nil)
)

// NewBackupDirectoryCheck creates a check of the backup directory dir.
func NewBackupDirectoryCheck(dir string) *BackupDirectoryCheck {
	return &BackupDirectoryCheck{dir: dir}
}

// Name returns the unique identifier for this check.
func (c *BackupDirectoryCheck) Name() string { return "backup-directory" }

// Category returns the grouping for this check.
func (c *BackupDirectoryCheck) Category() string { return "filesystem" }

// Run checks that the backup directory exists and is writable.
func (c *BackupDirectoryCheck) Run() *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details:  map[string]any{"path": c.dir},
	}
	issue := c.inspect()
	if issue == nil {
		c.setIssues(nil)
		result.Status = SeverityPass
		result.Message = "backup directory is writable"
		return result
	}
	c.setIssues([]pathIssue{*issue})
	result.Status = issue.Severity
	result.Message = issue.Problem
	result.Fixable = issue.Fixable
	result.FixHint = issue.FixHint
	return result
}

func (c *BackupDirectoryCheck) inspect() *pathIssue {
	info, err := os.Stat(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return &pathIssue{
			Path:     c.dir,
			Type:     issueMissingDir,
			Problem:  "backup directory does not exist yet",
			Severity: SeverityInfo,
			Fixable:  true,
			FixHint:  "nmsio doctor --fix, or run any backup",
		}
	}
	if err != nil {
		return &pathIssue{
			Path:     c.dir,
			Type:     issueDir,
			Problem:  fmt.Sprintf("cannot stat backup directory: %v", err),
			Severity: SeverityError,
		}
	}
	if !info.IsDir() {
		return &pathIssue{
			Path:     c.dir,
			Type:     issueDir,
			Problem:  "backup directory is a file",
			Severity: SeverityError,
			FixHint:  "set settings.backup_directory to a directory",
		}
	}
	tmp, err := os.CreateTemp(c.dir, ".nmsio-write-test-*")
	if err != nil {
		return &pathIssue{
			Path:        c.dir,
			Type:        issueDir,
			Problem:     "backup directory is not writable",
			Severity:    SeverityError,
			Permissions: formatPermissions(info.Mode()),
			Fixable:     runtime.GOOS != "windows",
			FixHint:     fmt.Sprintf("chmod %04o %s", secureDirPerm, c.dir),
		}
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())
	return nil
}

// SaveDirectoryCheck reports containers that cannot be read and save
// files that cannot be written.
type SaveDirectoryCheck struct {
	PermissionFixer
	p *platform.Platform
}

var (
	_ Check = (*SaveDirectoryCheck)(nil)
	_ Fixer = (*SaveDirectoryCheck)(nil)
)

// NewSaveDirectoryCheck creates a check of an opened save directory.
func NewSaveDirectoryCheck(p *platform.Platform) *SaveDirectoryCheck {
	return &SaveDirectoryCheck{p: p}
}

// Name returns the unique identifier for this check.
func (c *SaveDirectoryCheck) Name() string { return "save-directory" }

// Category returns the grouping for this check.
func (c *SaveDirectoryCheck) Category() string { return "saves" }

// Run inspects every container of the directory.
func (c *SaveDirectoryCheck) Run() *CheckResult {
	cs := c.p.Containers()
	if a := c.p.Account(); a != nil {
		cs = append(cs, a)
	}

	var saves int
	incompatible := make(map[string]any)
	var issues []pathIssue
	for _, ct := range cs {
		if !ct.Exists() {
			continue
		}
		if ct.IsSave() {
			saves++
		}
		if !ct.IsCompatible() {
			incompatible[ct.Identifier()] = ct.IncompatibilityTag()
		}
		for _, f := range []string{ct.DataFile(), ct.MetaFile()} {
			if issue := checkWritable(f); issue != nil {
				issues = append(issues, *issue)
			}
		}
	}
	issues = dedupIssues(issues)
	c.setIssues(issues)

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Details: map[string]any{
			"platform": c.p.Kind().String(),
			"root":     c.p.Root(),
			"saves":    saves,
		},
	}
	if len(incompatible) > 0 {
		result.Details["incompatible"] = incompatible
	}
	if len(issues) > 0 {
		files := make([]string, len(issues))
		for i, is := range issues {
			files[i] = is.Path
		}
		result.Details["read_only"] = files
	}

	switch {
	case len(issues) > 0:
		result.Status = SeverityError
		result.Message = fmt.Sprintf("%d save file(s) cannot be written", len(issues))
		result.Fixable = c.CanFix()
		result.FixHint = "nmsio doctor --fix"
	case len(incompatible) > 0:
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%d container(s) cannot be read", len(incompatible))
		result.FixHint = "restore them with nmsio backup restore"
	case saves == 0:
		result.Status = SeverityWarning
		result.Message = "no saves in " + c.p.Root()
	default:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%d save(s) readable", saves)
	}
	return result
}

// checkWritable reports a save file the owner cannot write. Missing files
// are left to the incompatibility report.
func checkWritable(path string) *pathIssue {
	if path == "" || runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if info.Mode().Perm()&0o200 != 0 {
		return nil
	}
	return &pathIssue{
		Path:        path,
		Type:        issueFile,
		Problem:     "file is read-only",
		Severity:    SeverityError,
		Permissions: formatPermissions(info.Mode()),
		Fixable:     true,
		FixHint:     fmt.Sprintf("chmod %04o %s", secureFilePerm, path),
	}
}

// formatPermissions renders a mode as octal, e.g. "0644".
func formatPermissions(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}

// dedupIssues drops repeated paths, keeping the first issue of each.
func dedupIssues(issues []pathIssue) []pathIssue {
	seen := make(map[string]bool, len(issues))
	return slices.DeleteFunc(issues, func(is pathIssue) bool {
		key := filepath.Clean(is.Path)
		if seen[key] {
			return true
		}
		seen[key] = true
		return false
	})
}
