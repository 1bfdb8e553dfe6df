package config

import "path/filepath"

// DirectoryList resolves instance paths relative to the application root.
type DirectoryList struct {
	Root string
}

func (d DirectoryList) path(rel ...string) string {
	return filepath.Join(append([]string{d.Root}, rel...)...)
}

func (d DirectoryList) Var() string           { return d.path("var") }
func (d DirectoryList) Log() string           { return d.path("var", "log") }
func (d DirectoryList) Cache() string         { return d.path("var", "cache") }
func (d DirectoryList) Init() string          { return d.path("init") }
func (d DirectoryList) AppEtc() string        { return d.path("app", "etc") }
func (d DirectoryList) StaticContent() string { return d.path("pub", "static") }
func (d DirectoryList) Media() string         { return d.path("pub", "media") }
func (d DirectoryList) Generated() string     { return d.path("generated") }
func (d DirectoryList) Patches() string       { return d.path("m2-hotfixes") }

// SampleData is where the sample data media package is installed.
func (d DirectoryList) SampleData() string {
	return d.path("vendor", "magento", "sample-data-media")
}

// EnvFile is the runtime configuration written during deploy.
func (d DirectoryList) EnvFile() string { return d.path("app", "etc", "env.yaml") }

// ConfigFile is the shared configuration snapshot.
func (d DirectoryList) ConfigFile() string { return d.path("app", "etc", "config.yaml") }

// LogFile is the pipeline log file.
func (d DirectoryList) LogFile() string { return d.path("var", "log", "cloud.log") }

// WritableDirectories are mounted read-write at deploy and seeded from init/.
// Paths are relative to the root.
func (d DirectoryList) WritableDirectories() []string {
	return []string{
		filepath.Join("var", "view_preprocessed"),
		d.AppEtcRel(),
		filepath.Join("pub", "media"),
	}
}

// AppEtcRel is app/etc relative to the root.
func (d DirectoryList) AppEtcRel() string { return filepath.Join("app", "etc") }

// Abs returns rel joined to the root.
func (d DirectoryList) Abs(rel string) string { return d.path(rel) }

// InitPath returns rel joined to the init directory.
func (d DirectoryList) InitPath(rel string) string { return d.path("init", rel) }
