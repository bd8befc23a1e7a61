// Package themedir locates the theme directory and names the files kept in
// it.
package themedir

import (
	"os"
	"path/filepath"
	"runtime"
)

// Well-known file names inside a theme directory.
const (
	ImageCacheFile = "ImageCacheV1.png"
	ImageMapFile   = "ImageCacheV1.htm"
	ComponentsDir  = "Components"
	SourceFile     = "themedata.go"
	DefsFile       = "ThemeImageDefs.txt"
	PackageExt     = ".themepkg"
)

// Root returns the directory themes are read from and written to.
// THEMEPACK_THEME_DIR wins, then the platform's per-user data directory.
func Root() string {
	if dir := os.Getenv("THEMEPACK_THEME_DIR"); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "darwin":
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, "Library", "Application Support", "themepack", "Theme")
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "themepack", "Theme")
		}
	default:
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "themepack", "theme")
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".local", "share", "themepack", "theme")
		}
	}

	return filepath.Join(os.TempDir(), "themepack", "theme")
}

// Paths resolves the well-known files under dir.
type Paths struct {
	Dir string
}

// At returns Paths rooted at dir, or at Root when dir is empty.
func At(dir string) Paths {
	if dir == "" {
		dir = Root()
	}
	return Paths{Dir: dir}
}

func (p Paths) ImageCache() string { return filepath.Join(p.Dir, ImageCacheFile) }
func (p Paths) ImageMap() string   { return filepath.Join(p.Dir, ImageMapFile) }
func (p Paths) Components() string { return filepath.Join(p.Dir, ComponentsDir) }
func (p Paths) Source() string     { return filepath.Join(p.Dir, SourceFile) }
func (p Paths) Definitions() string {
	return filepath.Join(p.Dir, DefsFile)
}

// Ensure creates the theme directory if needed.
func (p Paths) Ensure() error {
	return os.MkdirAll(p.Dir, 0o755)
}
