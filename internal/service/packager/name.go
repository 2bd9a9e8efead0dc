package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/buildpack-packager/internal/config"
)

// cachedSuffix marks archives that bundle their dependencies.
const cachedSuffix = "-cached"

// ArchiveName returns the artifact filename for a buildpack of the given
// language, packaging mode and version.
func ArchiveName(language string, mode config.Mode, version string) string {
	suffix := ""
	if mode == config.ModeCached {
		suffix = cachedSuffix
	}

	return fmt.Sprintf("%s_buildpack%s-v%s.zip", language, suffix, version)
}

// ReadVersion returns the trimmed contents of rootDir/VERSION.
func ReadVersion(rootDir string) (string, error) {
	contents, err := os.ReadFile(filepath.Join(rootDir, config.VersionFilename))
	if err != nil {
		return "", fmt.Errorf("read buildpack version: %w", err)
	}

	return strings.TrimSpace(string(contents)), nil
}
