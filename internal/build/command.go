package build

import (
	"path"
	"strings"
)

// Placeholders recognised in generator command arguments.
const (
	PlaceholderSiteDir    = "{site_dir}"
	PlaceholderContentDir = "{content_dir}"
	PlaceholderConfigFile = "{config_file}"
)

// DefaultCommand builds an mkdocs project into the output mount.
var DefaultCommand = []string{"mkdocs", "build", "--site-dir", PlaceholderSiteDir}

// DefaultConfigFile is the generator configuration file, relative to the content root.
const DefaultConfigFile = "mkdocs.yml"

// ExpandCommand substitutes placeholders in every argument. contentDir and
// siteDir are the paths as the generator sees them.
func ExpandCommand(args []string, contentDir, siteDir, configFile string) []string {
	if configFile == "" {
		configFile = DefaultConfigFile
	}
	if !path.IsAbs(configFile) {
		configFile = path.Join(contentDir, configFile)
	}
	r := strings.NewReplacer(
		PlaceholderSiteDir, siteDir,
		PlaceholderContentDir, contentDir,
		PlaceholderConfigFile, configFile,
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}
