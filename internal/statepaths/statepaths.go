// Package statepaths resolves where the bot keeps its mutable state and
// bundled assets. Everything is viper-driven so a deployment can point the
// state at a mounted volume (the hosted environment exposes /data).
package statepaths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	counterFilename = "incense_count.json"
	catalogFilename = "image_data.json"
)

func StateDir() string {
	return expandHome(viper.GetString("file_state_dir"))
}

func AssetsDir() string {
	return expandHome(viper.GetString("assets_dir"))
}

// PhotoDir is the root of the image tree served at /images and scanned by
// `catalog rebuild`.
func PhotoDir() string {
	return expandHome(viper.GetString("photo_dir"))
}

func CounterFilePath() string {
	return filepath.Join(StateDir(), counterFilename)
}

func CatalogFilePath() string {
	if p := strings.TrimSpace(viper.GetString("catalog.file")); p != "" {
		return expandHome(p)
	}
	return filepath.Join(AssetsDir(), catalogFilename)
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}
