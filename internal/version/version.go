package version

import (
	"encoding/json"
	"log"
	"os"
)

const devVersion = "0.0.0-dev"

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// Load reads version.json from the working directory. A missing or
// malformed file is not fatal; the pipeline runs as a dev build.
func Load() Info {
	data, err := os.ReadFile("version.json")
	if err != nil {
		return Info{Version: devVersion}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		log.Printf("warning: could not parse version.json: %v", err)
		return Info{Version: devVersion}
	}
	if info.Version == "" {
		info.Version = devVersion
	}
	return info
}
