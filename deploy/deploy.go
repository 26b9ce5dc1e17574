// Package deploy resolves where and what build of retrace is running.
//
// Values come from deployment environment variables first, with
// debug.ReadBuildInfo filling in what the build itself knows. Everything
// here is best-effort; absent values stay empty rather than failing.
package deploy

import (
	"os"
	"runtime/debug"
)

// Info describes the running deployment. It marshals directly into the
// diagnostics endpoint.
type Info struct {
	Environment string `json:"environment"`
	Region      string `json:"region,omitempty"`
	Commit      string `json:"commit,omitempty"`
	CommitTime  string `json:"commit_time,omitempty"`
	Branch      string `json:"branch,omitempty"`
	BaseURL     string `json:"base_url,omitempty"`
	Version     string `json:"version,omitempty"`
	GoVersion   string `json:"go_version,omitempty"`
}

// Resolve gathers deployment metadata from the environment and build info.
func Resolve() Info {
	info := Info{
		Environment: envOr("DEPLOY_ENV", "development"),
		Region:      os.Getenv("DEPLOY_REGION"),
		Commit:      os.Getenv("GIT_COMMIT_SHA"),
		Branch:      os.Getenv("GIT_BRANCH"),
		BaseURL:     os.Getenv("BASE_URL"),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	info.GoVersion = bi.GoVersion
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = setting.Value
			}
		case "vcs.time":
			info.CommitTime = setting.Value
		}
	}

	return info
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
