// ### 发布流程
// 1. **更新版本号**：修改 `internal/pkg/version/version.go`
// 2. **构建时注入**：-ldflags "-X .../version.GitCommit=... -X .../version.BuildTime=..."

package version

import "runtime"

var (
	Version   = "1.0.0" // 版本号 -- 发布时候更新版本号
	BuildTime string
	GitCommit string
	GoVersion = runtime.Version()
)

// Info 构建信息
type Info struct {
	Version   string `json:"version" yaml:"version"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

func GetVersion() string {
	return Version
}

// GetInfo 获取完整构建信息
func GetInfo() Info {
	return Info{
		Version:   Version,
		BuildTime: orUnknown(BuildTime),
		GitCommit: orUnknown(GitCommit),
		GoVersion: GoVersion,
	}
}

func GetUserAgent() string {
	return "analyze-vt-mcp/" + Version
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
