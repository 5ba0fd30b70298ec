package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set via -ldflags. Left at their zero values, buildVersion falls back to
// the module and VCS stamps `go build` records.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v, commit, date := buildVersion()
		fmt.Fprintf(cmd.OutOrStdout(), "focusdrift %s\n", v)
		if commit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
		}
		if date != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
		}
	},
}

func buildVersion() (version, commit, date string) {
	version, commit, date = Version, Commit, BuildDate
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "" {
				commit = s.Value
				if len(commit) > 12 {
					commit = commit[:12]
				}
			}
		case "vcs.time":
			if date == "" {
				date = s.Value
			}
		}
	}
	return
}

// VersionString is the version reported by the health endpoint.
func VersionString() string {
	v, commit, _ := buildVersion()
	if commit == "" {
		return v
	}
	return v + "+" + commit
}
