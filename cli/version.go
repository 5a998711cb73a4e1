package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghcr-tools/pkgsweep/release"
)

// Injected at build time via -ldflags.
var (
	BuildVersion = "dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the pkgsweep version, commit hash, and build date.`,
	Run: func(cmd *cobra.Command, args []string) {
		version := BuildVersion
		if version == "dev" {
			version, _ = release.BuildInfoResolver{Fallback: BuildVersion}.ResolveVersion(cmd.Context())
		}

		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Println(version)
			return
		}
		fmt.Printf("pkgsweep %s\n", version)
		fmt.Printf("Commit: %s\n", BuildCommit)
		fmt.Printf("Built: %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "Show only version number")
}
