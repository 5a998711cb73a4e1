package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ghcr-tools/pkgsweep"
	"github.com/ghcr-tools/pkgsweep/client"
	"github.com/ghcr-tools/pkgsweep/internal/ghcr"
	"github.com/ghcr-tools/pkgsweep/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep [pkg:ghcr/OWNER/PACKAGE]",
	Short: "Delete untagged package versions beyond the retention buffer",
	Long: `Sweep lists every stored version of a container image package, keeps the
newest untagged versions up to the keep count, and permanently deletes the
rest. Tagged versions are never touched.

With --dry-run the deletion set is computed and reported without deleting.
The exit status is non-zero if the run aborted or any deletion failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	f := sweepCmd.Flags()
	f.String("owner", "", "package owner (user or organization)")
	f.String("package", "", "package name")
	f.Int("keep", 100, "number of newest untagged versions to keep")
	f.Bool("dry-run", false, "report the deletion set without deleting")
	f.Bool("org", false, "owner is an organization")
	f.Int("concurrency", 2, "maximum outstanding delete requests")
	f.Duration("timeout", 0, "overall run deadline (0 means none)")
	f.String("registry-url", "", "registry API base URL")
	f.String("token", "", "registry API token")

	_ = viper.BindPFlag("keep", f.Lookup("keep"))
	_ = viper.BindPFlag("registry-url", f.Lookup("registry-url"))
	_ = viper.BindPFlag("token", f.Lookup("token"))
	_ = viper.BindPFlag("concurrency", f.Lookup("concurrency"))
}

func runSweep(cmd *cobra.Command, args []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	pkg, _ := cmd.Flags().GetString("package")
	if len(args) == 1 {
		kind, tOwner, tPkg, err := pkgsweep.ParseTarget(args[0])
		if err != nil {
			return err
		}
		if kind != "ghcr" {
			return fmt.Errorf("unsupported registry kind %q", kind)
		}
		owner, pkg = tOwner, tPkg
	}
	if owner == "" || pkg == "" {
		return fmt.Errorf("owner and package are required (flags or a pkg:ghcr/OWNER/PACKAGE target)")
	}

	token := viper.GetString("token")
	if token == "" {
		return fmt.Errorf("a registry token is required (set GITHUB_TOKEN or --token)")
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	org, _ := cmd.Flags().GetBool("org")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ownerKind := ghcr.OwnerUser
	if org {
		ownerKind = ghcr.OwnerOrg
	}

	c := ghcr.NewClient(token)
	reg := ghcr.New(viper.GetString("registry-url"), client.NewBreakerClient(c), ghcr.WithOwnerKind(ownerKind))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := sweep.New(reg, log.Logger)
	report, runErr := exec.Run(ctx, sweep.Options{
		Owner:       owner,
		Package:     pkg,
		KeepCount:   viper.GetInt("keep"),
		DryRun:      dryRun,
		Concurrency: viper.GetInt("concurrency"),
		Timeout:     timeout,
	})

	printReport(cmd, report, reg.URLs())

	if runErr != nil {
		if report.Truncated {
			return fmt.Errorf("run interrupted: %w", runErr)
		}
		return fmt.Errorf("run aborted during %s: %w", report.Phase, runErr)
	}
	if report.Failed() > 0 {
		return fmt.Errorf("%d of %d deletions failed", report.Failed(), report.Attempted())
	}
	return nil
}

func printReport(cmd *cobra.Command, r *sweep.Report, urls client.URLBuilder) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s/%s: %d versions, %d untagged, %d retained\n",
		r.Owner, r.Package, r.Total, r.Untagged, r.Retained)

	if r.DryRun {
		fmt.Fprintf(out, "dry run: %d versions would be deleted\n", len(r.Selected))
		for _, v := range r.Selected {
			fmt.Fprintf(out, "  would delete %s (created %s)\n", v.ID, v.CreatedAt.Format(time.RFC3339))
		}
		return
	}

	fmt.Fprintf(out, "deleted %d of %d selected versions\n", r.Succeeded(), len(r.Selected))
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			fmt.Fprintf(out, "  failed %s: %v\n", o.ID, o.Err)
		}
	}
	if r.Truncated {
		fmt.Fprintln(out, "interrupted: not every selected version was attempted")
	}
	if len(r.Selected) > 0 {
		fmt.Fprintf(out, "versions: %s\n", urls.Versions(r.Owner, r.Package))
	}
}
