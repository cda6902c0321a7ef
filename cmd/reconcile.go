package cmd

import (
	"github.com/AzielCF/az-juris/core/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [instance...]",
	Short: "Run one status reconciliation sweep and exit",
	Long: `Compares every active instance with the gateway and repairs local drift.
With --tenant only that tenant is reconciled, optionally limited to the named instances.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context(), config.Global, buildOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		tenantID, _ := cmd.Flags().GetString("tenant")
		if tenantID == "" {
			if len(args) > 0 {
				logrus.Warn("[RECONCILER] Instance names are ignored without --tenant")
			}
			return a.reconciler.Sweep(cmd.Context())
		}

		instances, err := a.reconciler.ReconcileTenant(cmd.Context(), tenantID, args...)
		for _, inst := range instances {
			logrus.Infof("[RECONCILER] %s/%s: %s", tenantID, inst.Name, inst.State)
		}
		return err
	},
}

func init() {
	reconcileCmd.Flags().String("tenant", "", "only reconcile this tenant's instances")
	rootCmd.AddCommand(reconcileCmd)
}
