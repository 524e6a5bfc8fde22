package cli

import (
	"errors"
	"fmt"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Verify your email for plant care alerts",
}

var alertsCodeCmd = &cobra.Command{
	Use:   "code",
	Short: "Mail a verification code to your address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentIdentity()
		if err != nil {
			return err
		}

		sent, err := application.Alerts.RequestCode(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !sent {
			return errors.New("the code could not be delivered, try again later")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "A code was sent to %s. It expires in %s.\n", id.Email, cfg.Alerts.CodeTTL)
		return nil
	},
}

var alertsVerifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Confirm the code you received",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentIdentity()
		if err != nil {
			return err
		}

		if err := application.Alerts.VerifyCode(cmd.Context(), id, args[0]); err != nil {
			if errors.Is(err, domain.ErrInvalidCode) {
				return errors.New("that code is wrong or has expired, request a new one with 'flora alerts code'")
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Email verified. Alerts are on.")
		return nil
	},
}

func init() {
	alertsCmd.AddCommand(alertsCodeCmd)
	alertsCmd.AddCommand(alertsVerifyCmd)
}
