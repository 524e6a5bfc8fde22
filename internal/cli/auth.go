package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authPassword string
	authName     string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	Long: `Create an account and sign in.

Emails are case-insensitive. When --password is omitted it is read from stdin.

Examples:
  flora register --name Rose --email rose@example.com
  echo secret | flora register --name Rose --email rose@example.com`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the signed-in identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := identities.SignOut(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentIdentity()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", id.DisplayName, id.Email)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{registerCmd, loginCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "account email")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "account password (read from stdin when empty)")
		_ = c.MarkFlagRequired("email")
	}
	registerCmd.Flags().StringVarP(&authName, "name", "n", "", "display name")
	_ = registerCmd.MarkFlagRequired("name")
}

func runRegister(cmd *cobra.Command, args []string) error {
	password, err := resolvePassword(cmd)
	if err != nil {
		return err
	}

	id, err := application.Auth.Register(cmd.Context(), authEmail, password, authName)
	if err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return fmt.Errorf("%s is already registered, use 'flora login'", domain.NormalizeEmail(authEmail))
		}
		return err
	}

	return signIn(cmd, id)
}

func runLogin(cmd *cobra.Command, args []string) error {
	password, err := resolvePassword(cmd)
	if err != nil {
		return err
	}

	id, err := application.Auth.Login(cmd.Context(), authEmail, password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return errors.New("no account for that email, use 'flora register'")
		case errors.Is(err, domain.ErrWrongPassword):
			return errors.New("wrong password")
		}
		return err
	}

	return signIn(cmd, id)
}

func signIn(cmd *cobra.Command, id *domain.Identity) error {
	if err := identities.SignIn(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>.\n", id.DisplayName, id.Email)
	return nil
}

func resolvePassword(cmd *cobra.Command) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
