package console

import (
	"github.com/jrsteele09/bizadmin/identity"
	"github.com/jrsteele09/bizadmin/internal/errors"
	"github.com/jrsteele09/bizadmin/router"
	"github.com/jrsteele09/bizadmin/views"
	"github.com/spf13/cobra"
)

func (c *Console) loginCmd() *cobra.Command {
	var creds identity.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enterLogin(); err != nil {
				return err
			}
			if err := c.fill(&creds.Email, "Email"); err != nil {
				return err
			}
			if err := c.fill(&creds.Password, "Password"); err != nil {
				return err
			}
			notice, err := c.app.Login.Submit(cmd.Context(), creds)
			return c.report(notice, err)
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password, prompted for when empty")
	return cmd
}

func (c *Console) loginGoogleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login-google",
		Short: "Sign in with a Google account through the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enterLogin(); err != nil {
				return err
			}
			notice, err := c.app.Login.Google(cmd.Context())
			return c.report(notice, err)
		},
	}
}

func (c *Console) registerCmd() *cobra.Command {
	var profile identity.Profile
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enterLogin(); err != nil {
				return err
			}
			if err := c.fill(&profile.Email, "Email"); err != nil {
				return err
			}
			if err := c.fill(&profile.Password, "Password"); err != nil {
				return err
			}
			notice, err := c.app.Login.Register(cmd.Context(), profile)
			return c.report(notice, err)
		},
	}
	cmd.Flags().StringVarP(&profile.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&profile.Password, "password", "p", "", "password, prompted for when empty")
	cmd.Flags().StringVarP(&profile.Name, "name", "n", "", "display name")
	return cmd
}

func (c *Console) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			return c.render(views.Notice{Success: true, Message: "Signed out"})
		},
	}
}

func (c *Console) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.enter(cmd.Context(), router.HomePath); err != nil {
				return err
			}
			return c.render(views.SessionInfo(c.app.Session.Current()))
		},
	}
}

// enterLogin checks the login page is reachable; a signed-in user is told so instead.
func (c *Console) enterLogin() (router.Outcome, error) {
	out := c.app.Guard.Navigate(router.Intent{Path: router.LoginPath})
	if out.Kind == router.Redirect {
		return out, errors.New("already signed in, run `bizadmin logout` first")
	}
	return out, nil
}

func (c *Console) fill(value *string, label string) error {
	if *value != "" {
		return nil
	}
	line, err := c.prompt(label)
	if err != nil {
		return err
	}
	*value = line
	return nil
}

// report renders the notice; the detailed error goes to stderr.
func (c *Console) report(notice views.Notice, err error) error {
	if renderErr := c.render(notice); renderErr != nil {
		return renderErr
	}
	return err
}
