package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
	"github.com/pyramid-aftercare/portal/internal/core/service"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Sign in, sign out and inspect the current portal user",
	Long: `Resolves the current user the way the portal front end does: a live
credential-store session first, then the local session cache. CREDENTIAL_MODE
selects the credential store (remote, local or offline).`,
}

var (
	loginEmail    string
	loginPassword string

	reg domain.NewUser
	upd struct {
		firstName, lastName, phone, dob string
		role                            string
	}
)

// withResolver bootstraps a resolver for one command and tears it down after.
func withResolver(cmd *cobra.Command, fn func(r *service.SessionResolver) error) error {
	ctx := cmd.Context()
	b := newBackends(a.cfg, a.log)
	defer b.close()

	r, err := newResolver(ctx, a.cfg, b, a.log)
	if err != nil {
		return err
	}
	r.Start(ctx)
	defer r.Stop()

	r.Bootstrap(ctx)
	return fn(r)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(r *service.SessionResolver) error {
			u, err := r.Login(cmd.Context(), loginEmail, loginPassword)
			if err != nil {
				return err
			}
			return printUser(cmd.OutOrStdout(), u)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the local session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(r *service.SessionResolver) error {
			r.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the resolved current user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(r *service.SessionResolver) error {
			u := r.Current()
			if u == nil {
				return domain.ErrNotAuthenticated
			}
			return printUser(cmd.OutOrStdout(), u)
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and its profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(r *service.SessionResolver) error {
			id, err := r.Register(cmd.Context(), reg)
			if err != nil {
				if errors.Is(err, domain.ErrRegistrationIncomplete) {
					return fmt.Errorf("%w; contact an administrator before retrying", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", id.Email, id.ID)
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the current user's profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withResolver(cmd, func(r *service.SessionResolver) error {
			u, err := r.UpdateProfile(cmd.Context(), profileUpdateFromFlags(cmd))
			if err != nil {
				return err
			}
			return printUser(cmd.OutOrStdout(), u)
		})
	},
}

// profileUpdateFromFlags sets only the fields whose flags were given.
func profileUpdateFromFlags(cmd *cobra.Command) domain.ProfileUpdate {
	var out domain.ProfileUpdate
	flags := cmd.Flags()
	if flags.Changed("first-name") {
		out.FirstName = &upd.firstName
	}
	if flags.Changed("last-name") {
		out.LastName = &upd.lastName
	}
	if flags.Changed("phone") {
		out.PhoneNumber = &upd.phone
	}
	if flags.Changed("dob") {
		out.DateOfBirth = &upd.dob
	}
	if flags.Changed("role") {
		role := domain.Role(upd.role)
		out.Role = &role
	}
	return out
}

func printUser(w io.Writer, u *domain.UserRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(u)
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd, updateCmd)

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	rf := registerCmd.Flags()
	rf.StringVar(&reg.Email, "email", "", "account email")
	rf.StringVar(&reg.Password, "password", "", "account password")
	rf.StringVar(&reg.FirstName, "first-name", "", "first name")
	rf.StringVar(&reg.LastName, "last-name", "", "last name")
	rf.StringVar((*string)(&reg.Role), "role", string(domain.RolePatient), "patient, admin or provider")
	rf.StringVar(&reg.PhoneNumber, "phone", "", "phone number")
	rf.StringVar(&reg.DateOfBirth, "dob", "", "date of birth (YYYY-MM-DD)")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")

	uf := updateCmd.Flags()
	uf.StringVar(&upd.firstName, "first-name", "", "first name")
	uf.StringVar(&upd.lastName, "last-name", "", "last name")
	uf.StringVar(&upd.phone, "phone", "", "phone number")
	uf.StringVar(&upd.dob, "dob", "", "date of birth (YYYY-MM-DD)")
	uf.StringVar(&upd.role, "role", "", "ignored: the role cannot be changed from the portal")
}
