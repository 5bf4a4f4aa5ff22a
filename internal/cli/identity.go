package cli

import (
	"github.com/spf13/cobra"

	"github.com/pyramid-aftercare/portal/internal/api"
	"github.com/pyramid-aftercare/portal/internal/core/service"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Run the development identity and profile API",
	Long: `Runs a credential store and profile store compatible with the remote
session adapter, on IDENTITY_PORT (default 8081).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg := a.cfg
		if cfg.Identity.JWTSecret == "" {
			if cfg.IsProduction() {
				return errMissingSecret
			}
			cfg.Identity.JWTSecret = devJWTSecret
			a.log.Warn().Msg("JWT_SECRET not set, using the development secret")
		}

		b := newBackends(cfg, a.log)
		defer b.close()

		identities, err := b.identityRepository(ctx)
		if err != nil {
			return err
		}
		profiles, err := b.profileRepository(ctx)
		if err != nil {
			return err
		}
		revoker, err := b.tokenRevoker(ctx)
		if err != nil {
			return err
		}

		svc := service.NewIdentityService(identities, profiles, revoker, cfg.Identity.JWTSecret, cfg.Identity.TokenTTL, a.log)
		e := api.NewIdentityRouter(api.IdentityDeps{
			Identity: svc,
			Profiles: profiles,
			Checks:   b.checks(),
			Log:      a.log,
		})
		return run(ctx, e, ":"+cfg.Identity.Port, a.log)
	},
}

func init() {
	rootCmd.AddCommand(identityCmd)
}
