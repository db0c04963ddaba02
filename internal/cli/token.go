package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/utils"
	"github.com/spf13/cobra"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	UserID   string
	SignKey  string
	Issuer   string
	Duration time.Duration
}

type tokenOutput struct {
	UserID string `json:"userId" yaml:"userId"`
	Token  string `json:"token" yaml:"token"`
}

// NewTokenCommand creates the token command. It signs a token with the
// backend's key, for development setups without an identity provider.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		Example: `  sync-keeper token --user alice --sign-key "$APP_TOKEN_SIGN_KEY"
  export APP_TOKEN=$(sync-keeper token --user alice --sign-key secret)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signKey := opts.SignKey
			if signKey == "" {
				signKey = os.Getenv("APP_TOKEN_SIGN_KEY")
			}
			if signKey == "" {
				return errors.New("a signing key is required: --sign-key or APP_TOKEN_SIGN_KEY")
			}

			token, err := utils.GenerateJWTToken(opts.Issuer, opts.UserID, opts.Duration, signKey)
			if err != nil {
				return fmt.Errorf("error issuing token: %w", err)
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Print(tokenOutput{UserID: token.UserID, Token: token.SignedString}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, token.SignedString)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&opts.UserID, "user", "u", "", "user id (token subject)")
	cmd.Flags().StringVar(&opts.SignKey, "sign-key", "", "backend signing key")
	cmd.Flags().StringVar(&opts.Issuer, "issuer", "go-sync-keeper", "token issuer")
	cmd.Flags().DurationVar(&opts.Duration, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
