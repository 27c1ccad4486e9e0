package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fivetwenty-io/hls-client/internal/constants"
)

// TokenInfo is the output of the token command.
type TokenInfo struct {
	BaseURL   string     `json:"base_url"             yaml:"base_url"`
	UserID    string     `json:"user_id"              yaml:"user_id"`
	Token     string     `json:"token"                yaml:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand() *cobra.Command {
	var showToken bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Fetch an access token",
		Long: `Request an access token with the configured user id and secret key.

When no secret key is configured and stdin is a terminal, the secret key is
prompted for. The token is masked unless --show-token is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if config.SecretKey == "" {
				secret, err := promptSecret(cmd)
				if err != nil {
					return err
				}

				config.SecretKey = secret
			}

			client, err := createClientWithConfig(cmd.Context(), config)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			token, err := client.Token(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}

			info := TokenInfo{
				BaseURL: config.BaseURL,
				UserID:  config.UserID,
				Token:   token,
			}

			if expiresAt, ok := tokenExpiry(token); ok {
				info.ExpiresAt = &expiresAt
			}

			if !showToken {
				info.Token = maskSecret(token)
			}

			return render(cmd.OutOrStdout(), info, func(table *tablewriter.Table) error {
				table.Header("Property", "Value")

				rows := [][]string{
					{"Base URL", info.BaseURL},
					{"User ID", info.UserID},
					{"Token", info.Token},
				}

				if info.ExpiresAt != nil {
					rows = append(rows, []string{"Expires At", info.ExpiresAt.Format(time.RFC3339)})
				}

				return appendRows(table, rows)
			})
		},
	}

	cmd.Flags().BoolVar(&showToken, "show-token", false, "print the full token")

	return cmd
}

// promptSecret reads the secret key from the terminal without echo.
func promptSecret(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: set secret_key or HLS_SECRET_KEY", constants.ErrCredentialsRequired)
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Secret key: ")

	secretBytes, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(cmd.ErrOrStderr())

	if err != nil {
		return "", fmt.Errorf("failed to read secret key: %w", err)
	}

	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", constants.ErrCredentialsRequired
	}

	return secret, nil
}

// tokenExpiry reads the exp claim of a JWT token. Opaque tokens report false.
func tokenExpiry(token string) (time.Time, bool) {
	if len(strings.Split(token, ".")) != constants.TokenPartsCount {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
