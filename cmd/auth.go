package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with an access key and secret key",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if username == "" || password == "" {
			return fmt.Errorf("--username and --password are required")
		}

		if _, err := sess.Login(cmd.Context(), models.LoginArgs{Username: username, Password: password}); err != nil {
			return err
		}
		logger.Infof("Logged in as %s", username)
		return nil
	}),
}

var loginSTSCmd = &cobra.Command{
	Use:   "login-sts ID_TOKEN",
	Short: "Log in with an OpenID id_token",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		if _, err := sess.LoginSTS(cmd.Context(), models.LoginSTSArgs{Token: args[0]}); err != nil {
			return err
		}
		logger.Info("Logged in with identity token")
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		return sess.Logout()
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current login state",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		out := map[string]interface{}{
			"endpoint": sess.Endpoint().URL(),
			"state":    sess.State().String(),
		}
		if sess.LoggedIn() {
			claims, err := sess.Claims()
			if err != nil {
				logger.Debugf("Failed to decode token: %v", err)
			} else {
				out["access_key"] = claims.AccessKey
				if !claims.ExpiresAt.IsZero() {
					out["expires_at"] = claims.ExpiresAt.Format(time.RFC3339)
					out["expired"] = claims.Expired(time.Now())
				}
			}
		}
		return printResult(cmd, out)
	}),
}

var setAuthCmd = &cobra.Command{
	Use:   "set-auth",
	Short: "Change the access key and secret key",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		var a models.SetAuthArgs
		a.CurrentAccessKey, _ = cmd.Flags().GetString("current-access-key")
		a.CurrentSecretKey, _ = cmd.Flags().GetString("current-secret-key")
		a.NewAccessKey, _ = cmd.Flags().GetString("new-access-key")
		a.NewSecretKey, _ = cmd.Flags().GetString("new-secret-key")

		reply, err := sess.SetAuth(cmd.Context(), a)
		if err != nil {
			return err
		}
		for peer, msg := range reply.PeerErrMsgs {
			logger.Warnf("Peer %s: %s", peer, msg)
		}
		logger.Info("Credentials updated")
		return nil
	}),
}

var urlTokenCmd = &cobra.Command{
	Use:   "url-token",
	Short: "Create a short lived token for download URLs",
	RunE: withSession(func(cmd *cobra.Command, args []string, sess *session.Session) error {
		reply, err := sess.CreateURLToken(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, reply)
	}),
}

func init() {
	rootCmd.AddCommand(loginCmd, loginSTSCmd, logoutCmd, whoamiCmd, setAuthCmd, urlTokenCmd)

	loginCmd.Flags().StringP("username", "u", "", "Access key")
	loginCmd.Flags().StringP("password", "p", "", "Secret key")

	setAuthCmd.Flags().String("current-access-key", "", "Current access key")
	setAuthCmd.Flags().String("current-secret-key", "", "Current secret key")
	setAuthCmd.Flags().String("new-access-key", "", "New access key")
	setAuthCmd.Flags().String("new-secret-key", "", "New secret key")
}
