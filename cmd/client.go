package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"lookupdesk/config"
	"lookupdesk/gateway"
	"lookupdesk/logger"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var apiURLFlag string

func getStateFilePath() string {
	return config.GetDefaultConfigPaths().StateFilePath
}

func clientTimeout() time.Duration {
	return time.Duration(config.AppConfig.Client.TimeoutSeconds) * time.Second
}

// newClient builds a gateway client over the saved session.
func newClient() (*gateway.Client, error) {
	session, err := gateway.LoadSession(getStateFilePath())
	if err != nil {
		logger.Error("Failed to load session state: %v", err)
		return nil, err
	}
	baseURL := config.AppConfig.Client.APIURL
	if apiURLFlag != "" {
		baseURL = apiURLFlag
	}
	logger.Debug("Using API at %s (authenticated: %t)", baseURL, session.Authenticated())
	return gateway.NewClient(baseURL, session,
		gateway.WithTimeout(clientTimeout()),
		gateway.WithMinSuggestionLength(config.AppConfig.Client.MinSuggestionLength),
	), nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, clientTimeout()+5*time.Second)
}

// userError prints the user-facing message for err and returns an error
// that makes cobra exit non-zero.
func userError(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), gateway.UserMessage(err))
	return err
}

// adminError is userError for admin calls. A token the server refuses is
// removed from the state file so the next command starts logged out.
func adminError(cmd *cobra.Command, client *gateway.Client, err error) error {
	if dropRejectedSession(client.Session(), getStateFilePath(), err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Saved session cleared; run 'lookupdesk login' again.")
	}
	return userError(cmd, err)
}

func dropRejectedSession(session *gateway.Session, path string, err error) bool {
	var apiErr *gateway.APIError
	if !errors.Is(err, gateway.ErrUnauthorized) || !errors.As(err, &apiErr) || apiErr.Status == 0 {
		return false
	}
	if !session.Authenticated() {
		return false
	}
	logger.Info("Server rejected the saved session for '%s'; clearing it", session.Username())
	session.Logout()
	if saveErr := session.Save(path); saveErr != nil {
		logger.Error("Failed to clear session: %v", saveErr)
		return false
	}
	return true
}

// readPassword prompts without echo on a terminal and reads a line otherwise.
func readPassword(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "base URL of the lookup API (overrides client.api_url)")
}
