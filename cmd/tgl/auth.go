package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/groblegark/tangle/internal/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword prompts for a password without echoing when stdin is a
// terminal, and falls back to a plain line read otherwise (pipes, CI).
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func passwordFromFlagOrPrompt(cmd *cobra.Command, prompt string) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}
	return readPassword(prompt)
}

// adoptSession persists the session token on the active remote and reports
// the outcome.
func adoptSession(sess *client.Session) {
	if err := saveActiveRemoteToken(sess.Token); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save token: %v\n", err)
		fmt.Printf("token: %s\n", sess.Token)
		return
	}
	fmt.Printf("logged in as %s (session expires %s)\n",
		sess.User.Username, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
}

var registerCmd = &cobra.Command{
	Use:     "register <username> <email>",
	Short:   "Create an account and log in",
	GroupID: "system",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, email := args[0], args[1]
		password, err := passwordFromFlagOrPrompt(cmd, "Password: ")
		if err != nil {
			return err
		}

		sess, err := tangleClient.Register(context.Background(), username, email, password)
		if err != nil {
			return fmt.Errorf("registering: %w", err)
		}
		adoptSession(sess)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:     "login <username>",
	Short:   "Log in and store the session token",
	GroupID: "system",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]
		password, err := passwordFromFlagOrPrompt(cmd, "Password: ")
		if err != nil {
			return err
		}

		sess, err := tangleClient.Login(context.Background(), username, password)
		if err != nil {
			return fmt.Errorf("logging in: %w", err)
		}
		adoptSession(sess)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Revoke the current session",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tangleClient.Logout(context.Background()); err != nil {
			return fmt.Errorf("logging out: %w", err)
		}
		if err := saveActiveRemoteToken(""); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not clear stored token: %v\n", err)
		}
		fmt.Println("logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the authenticated user",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := tangleClient.Me(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(user)
		} else {
			printUserTable(user)
		}
		return nil
	},
}

func init() {
	registerCmd.Flags().String("password", "", "password (prompted when omitted)")
	loginCmd.Flags().String("password", "", "password (prompted when omitted)")
}
