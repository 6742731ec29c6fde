package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/nmhoang2304/AniTrack-Group07/cli/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	username string
	email    string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Register, login, and logout commands for AniTrack authentication.`,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account",
	Long:  `Register a new AniTrack account with username and email.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if username == "" {
			return fmt.Errorf("username is required (--username)")
		}
		if email == "" {
			return fmt.Errorf("email is required (--email)")
		}

		fmt.Print("Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password := string(passwordBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password confirmation: %w", err)
		}
		confirmPassword := string(confirmBytes)

		if password != confirmPassword {
			printError("Passwords do not match")
			return fmt.Errorf("passwords do not match")
		}

		serverURL, err := config.GetServerURL()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: anitrack init")
			return err
		}

		reqBody := map[string]string{
			"username": username,
			"email":    email,
			"password": password,
		}
		jsonData, _ := json.Marshal(reqBody)

		res, err := http.Post(serverURL+"/auth/register", "application/json", bytes.NewBuffer(jsonData))
		if err != nil {
			printError("Registration failed: Server connection error")
			return err
		}
		defer res.Body.Close()

		body, _ := io.ReadAll(res.Body)

		if res.StatusCode != http.StatusCreated {
			errMsg := apiError(body)
			if strings.Contains(errMsg, "already exists") {
				printError(fmt.Sprintf("Registration failed: %s", errMsg))
				fmt.Printf("Try: anitrack auth login --username %s\n", username)
			} else if strings.Contains(errMsg, "Invalid email") {
				printError("Registration failed: Invalid email format")
				fmt.Println("Please provide a valid email address")
			} else if strings.Contains(errMsg, "weak") || strings.Contains(errMsg, "Password") {
				printError("Registration failed: Password too weak")
				fmt.Println("Password must be at least 8 characters with mixed case and numbers")
			} else {
				printError(fmt.Sprintf("Registration failed: %s", errMsg))
			}
			return fmt.Errorf("registration failed")
		}

		var authRes struct {
			Token     string    `json:"token"`
			UserID    string    `json:"user_id"`
			Username  string    `json:"username"`
			Email     string    `json:"email"`
			CreatedAt time.Time `json:"created_at"`
		}
		json.Unmarshal(body, &authRes)

		if err := config.UpdateUserToken(authRes.Username, authRes.Token); err != nil {
			fmt.Println("Warning: Failed to save token to config")
		}

		printSuccess("Account created successfully!")
		fmt.Printf("User ID: %s\n", authRes.UserID)
		fmt.Printf("Username: %s\n", authRes.Username)
		fmt.Printf("Email: %s\n", authRes.Email)
		fmt.Println("\nYou are now logged in!")
		fmt.Println("Try: anitrack search \"your favorite anime\"")

		return nil
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to your account",
	Long:  `Log in with username (or email) and password; the token is saved for later commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if username == "" && email == "" {
			return fmt.Errorf("username or email is required (--username / --email)")
		}

		fmt.Print("Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		serverURL, err := config.GetServerURL()
		if err != nil {
			printError("Configuration not initialized")
			fmt.Println("Run: anitrack init")
			return err
		}

		reqBody := map[string]string{
			"username": username,
			"email":    email,
			"password": string(passwordBytes),
		}
		jsonData, _ := json.Marshal(reqBody)

		res, err := http.Post(serverURL+"/auth/login", "application/json", bytes.NewBuffer(jsonData))
		if err != nil {
			printError("Login failed: Server connection error")
			return err
		}
		defer res.Body.Close()

		body, _ := io.ReadAll(res.Body)

		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Login failed: %s", apiError(body)))
			return fmt.Errorf("login failed")
		}

		var authRes struct {
			Token    string `json:"token"`
			Username string `json:"username"`
		}
		json.Unmarshal(body, &authRes)

		if err := config.UpdateUserToken(authRes.Username, authRes.Token); err != nil {
			fmt.Println("Warning: Failed to save token to config")
		}

		printSuccess(fmt.Sprintf("Logged in as %s", authRes.Username))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, body, err := authedRequest(http.MethodPost, "/auth/logout", nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Logout failed: %s", apiError(body)))
			return fmt.Errorf("logout failed")
		}

		if err := config.ClearUserToken(); err != nil {
			fmt.Println("Warning: Failed to clear token from config")
		}
		printSuccess("Logged out")
		return nil
	},
}

var authChangePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change your password",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Current password: ")
		currentBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		fmt.Print("New password: ")
		newBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		payload := map[string]string{
			"current_password": string(currentBytes),
			"new_password":     string(newBytes),
		}
		res, body, err := authedRequest(http.MethodPost, "/auth/change-password", payload)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Password change failed: %s", apiError(body)))
			return fmt.Errorf("password change failed")
		}

		printSuccess("Password changed successfully")
		return nil
	},
}

var authUpdateUsernameCmd = &cobra.Command{
	Use:   "update-username [new-username]",
	Short: "Change your username",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := map[string]string{"new_username": args[0]}
		res, body, err := authedRequest(http.MethodPut, "/auth/username", payload)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Username change failed: %s", apiError(body)))
			return fmt.Errorf("username change failed")
		}

		cfg, err := config.Load()
		if err == nil {
			cfg.User.Username = args[0]
			config.Save(cfg)
		}
		printSuccess(fmt.Sprintf("Username changed to %s", args[0]))
		fmt.Println("Log in again to refresh your token.")
		return nil
	},
}

var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, body, err := authedRequest(http.MethodGet, "/users/me", nil)
		if err != nil {
			return err
		}
		if res.StatusCode != http.StatusOK {
			printError(fmt.Sprintf("Request failed: %s", apiError(body)))
			return fmt.Errorf("whoami failed")
		}

		var user struct {
			ID        string    `json:"id"`
			Username  string    `json:"username"`
			Email     string    `json:"email"`
			CreatedAt time.Time `json:"created_at"`
		}
		json.Unmarshal(body, &user)

		fmt.Printf("Username: %s\n", user.Username)
		fmt.Printf("Email: %s\n", user.Email)
		fmt.Printf("User ID: %s\n", user.ID)
		fmt.Printf("Member since: %s\n", user.CreatedAt.Format("2006-01-02"))
		return nil
	},
}

func init() {
	authRegisterCmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	authRegisterCmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	authLoginCmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	authLoginCmd.Flags().StringVarP(&email, "email", "e", "", "Account email")

	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authChangePasswordCmd)
	authCmd.AddCommand(authUpdateUsernameCmd)
	authCmd.AddCommand(authWhoamiCmd)
	rootCmd.AddCommand(authCmd)
}
