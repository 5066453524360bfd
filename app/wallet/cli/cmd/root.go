// Package cmd contains wallet app
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	url         string
)

const (
	keyExtension = ".ecdsa"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Path to the private key.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Your simple wallet",
}

// Execute runs the wallet command selected on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	name := accountName
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(accountPath, name)
}

// decodeResponse reads the node's reply into v, turning an error response
// into a Go error.
func decodeResponse(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		var er struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
			return fmt.Errorf("status[%d]: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("status[%d]: %s: %v", resp.StatusCode, er.Error, er.Fields)
		}
		return fmt.Errorf("status[%d]: %s", resp.StatusCode, er.Error)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
