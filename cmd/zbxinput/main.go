// Команда zbxinput: сервис проверки входных данных фронтенда и API Zabbix.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zabbix_input/internal/api"
	"zabbix_input/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "zbxinput",
	Short: "Zabbix request input validation service",
	Long: `zbxinput validates frontend form fields and JSON-RPC API parameters
the way the Zabbix frontend does.

Commands:
  serve    - HTTP server with page checks and the JSON-RPC API
  check    - check one page request from the command line
  call     - call an API method on a remote server
  version  - print the API version`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the API version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), api.Version)
	},
}

func init() {
	config.AddFlags(serveCmd)
	config.AddFlags(checkCmd)
	config.AddFlags(callCmd)

	rootCmd.AddCommand(serveCmd, checkCmd, callCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
