package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zabbix_input/internal/api"
	"zabbix_input/internal/apivalidator"
	"zabbix_input/internal/config"
	"zabbix_input/internal/logger"
	"zabbix_input/internal/zabbix"
)

var callCmd = &cobra.Command{
	Use:   "call METHOD [PARAMS_JSON]",
	Short: "Call a Zabbix API method",
	Long: `Call a JSON-RPC method on the server given by --zabbix-url. Parameters
of known methods are validated locally before the request is sent.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

// anonymous методы, которые вызываются без входа
var anonymous = map[string]bool{
	"apiinfo.version": true,
	"user.login":      true,
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := cfg.Load(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Cleanup()
	log := logger.Logger

	method := strings.ToLower(args[0])
	var params any = map[string]any{}
	if len(args) == 2 {
		if err := json.Unmarshal([]byte(args[1]), &params); err != nil {
			return fmt.Errorf("invalid params JSON: %w", err)
		}
	}

	validator := apivalidator.New(log, apivalidator.WithIPv6(cfg.AllowIPv6(cmd.Context())))
	client := zabbix.NewClient(cfg.ZabbixURL, cfg.ZabbixUser, cfg.ZabbixPassword, cfg.HTTPTimeout, log,
		zabbix.WithSchemas(api.Schemas(), validator))

	ctx := cmd.Context()
	if !anonymous[method] {
		if err := client.Login(ctx); err != nil {
			return err
		}
		defer func() {
			if err := client.Logout(ctx); err != nil {
				log.Warn("Logout failed", zap.Error(err))
			}
		}()
	}

	result, err := client.Call(ctx, method, params)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, result, "", "  "); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}
	out.WriteByte('\n')
	_, err = cmd.OutOrStdout().Write(out.Bytes())
	return err
}
