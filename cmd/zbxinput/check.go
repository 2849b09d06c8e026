package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zabbix_input/internal/config"
	"zabbix_input/internal/fields"
	"zabbix_input/internal/logger"
	"zabbix_input/internal/request"
	"zabbix_input/internal/verr"
)

var checkCmd = &cobra.Command{
	Use:   "check PAGE [name=value ...]",
	Short: "Check page request fields",
	Long: `Check page request fields against the page rules and print the
resulting request and messages as JSON. Array fields use the form syntax:
groups[]=4 groups[]=5 or interfaces[1][port]=10050.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

var errNotValid = errors.New("request is not valid")

func init() {
	checkCmd.Flags().String("session", "", "Session id used to verify the sid field")
}

// checkResult результат проверки для вывода
type checkResult struct {
	Page     string         `json:"page"`
	Outcome  string         `json:"outcome"`
	Valid    bool           `json:"valid"`
	Aborted  bool           `json:"aborted,omitempty"`
	Fields   map[string]any `json:"fields"`
	Messages verr.List      `json:"messages,omitempty"`
}

// parseArgs превращает name=value аргументы в значения формы
func parseArgs(args []string) (url.Values, error) {
	values := url.Values{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid argument %q: expected name=value", arg)
		}
		values.Add(name, value)
	}
	return values, nil
}

// checkPage проверяет один запрос к странице
func checkPage(checker *fields.Checker, pages map[string]*fields.Table, page string, values url.Values, sessionID string) (checkResult, error) {
	table, ok := pages[page]
	if !ok {
		return checkResult{}, fmt.Errorf("unknown page %q", page)
	}

	req := request.FromValues(values)
	var opts []fields.PassOption
	if sessionID != "" {
		opts = append(opts, fields.WithTokens(fields.SessionToken(sessionID)))
	}

	res := checker.CheckFields(req, table, opts...)
	return checkResult{
		Page:     page,
		Outcome:  res.Outcome.String(),
		Valid:    res.Valid(),
		Aborted:  res.Aborted,
		Fields:   req.Map(),
		Messages: res.Messages,
	}, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := cfg.Load(cmd); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Cleanup()

	pages, err := loadPages(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load page rules: %w", err)
	}

	values, err := parseArgs(args[1:])
	if err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")
	checker := fields.NewChecker(logger.Logger,
		fields.WithIPv6(cfg.AllowIPv6(cmd.Context())),
		fields.WithLanguage(cfg.Language))

	res, err := checkPage(checker, pages, strings.TrimSuffix(args[0], ".php"), values, sessionID)
	if err != nil {
		return err
	}

	logger.Logger.Debug("Page checked", zap.String("page", res.Page), zap.String("outcome", res.Outcome))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}

	if !res.Valid {
		return errNotValid
	}
	return nil
}
