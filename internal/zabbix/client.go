// Package zabbix клиент Zabbix API и Zabbix Sender. Используется для
// самомониторинга сервиса и командой call.
package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"zabbix_input/internal/apivalidator"
	"zabbix_input/internal/collector"
	zbx "zabbix_input/pkg/zabbix"
)

const (
	itemTypeTrapper = 2
	itemEnabled     = 0
)

// Client представляет клиент для работы с Zabbix API
type Client struct {
	url        string
	user       string
	password   string
	httpClient *http.Client
	logger     *zap.Logger
	timeout    time.Duration
	senderPort int

	// Правила для проверки параметров до отправки
	schemas   map[string]apivalidator.Rule
	validator *apivalidator.Validator

	authToken string
	authMutex sync.RWMutex
	hostID    string
	hostName  string
	// key -> itemID
	items      map[string]string
	itemsMutex sync.RWMutex

	requestID int
	idMutex   sync.Mutex

	sender *Sender
}

// ClientOption настройка Client
type ClientOption func(*Client)

// WithSenderPort задает порт trapper Zabbix сервера
func WithSenderPort(port int) ClientOption {
	return func(c *Client) {
		c.senderPort = port
	}
}

// WithSchemas включает локальную проверку параметров методов
func WithSchemas(schemas map[string]apivalidator.Rule, v *apivalidator.Validator) ClientOption {
	return func(c *Client) {
		c.schemas = schemas
		c.validator = v
	}
}

// NewClient создает новый Zabbix клиент
func NewClient(url, user, password string, timeout time.Duration, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		url:      url,
		user:     user,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:     logger,
		timeout:    timeout,
		senderPort: 10051,
		items:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getZabbixServerHost извлекает хост сервера из URL API
func (c *Client) getZabbixServerHost() (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("failed to parse zabbix URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("cannot extract hostname from URL: %s", c.url)
	}

	return host, nil
}

func (c *Client) getNextRequestID() int {
	c.idMutex.Lock()
	defer c.idMutex.Unlock()
	c.requestID++
	return c.requestID
}

// validate проверяет параметры метода локально, если для него есть правило
func (c *Client) validate(method string, params any) error {
	if c.validator == nil {
		return nil
	}
	rule, ok := c.schemas[strings.ToLower(method)]
	if !ok {
		return nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	data, err := apivalidator.Decode(raw)
	if err != nil {
		return err
	}
	return c.validator.Validate(rule, &data, "/")
}

// makeRequest выполняет HTTP запрос к Zabbix API. Ошибка API
// возвращается как *zbx.JSONRPCError.
func (c *Client) makeRequest(ctx context.Context, method string, params any) (*zbx.JSONRPCResponse, error) {
	if err := c.validate(method, params); err != nil {
		return nil, err
	}

	c.authMutex.RLock()
	authToken := c.authToken
	c.authMutex.RUnlock()

	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	request := zbx.JSONRPCRequest{
		JSONRPC: zbx.JSONRPCVersion,
		Method:  method,
		Params:  rawParams,
		ID:      c.getNextRequestID(),
	}
	if method != "user.login" && method != "apiinfo.version" {
		request.Auth = authToken
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug("Making Zabbix API request",
		zap.String("method", method),
		zap.String("url", c.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json-rpc")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var response zbx.JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if response.Error != nil {
		return nil, response.Error
	}

	return &response, nil
}

// Call вызывает произвольный метод и возвращает сырой результат
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	resp, err := c.makeRequest(ctx, method, params)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Login выполняет аутентификацию в Zabbix
func (c *Client) Login(ctx context.Context) error {
	c.logger.Info("Authenticating with Zabbix", zap.String("user", c.user))

	resp, err := c.makeRequest(ctx, "user.login", zbx.LoginParams{User: c.user, Password: c.password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	var authToken string
	if err := json.Unmarshal(resp.Result, &authToken); err != nil {
		return fmt.Errorf("failed to parse auth token: %w", err)
	}

	c.authMutex.Lock()
	c.authToken = authToken
	c.authMutex.Unlock()

	c.logger.Info("Successfully authenticated with Zabbix")
	return nil
}

// Logout закрывает сессию API
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.makeRequest(ctx, "user.logout", []any{}); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.authMutex.Lock()
	c.authToken = ""
	c.authMutex.Unlock()
	return nil
}

// findHost ищет хост по имени
func (c *Client) findHost(ctx context.Context, hostName string) error {
	c.logger.Info("Finding host in Zabbix", zap.String("host", hostName))

	params := zbx.HostGetParams{
		Output: []string{"hostid", "host", "name", "status"},
		Filter: map[string]string{"host": hostName},
	}

	resp, err := c.makeRequest(ctx, "host.get", params)
	if err != nil {
		return fmt.Errorf("failed to get host: %w", err)
	}

	var hosts []zbx.Host
	if err := json.Unmarshal(resp.Result, &hosts); err != nil {
		return fmt.Errorf("failed to parse hosts: %w", err)
	}

	if len(hosts) == 0 {
		return fmt.Errorf("host '%s' not found in Zabbix", hostName)
	}

	c.hostID = hosts[0].HostID
	c.hostName = hostName
	c.logger.Info("Found host",
		zap.String("hostID", c.hostID),
		zap.String("name", hosts[0].Name),
		zap.String("status", hosts[0].Status))

	return nil
}

// loadItems загружает существующие элементы данных для хоста
func (c *Client) loadItems(ctx context.Context) error {
	params := zbx.ItemGetParams{
		Output:  []string{"itemid", "name", "key_", "status"},
		HostIDs: []string{c.hostID},
	}

	resp, err := c.makeRequest(ctx, "item.get", params)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}

	var items []zbx.Item
	if err := json.Unmarshal(resp.Result, &items); err != nil {
		return fmt.Errorf("failed to parse items: %w", err)
	}

	c.itemsMutex.Lock()
	defer c.itemsMutex.Unlock()

	c.items = make(map[string]string, len(items))
	for _, item := range items {
		c.items[item.Key] = item.ItemID
	}

	c.logger.Info("Loaded items", zap.Int("count", len(items)))
	return nil
}

// createMissingItems создает отсутствующие trapper элементы данных
func (c *Client) createMissingItems(ctx context.Context) error {
	var itemsToCreate []zbx.ItemCreateParams

	c.itemsMutex.RLock()
	for _, item := range collector.Items() {
		if _, exists := c.items[item.Key]; !exists {
			itemsToCreate = append(itemsToCreate, zbx.ItemCreateParams{
				Name:        item.Name,
				Key:         item.Key,
				HostID:      c.hostID,
				Type:        itemTypeTrapper,
				ValueType:   item.ValueType,
				Description: item.Description,
				Status:      itemEnabled,
			})
		}
	}
	c.itemsMutex.RUnlock()

	if len(itemsToCreate) == 0 {
		c.logger.Info("All items already exist")
		return nil
	}

	c.logger.Info("Creating items", zap.Int("count", len(itemsToCreate)))

	resp, err := c.makeRequest(ctx, "item.create", itemsToCreate)
	if err != nil {
		return fmt.Errorf("failed to create items: %w", err)
	}

	var result map[string][]string
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("failed to parse create result: %w", err)
	}

	itemIDs := result["itemids"]
	if len(itemIDs) != len(itemsToCreate) {
		return fmt.Errorf("unexpected number of created items: got %d, expected %d",
			len(itemIDs), len(itemsToCreate))
	}

	c.itemsMutex.Lock()
	for i, itemID := range itemIDs {
		c.items[itemsToCreate[i].Key] = itemID
	}
	c.itemsMutex.Unlock()

	c.logger.Info("Successfully created items", zap.Int("count", len(itemIDs)))
	return nil
}

// Initialize авторизуется, находит хост, создает элементы данных и Sender
func (c *Client) Initialize(ctx context.Context, hostName string) error {
	c.logger.Info("Initializing Zabbix client")

	if err := c.Login(ctx); err != nil {
		return fmt.Errorf("failed to login: %w", err)
	}
	if err := c.findHost(ctx, hostName); err != nil {
		return fmt.Errorf("failed to find host: %w", err)
	}
	if err := c.loadItems(ctx); err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	if err := c.createMissingItems(ctx); err != nil {
		return fmt.Errorf("failed to create missing items: %w", err)
	}

	serverHost, err := c.getZabbixServerHost()
	if err != nil {
		return fmt.Errorf("failed to get zabbix server host: %w", err)
	}

	c.sender = NewSender(serverHost, c.senderPort, c.timeout, c.logger)
	c.logger.Info("Zabbix client initialized successfully",
		zap.String("server", serverHost),
		zap.Int("sender_port", c.senderPort))
	return nil
}

// SendMetrics отправляет метрики в Zabbix через Sender протокол
func (c *Client) SendMetrics(ctx context.Context, metrics *collector.MetricSet) error {
	if c.sender == nil {
		return errors.New("zabbix client is not initialized")
	}

	data := c.senderData(metrics)
	if len(data) == 0 {
		c.logger.Warn("No metrics to send")
		return nil
	}

	resp, err := c.sender.SendData(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to send metrics via sender: %w", err)
	}

	c.logger.Debug("Successfully sent metrics",
		zap.Int("count", len(data)),
		zap.String("info", resp.Info))
	return nil
}

// senderData отбирает значения элементов, которые есть на узле
func (c *Client) senderData(metrics *collector.MetricSet) []SenderData {
	c.itemsMutex.RLock()
	defer c.itemsMutex.RUnlock()

	values := metrics.Values()
	clock := metrics.Timestamp.Unix()

	data := make([]SenderData, 0, len(values))
	for _, item := range collector.Items() {
		if _, exists := c.items[item.Key]; !exists {
			continue
		}
		data = append(data, SenderData{Host: c.hostName, Key: item.Key, Value: values[item.Key], Clock: clock})
	}
	return data
}
