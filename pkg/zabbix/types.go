package zabbix

import (
	"encoding/json"
	"fmt"
)

// JSONRPCVersion версия протокола
const JSONRPCVersion = "2.0"

// Коды ошибок JSON-RPC, которые возвращает API
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeApplication    = -32500
)

// JSONRPCRequest представляет JSON-RPC запрос к Zabbix API
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Auth    string          `json:"auth,omitempty"`
	ID      any             `json:"id"`
}

// JSONRPCResponse представляет JSON-RPC ответ от Zabbix API
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// JSONRPCError представляет ошибку JSON-RPC
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("zabbix API error: %s (code: %d, data: %s)", e.Message, e.Code, e.Data)
}

// NewError ошибка со стандартным текстом для кода
func NewError(code int, data string) *JSONRPCError {
	msg := "Application error."
	switch code {
	case CodeParseError:
		msg = "Parse error."
	case CodeInvalidRequest:
		msg = "Invalid Request."
	case CodeMethodNotFound:
		msg = "Method not found."
	case CodeInvalidParams:
		msg = "Invalid params."
	case CodeInternalError:
		msg = "Internal error."
	}
	return &JSONRPCError{Code: code, Message: msg, Data: data}
}

// LoginParams параметры для авторизации
type LoginParams struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// HostGroup группа узлов сети
type HostGroup struct {
	GroupID  string `json:"groupid"`
	Name     string `json:"name"`
	Internal int    `json:"internal"`
	Flags    int    `json:"flags"`
}

// DRule правило обнаружения сети
type DRule struct {
	DRuleID     string   `json:"druleid"`
	Name        string   `json:"name"`
	ProxyHostID string   `json:"proxy_hostid,omitempty"`
	IPRange     string   `json:"iprange"`
	Delay       int      `json:"delay"`
	Status      int      `json:"status"`
	DChecks     []DCheck `json:"dchecks"`
}

// DCheck проверка правила обнаружения
type DCheck struct {
	Type  int    `json:"type"`
	Ports string `json:"ports"`
	Key   string `json:"key_,omitempty"`
}

// Maintenance период обслуживания
type Maintenance struct {
	MaintenanceID   string       `json:"maintenanceid"`
	Name            string       `json:"name"`
	MaintenanceType int          `json:"maintenance_type"`
	Description     string       `json:"description"`
	ActiveSince     int          `json:"active_since"`
	ActiveTill      int          `json:"active_till"`
	GroupIDs        []string     `json:"groupids,omitempty"`
	HostIDs         []string     `json:"hostids,omitempty"`
	TimePeriods     []TimePeriod `json:"timeperiods,omitempty"`
}

// TimePeriod интервал периода обслуживания
type TimePeriod struct {
	TimePeriodType int `json:"timeperiod_type"`
	Period         int `json:"period"`
	StartDate      int `json:"start_date,omitempty"`
	StartTime      int `json:"start_time,omitempty"`
	Every          int `json:"every,omitempty"`
}

// HostGetParams параметры для получения хоста
type HostGetParams struct {
	Output []string          `json:"output"`
	Filter map[string]string `json:"filter"`
}

// Host представляет хост в Zabbix
type Host struct {
	HostID string `json:"hostid"`
	Host   string `json:"host"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ItemGetParams параметры для получения элементов данных
type ItemGetParams struct {
	Output  []string          `json:"output"`
	HostIDs []string          `json:"hostids"`
	Filter  map[string]string `json:"filter,omitempty"`
}

// Item представляет элемент данных в Zabbix
type Item struct {
	ItemID    string `json:"itemid"`
	Name      string `json:"name"`
	Key       string `json:"key_"`
	HostID    string `json:"hostid"`
	Status    string `json:"status"`
	ValueType string `json:"value_type"`
}

// ItemCreateParams параметры для создания элемента данных
type ItemCreateParams struct {
	Name        string `json:"name"`
	Key         string `json:"key_"`
	HostID      string `json:"hostid"`
	Type        int    `json:"type"`       // 2 - Zabbix trapper
	ValueType   int    `json:"value_type"` // 0 - float, 3 - unsigned int
	Description string `json:"description,omitempty"`
	Status      int    `json:"status"`
}
