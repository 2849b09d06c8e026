// Package api обрабатывает вызовы JSON-RPC: проверяет авторизацию,
// валидирует параметры по правилам метода и передает их в Service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"zabbix_input/internal/apivalidator"
	"zabbix_input/internal/session"
	"zabbix_input/internal/stats"
	"zabbix_input/internal/verr"
	"zabbix_input/pkg/zabbix"
)

const (
	msgNotAuthorised     = "Not authorised."
	msgSessionTerminated = "Session terminated, re-login, please."
)

// Call проверенный вызов метода
type Call struct {
	Session session.Session
	Params  any
}

// HandlerFunc реализация метода
type HandlerFunc func(ctx context.Context, call Call) (any, error)

type method struct {
	auth    bool
	rule    apivalidator.Rule
	handler HandlerFunc
}

// Dispatcher маршрутизирует вызовы по имени метода
type Dispatcher struct {
	logger    *zap.Logger
	validator *apivalidator.Validator
	sessions  *session.Store
	counters  *stats.Counters
	methods   map[string]method
}

// NewDispatcher регистрирует методы Service
func NewDispatcher(svc *Service, sessions *session.Store, validator *apivalidator.Validator, counters *stats.Counters, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		logger:    logger,
		validator: validator,
		sessions:  sessions,
		counters:  counters,
		methods:   make(map[string]method),
	}

	schemas := Schemas()
	objects := func(fn func([]any) (any, error)) HandlerFunc {
		return func(_ context.Context, call Call) (any, error) {
			return fn(call.Params.([]any))
		}
	}
	object := func(fn func(map[string]any) (any, error)) HandlerFunc {
		return func(_ context.Context, call Call) (any, error) {
			return fn(call.Params.(map[string]any))
		}
	}

	d.Register("apiinfo.version", false, schemas["apiinfo.version"], func(context.Context, Call) (any, error) {
		return Version, nil
	})
	d.Register("user.login", false, schemas["user.login"], object(svc.Login))
	d.Register("user.logout", true, schemas["user.logout"], func(_ context.Context, call Call) (any, error) {
		return svc.Logout(call.Session)
	})
	d.Register("hostgroup.get", true, schemas["hostgroup.get"], object(svc.HostGroupGet))
	d.Register("hostgroup.create", true, schemas["hostgroup.create"], objects(svc.HostGroupCreate))
	d.Register("hostgroup.update", true, schemas["hostgroup.update"], objects(svc.HostGroupUpdate))
	d.Register("hostgroup.delete", true, schemas["hostgroup.delete"], objects(svc.HostGroupDelete))
	d.Register("drule.create", true, schemas["drule.create"], objects(svc.DRuleCreate))
	d.Register("maintenance.create", true, schemas["maintenance.create"], objects(svc.MaintenanceCreate))

	return d
}

// Register добавляет метод; имя не зависит от регистра
func (d *Dispatcher) Register(name string, auth bool, rule apivalidator.Rule, handler HandlerFunc) {
	d.methods[strings.ToLower(name)] = method{auth: auth, rule: rule, handler: handler}
}

func response(id any, result json.RawMessage, err *zabbix.JSONRPCError) zabbix.JSONRPCResponse {
	return zabbix.JSONRPCResponse{JSONRPC: zabbix.JSONRPCVersion, Result: result, Error: err, ID: id}
}

// Call выполняет запрос и всегда возвращает ответ JSON-RPC
func (d *Dispatcher) Call(ctx context.Context, req zabbix.JSONRPCRequest) zabbix.JSONRPCResponse {
	d.counters.APICalls.Add(1)

	result, rpcErr := d.call(ctx, req)
	if rpcErr != nil {
		if rpcErr.Code == zabbix.CodeInvalidParams {
			d.counters.APIRejected.Add(1)
		} else {
			d.counters.APIFailed.Add(1)
		}
		d.logger.Debug("API call failed",
			zap.String("method", req.Method),
			zap.Int("code", rpcErr.Code),
			zap.String("data", rpcErr.Data))
		return response(req.ID, nil, rpcErr)
	}
	return response(req.ID, result, nil)
}

func (d *Dispatcher) call(ctx context.Context, req zabbix.JSONRPCRequest) (json.RawMessage, *zabbix.JSONRPCError) {
	if req.JSONRPC != zabbix.JSONRPCVersion {
		return nil, zabbix.NewError(zabbix.CodeInvalidRequest, `Invalid parameter "/jsonrpc": value must be "2.0".`)
	}

	m, ok := d.methods[strings.ToLower(req.Method)]
	if !ok {
		return nil, zabbix.NewError(zabbix.CodeMethodNotFound, fmt.Sprintf("Incorrect method %q.", req.Method))
	}

	call := Call{}
	if m.auth {
		if req.Auth == "" {
			return nil, zabbix.NewError(zabbix.CodeInvalidParams, msgNotAuthorised)
		}
		sess, ok := d.sessions.Get(req.Auth)
		if !ok {
			return nil, zabbix.NewError(zabbix.CodeInvalidParams, msgSessionTerminated)
		}
		call.Session = sess
	} else if req.Auth != "" {
		return nil, zabbix.NewError(zabbix.CodeInvalidParams,
			fmt.Sprintf("The %q method must be called without the \"auth\" parameter.", req.Method))
	}

	var params any = map[string]any{}
	if len(req.Params) > 0 {
		decoded, err := apivalidator.Decode(req.Params)
		if err != nil {
			return nil, zabbix.NewError(zabbix.CodeInvalidParams, err.Error())
		}
		params = decoded
	}

	if err := d.validator.Validate(m.rule, &params, "/"); err != nil {
		var list verr.List
		if errors.As(err, &list) && len(list) > 0 {
			return nil, zabbix.NewError(zabbix.CodeInvalidParams, list.First().Message)
		}
		d.logger.Error("Validation rule failure", zap.String("method", req.Method), zap.Error(err))
		return nil, zabbix.NewError(zabbix.CodeInternalError, err.Error())
	}
	call.Params = params

	if err := ctx.Err(); err != nil {
		return nil, zabbix.NewError(zabbix.CodeInternalError, err.Error())
	}

	result, err := m.handler(ctx, call)
	if err != nil {
		var rpcErr *zabbix.JSONRPCError
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		d.logger.Error("API method failed", zap.String("method", req.Method), zap.Error(err))
		return nil, zabbix.NewError(zabbix.CodeInternalError, err.Error())
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, zabbix.NewError(zabbix.CodeInternalError, err.Error())
	}
	return raw, nil
}
