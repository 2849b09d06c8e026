package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"zabbix_input/pkg/zabbix"
)

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		s.handleBatch(w, r, body)
		return
	}

	var req zabbix.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Debug("Malformed API request", zap.Error(err))
		writeRPC(w, parseError(err))
		return
	}
	writeRPC(w, s.deps.Dispatcher.Call(r.Context(), req))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request, body []byte) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeRPC(w, parseError(err))
		return
	}
	if len(raw) == 0 {
		writeRPC(w, zabbix.JSONRPCResponse{
			JSONRPC: zabbix.JSONRPCVersion,
			Error:   zabbix.NewError(zabbix.CodeInvalidRequest, "Empty batch."),
		})
		return
	}

	responses := make([]zabbix.JSONRPCResponse, 0, len(raw))
	for _, item := range raw {
		var req zabbix.JSONRPCRequest
		if err := json.Unmarshal(item, &req); err != nil {
			responses = append(responses, zabbix.JSONRPCResponse{
				JSONRPC: zabbix.JSONRPCVersion,
				Error:   zabbix.NewError(zabbix.CodeInvalidRequest, err.Error()),
			})
			continue
		}
		responses = append(responses, s.deps.Dispatcher.Call(r.Context(), req))
	}
	writeRPC(w, responses)
}

func parseError(err error) zabbix.JSONRPCResponse {
	return zabbix.JSONRPCResponse{
		JSONRPC: zabbix.JSONRPCVersion,
		Error:   zabbix.NewError(zabbix.CodeParseError, err.Error()),
	}
}

func writeRPC(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json-rpc")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
