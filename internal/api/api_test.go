package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zabbix_input/internal/apivalidator"
	"zabbix_input/internal/session"
	"zabbix_input/internal/stats"
	"zabbix_input/pkg/zabbix"
)

type fixture struct {
	d        *Dispatcher
	counters *stats.Counters
	auth     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	sessions := session.NewStore(time.Hour, logger)
	counters := &stats.Counters{}
	d := NewDispatcher(NewService(sessions, logger), sessions, apivalidator.New(logger), counters, logger)

	f := &fixture{d: d, counters: counters}
	resp := f.call(t, "user.login", `{"user":"Admin","password":"zabbix"}`)
	require.Nil(t, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Result, &f.auth))
	return f
}

func (f *fixture) call(t *testing.T, method, params string) zabbix.JSONRPCResponse {
	t.Helper()
	req := zabbix.JSONRPCRequest{JSONRPC: "2.0", Method: method, ID: 1}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	if !strings.EqualFold(method, "user.login") && !strings.EqualFold(method, "apiinfo.version") {
		req.Auth = f.auth
	}
	return f.d.Call(context.Background(), req)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.auth, 32)

	resp := f.call(t, "user.login", `{"user":"Admin","password":"wrong"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, zabbix.CodeApplication, resp.Error.Code)
	assert.Equal(t, msgLoginIncorrect, resp.Error.Data)

	resp = f.call(t, "user.login", `{"user":"Admin"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, zabbix.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, `Invalid parameter "/": the parameter "password" is missing.`, resp.Error.Data)

	resp = f.call(t, "user.login", `{"user":"guest","password":"","userData":true}`)
	require.Nil(t, resp.Error)
	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Result, &data))
	assert.Equal(t, "guest", data["alias"])
	assert.Len(t, data["sessionid"], 32)
}

func TestAuthorisation(t *testing.T) {
	f := newFixture(t)

	resp := f.d.Call(context.Background(), zabbix.JSONRPCRequest{JSONRPC: "2.0", Method: "hostgroup.get", ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, msgNotAuthorised, resp.Error.Data)

	resp = f.d.Call(context.Background(), zabbix.JSONRPCRequest{JSONRPC: "2.0", Method: "hostgroup.get", Auth: "deadbeef", ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, msgSessionTerminated, resp.Error.Data)

	resp = f.d.Call(context.Background(), zabbix.JSONRPCRequest{JSONRPC: "2.0", Method: "apiinfo.version", Auth: f.auth, ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, zabbix.CodeInvalidParams, resp.Error.Code)

	resp = f.call(t, "user.logout", `[]`)
	require.Nil(t, resp.Error)
	resp = f.call(t, "hostgroup.get", "")
	require.NotNil(t, resp.Error)
	assert.Equal(t, msgSessionTerminated, resp.Error.Data)
}

func TestDispatcherErrors(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "host.massupdate", "{}")
	require.NotNil(t, resp.Error)
	assert.Equal(t, zabbix.CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, `Incorrect method "host.massupdate".`, resp.Error.Data)

	resp = f.d.Call(context.Background(), zabbix.JSONRPCRequest{JSONRPC: "1.0", Method: "apiinfo.version", ID: 7})
	require.NotNil(t, resp.Error)
	assert.Equal(t, zabbix.CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, 7, resp.ID)

	resp = f.call(t, "APIInfo.Version", "")
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `"`+Version+`"`, string(resp.Result))

	snap := f.counters.Snapshot()
	assert.Equal(t, uint64(4), snap.APICalls)
	assert.Equal(t, uint64(2), snap.APIFailed)
}

func TestHostGroupLifecycle(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "hostgroup.create", `[{"name":"Linux servers"},{"name":"Zabbix servers"}]`)
	require.Nil(t, resp.Error)
	var created struct {
		GroupIDs []string `json:"groupids"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &created))
	require.Len(t, created.GroupIDs, 2)

	resp = f.call(t, "hostgroup.create", `{"name":"Linux servers"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, `Host group "Linux servers" already exists.`, resp.Error.Data)

	resp = f.call(t, "hostgroup.get", `{"output":["name"],"sortfield":"name","sortorder":"DESC"}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `[{"name":"Zabbix servers"},{"name":"Linux servers"},{"name":"Discovered hosts"}]`, string(resp.Result))

	resp = f.call(t, "hostgroup.get", `{"countOutput":true,"filter":{"name":"Linux servers"}}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `"1"`, string(resp.Result))

	resp = f.call(t, "hostgroup.update", `{"groupid":"`+created.GroupIDs[0]+`","name":"Zabbix servers"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, `Host group "Zabbix servers" already exists.`, resp.Error.Data)

	resp = f.call(t, "hostgroup.update", `{"groupid":"`+created.GroupIDs[0]+`","name":"Linux"}`)
	require.Nil(t, resp.Error)

	resp = f.call(t, "hostgroup.delete", `["`+created.GroupIDs[1]+`"]`)
	require.Nil(t, resp.Error)

	resp = f.call(t, "hostgroup.delete", `["`+created.GroupIDs[1]+`"]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, msgNoPermissions, resp.Error.Data)

	resp = f.call(t, "hostgroup.get", `{"output":"extend","limit":1}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `[{"groupid":"3","name":"Discovered hosts","internal":"1","flags":"0"}]`, string(resp.Result))
}

func TestHostGroupValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		method string
		params string
		data   string
	}{
		{"hostgroup.create", `[]`, `Invalid parameter "/": cannot be empty.`},
		{"hostgroup.create", `[{"name":"a/"}]`, `Invalid parameter "/1/name": invalid host group name.`},
		{"hostgroup.create", `[{"name":"a"},{"name":"b"},{"name":"a"}]`, `Invalid parameter "/3": value (name)=(a) already exists.`},
		{"hostgroup.create", `[{"name":"a","flags":4}]`, `Invalid parameter "/1": unexpected parameter "flags".`},
		{"hostgroup.update", `[{"name":"a"}]`, `Invalid parameter "/1": the parameter "groupid" is missing.`},
		{"hostgroup.update", `[{"groupid":"5"},{"groupid":"05"}]`, `Invalid parameter "/2": value (groupid)=(5) already exists.`},
		{"hostgroup.delete", `["1","2","1"]`, `Invalid parameter "/3": value (1) already exists.`},
		{"hostgroup.get", `{"sortorder":"UP"}`, `Invalid parameter "/sortorder": value must be one of 'ASC', 'DESC'.`},
		{"hostgroup.get", `{"output":"count"}`, ``},
		{"hostgroup.get", `{"output":["hosts"]}`, `Invalid parameter "/output/1": value must be one of groupid, name, internal, flags.`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.params, func(t *testing.T) {
			resp := f.call(t, tt.method, tt.params)
			if tt.data == "" {
				assert.Nil(t, resp.Error)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, zabbix.CodeInvalidParams, resp.Error.Code)
			assert.Equal(t, tt.data, resp.Error.Data)
		})
	}
}

func TestInternalGroup(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "hostgroup.delete", `["3"]`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, `Host group "Discovered hosts" is internal and cannot be deleted.`, resp.Error.Data)
}

func TestDRuleCreate(t *testing.T) {
	f := newFixture(t)

	resp := f.call(t, "drule.create", `{"name":"LAN","iprange":"192.168.1.1-255","dchecks":[{"type":9,"ports":"10050","key_":"system.uname"}]}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"druleids":["4"]}`, string(resp.Result))

	tests := []struct {
		params string
		data   string
	}{
		{`{"name":"LAN","iprange":"10.0.0.1","dchecks":[{"type":0}]}`, `Discovery rule "LAN" already exists.`},
		{`{"name":"x","iprange":"10.0.0.300","dchecks":[{"type":0}]}`, `Invalid parameter "/1/iprange": invalid IP address range.`},
		{`{"name":"x","iprange":"10.0.0.1","delay":0,"dchecks":[{"type":0}]}`, `Invalid parameter "/1/delay": value must be one of 1-604800.`},
		{`{"name":"x","iprange":"10.0.0.1","dchecks":[]}`, `Invalid parameter "/1/dchecks": cannot be empty.`},
		{`{"name":"x","iprange":"10.0.0.1","dchecks":[{"type":0,"ports":"80"},{"type":0,"ports":"80"}]}`, `Invalid parameter "/1/dchecks/2": value (type, ports, key_)=(0, 80, ) already exists.`},
		{`{"name":"x","iprange":"10.0.0.1","dchecks":[{"type":0,"ports":"70000"}]}`, `Incorrect port range.`},
	}
	for _, tt := range tests {
		resp := f.call(t, "drule.create", tt.params)
		require.NotNil(t, resp.Error, tt.params)
		assert.Equal(t, tt.data, resp.Error.Data)
	}
}

func TestMaintenanceCreate(t *testing.T) {
	f := newFixture(t)

	base := `"name":"night","active_since":1700000000,"active_till":1700086400`
	resp := f.call(t, "maintenance.create", `{`+base+`,"groupids":["3"],"timeperiods":[{"timeperiod_type":0,"period":3600}]}`)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"maintenanceids":["4"]}`, string(resp.Result))

	resp = f.call(t, "hostgroup.delete", `["3"]`)
	require.NotNil(t, resp.Error)

	resp = f.call(t, "maintenance.create", `{"name":"n2","active_since":1700000000,"active_till":1700000000,"groupids":["3"]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, `Maintenance "active_since" must be less than "active_till".`, resp.Error.Data)

	resp = f.call(t, "maintenance.create", `{"name":"n3","active_since":1,"active_till":2}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, `At least one host group or host must be selected.`, resp.Error.Data)

	resp = f.call(t, "maintenance.create", `{"name":"n4","active_since":1,"active_till":2,"groupids":["3"],"timeperiods":[{"period":60}]}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, `Invalid parameter "/1/timeperiods/1/period": value must be one of 300-2147483647.`, resp.Error.Data)
}
