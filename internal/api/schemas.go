package api

import (
	v "zabbix_input/internal/apivalidator"
)

const (
	hostGroupNameLength   = 255
	druleNameLength       = 255
	ipRangeLength         = 2048
	maintenanceNameLength = 128
	descriptionLength     = 2048
)

var hostGroupGet = v.Rule{Type: v.TypeObject, Fields: []v.Field{
	v.F("groupids", v.Rule{Type: v.TypeIDs, Flags: v.FlagAllowNull | v.FlagNormalize}),
	v.F("filter", v.Rule{Type: v.TypeObject, Flags: v.FlagAllowNull, Fields: []v.Field{
		v.F("name", v.Rule{Type: v.TypeStringsUTF8, Flags: v.FlagAllowNull | v.FlagNormalize}),
	}}),
	v.F("output", v.Rule{Type: v.TypeOutput, Flags: v.FlagAllowCount, In: "groupid,name,internal,flags", Default: "extend"}),
	v.F("countOutput", v.Rule{Type: v.TypeFlag, Default: false}),
	v.F("sortfield", v.Rule{Type: v.TypeStringsUTF8, Flags: v.FlagAllowNull | v.FlagNormalize, In: "groupid,name", Unique: true}),
	v.F("sortorder", v.Rule{Type: v.TypeSortOrder, Default: "ASC"}),
	v.F("limit", v.Rule{Type: v.TypeInt32, Flags: v.FlagAllowNull, In: "1:2147483647"}),
}}

var hostGroupCreate = v.Rule{Type: v.TypeObjects, Flags: v.FlagNotEmpty | v.FlagNormalize, Uniq: [][]string{{"name"}}, Fields: []v.Field{
	v.F("name", v.Rule{Type: v.TypeHostGroupName, Flags: v.FlagRequired | v.FlagNotEmpty, Length: hostGroupNameLength}),
}}

var hostGroupUpdate = v.Rule{Type: v.TypeObjects, Flags: v.FlagNotEmpty | v.FlagNormalize, Uniq: [][]string{{"groupid"}, {"name"}}, Fields: []v.Field{
	v.F("groupid", v.Rule{Type: v.TypeID, Flags: v.FlagRequired}),
	v.F("name", v.Rule{Type: v.TypeHostGroupName, Flags: v.FlagNotEmpty, Length: hostGroupNameLength}),
}}

var hostGroupDelete = v.Rule{Type: v.TypeIDs, Flags: v.FlagNotEmpty, Unique: true}

var druleCreate = v.Rule{Type: v.TypeObjects, Flags: v.FlagNotEmpty | v.FlagNormalize, Uniq: [][]string{{"name"}}, Fields: []v.Field{
	v.F("name", v.Rule{Type: v.TypeStringUTF8, Flags: v.FlagRequired | v.FlagNotEmpty, Length: druleNameLength}),
	v.F("proxy_hostid", v.Rule{Type: v.TypeID}),
	v.F("iprange", v.Rule{Type: v.TypeIPRanges, Flags: v.FlagRequired | v.FlagNotEmpty, Length: ipRangeLength}),
	v.F("delay", v.Rule{Type: v.TypeInt32, In: "1:604800", Default: 3600}),
	v.F("status", v.Rule{Type: v.TypeInt32, In: "0,1", Default: 0}),
	v.F("dchecks", v.Rule{Type: v.TypeObjects, Flags: v.FlagRequired | v.FlagNotEmpty, Uniq: [][]string{{"type", "ports", "key_"}}, Fields: []v.Field{
		v.F("type", v.Rule{Type: v.TypeInt32, Flags: v.FlagRequired, In: "0:15"}),
		v.F("ports", v.Rule{Type: v.TypeStringUTF8, Length: 255, Default: "0"}),
		v.F("key_", v.Rule{Type: v.TypeStringUTF8, Length: 512, Default: ""}),
	}}),
}}

var maintenanceCreate = v.Rule{Type: v.TypeObjects, Flags: v.FlagNotEmpty | v.FlagNormalize, Uniq: [][]string{{"name"}}, Fields: []v.Field{
	v.F("name", v.Rule{Type: v.TypeStringUTF8, Flags: v.FlagRequired | v.FlagNotEmpty, Length: maintenanceNameLength}),
	v.F("maintenance_type", v.Rule{Type: v.TypeInt32, In: "0,1", Default: 0}),
	v.F("description", v.Rule{Type: v.TypeStringUTF8, Length: descriptionLength, Default: ""}),
	v.F("active_since", v.Rule{Type: v.TypeInt32, Flags: v.FlagRequired, In: "0:2147464800"}),
	v.F("active_till", v.Rule{Type: v.TypeInt32, Flags: v.FlagRequired, In: "0:2147464800"}),
	v.F("groupids", v.Rule{Type: v.TypeIDs, Unique: true}),
	v.F("hostids", v.Rule{Type: v.TypeIDs, Unique: true}),
	v.F("timeperiods", v.Rule{Type: v.TypeObjects, Fields: []v.Field{
		v.F("timeperiod_type", v.Rule{Type: v.TypeInt32, In: "0,2,3,4", Default: 0}),
		v.F("period", v.Rule{Type: v.TypeInt32, In: "300:2147483647", Default: 3600}),
		v.F("start_date", v.Rule{Type: v.TypeInt32, In: "0:2147464800"}),
		v.F("start_time", v.Rule{Type: v.TypeInt32, In: "0:86399"}),
		v.F("every", v.Rule{Type: v.TypeInt32, In: "1:2147483647"}),
	}}),
}}

var userLogin = v.Rule{Type: v.TypeObject, Fields: []v.Field{
	v.F("user", v.Rule{Type: v.TypeStringUTF8, Flags: v.FlagRequired, Length: 255}),
	v.F("password", v.Rule{Type: v.TypeStringUTF8, Flags: v.FlagRequired, Length: 255}),
	v.F("userData", v.Rule{Type: v.TypeFlag, Default: false}),
}}

var emptyParams = v.Rule{Type: v.TypeObject}

// Schemas правила параметров методов API по имени метода
func Schemas() map[string]v.Rule {
	return map[string]v.Rule{
		"apiinfo.version":    emptyParams,
		"user.login":         userLogin,
		"user.logout":        emptyParams,
		"hostgroup.get":      hostGroupGet,
		"hostgroup.create":   hostGroupCreate,
		"hostgroup.update":   hostGroupUpdate,
		"hostgroup.delete":   hostGroupDelete,
		"drule.create":       druleCreate,
		"maintenance.create": maintenanceCreate,
	}
}
