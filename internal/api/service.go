package api

import (
	"crypto/subtle"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"zabbix_input/internal/session"
	"zabbix_input/internal/validate"
	"zabbix_input/pkg/zabbix"
)

// Version версия API, которую сообщает apiinfo.version
const Version = "5.0.0"

const (
	msgLoginIncorrect = "Login name or password is incorrect."
	msgNoPermissions  = "No permissions to referred object or it does not exist!"
)

type user struct {
	id       string
	username string
	password string
}

// Service хранилище объектов API в памяти. Параметры методов
// приходят уже проверенными и приведенными валидатором.
type Service struct {
	logger   *zap.Logger
	sessions *session.Store

	mu           sync.Mutex
	lastID       uint64
	users        map[string]user
	groups       map[string]zabbix.HostGroup
	drules       map[string]zabbix.DRule
	maintenances map[string]zabbix.Maintenance
}

// NewService создает хранилище с пользователями Admin и guest
// и внутренней группой "Discovered hosts"
func NewService(sessions *session.Store, logger *zap.Logger) *Service {
	s := &Service{
		logger:       logger,
		sessions:     sessions,
		users:        make(map[string]user),
		groups:       make(map[string]zabbix.HostGroup),
		drules:       make(map[string]zabbix.DRule),
		maintenances: make(map[string]zabbix.Maintenance),
	}

	for _, u := range []struct{ name, password string }{{"Admin", "zabbix"}, {"guest", ""}} {
		id := s.nextID()
		s.users[u.name] = user{id: id, username: u.name, password: u.password}
	}

	id := s.nextID()
	s.groups[id] = zabbix.HostGroup{GroupID: id, Name: "Discovered hosts", Internal: 1}
	return s
}

func (s *Service) nextID() string {
	s.lastID++
	return strconv.FormatUint(s.lastID, 10)
}

func appError(format string, args ...any) error {
	return zabbix.NewError(zabbix.CodeApplication, fmt.Sprintf(format, args...))
}

// Authenticate проверяет пароль и открывает сессию
func (s *Service) Authenticate(name, password string) (session.Session, error) {
	s.mu.Lock()
	u, ok := s.users[name]
	s.mu.Unlock()

	if !ok || subtle.ConstantTimeCompare([]byte(u.password), []byte(password)) != 1 {
		s.logger.Info("Login failed", zap.String("user", name))
		return session.Session{}, appError(msgLoginIncorrect)
	}

	sess := s.sessions.Create(u.id, u.username)
	s.logger.Info("User logged in", zap.String("user", name))
	return sess, nil
}

// Login метод user.login
func (s *Service) Login(params map[string]any) (any, error) {
	sess, err := s.Authenticate(str(params, "user"), str(params, "password"))
	if err != nil {
		return nil, err
	}

	if b, _ := params["userData"].(bool); b {
		return map[string]any{
			"userid":    sess.UserID,
			"alias":     sess.Username,
			"sessionid": sess.ID,
		}, nil
	}
	return sess.ID, nil
}

// Logout закрывает сессию
func (s *Service) Logout(sess session.Session) (any, error) {
	if !s.sessions.Delete(sess.ID) {
		return nil, appError("Cannot log out.")
	}
	return true, nil
}

var hostGroupFields = []string{"groupid", "name", "internal", "flags"}

func hostGroupRow(g zabbix.HostGroup) map[string]any {
	return map[string]any{
		"groupid":  g.GroupID,
		"name":     g.Name,
		"internal": strconv.Itoa(g.Internal),
		"flags":    strconv.Itoa(g.Flags),
	}
}

// HostGroupGet выборка групп узлов сети
func (s *Service) HostGroupGet(params map[string]any) (any, error) {
	s.mu.Lock()
	groups := make([]zabbix.HostGroup, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	s.mu.Unlock()

	if ids, ok := params["groupids"].([]any); ok {
		groups = filterGroups(groups, func(g zabbix.HostGroup) bool { return containsAny(ids, g.GroupID) })
	}
	if filter, ok := params["filter"].(map[string]any); ok {
		if names, ok := filter["name"].([]any); ok {
			groups = filterGroups(groups, func(g zabbix.HostGroup) bool { return containsAny(names, g.Name) })
		}
	}

	sortGroups(groups, params["sortfield"], params["sortorder"])

	if limit, ok := params["limit"].(int); ok && limit < len(groups) {
		groups = groups[:limit]
	}

	if count, _ := params["countOutput"].(bool); count || params["output"] == "count" {
		return strconv.Itoa(len(groups)), nil
	}

	output := hostGroupFields
	if list, ok := params["output"].([]any); ok {
		output = make([]string, 0, len(list))
		for _, f := range list {
			output = append(output, f.(string))
		}
	}

	result := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		full := hostGroupRow(g)
		row := make(map[string]any, len(output))
		for _, f := range output {
			row[f] = full[f]
		}
		result = append(result, row)
	}
	return result, nil
}

func filterGroups(groups []zabbix.HostGroup, keep func(zabbix.HostGroup) bool) []zabbix.HostGroup {
	out := groups[:0]
	for _, g := range groups {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

func sortGroups(groups []zabbix.HostGroup, sortfield, sortorder any) {
	fieldList, _ := sortfield.([]any)
	if len(fieldList) == 0 {
		fieldList = []any{"groupid"}
	}

	desc := func(i int) bool {
		switch o := sortorder.(type) {
		case string:
			return o == "DESC"
		case []any:
			if i < len(o) {
				return o[i] == "DESC"
			}
		}
		return false
	}

	sort.SliceStable(groups, func(a, b int) bool {
		for i, f := range fieldList {
			var c int
			switch f {
			case "name":
				c = strings.Compare(groups[a].Name, groups[b].Name)
			default:
				c = compareIDs(groups[a].GroupID, groups[b].GroupID)
			}
			if c == 0 {
				continue
			}
			if desc(i) {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareIDs(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// HostGroupCreate создает группы
func (s *Service) HostGroupCreate(items []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		name := str(item.(map[string]any), "name")
		if _, exists := s.groupByName(name); exists {
			return nil, appError("Host group %q already exists.", name)
		}
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		id := s.nextID()
		s.groups[id] = zabbix.HostGroup{GroupID: id, Name: str(item.(map[string]any), "name")}
		ids = append(ids, id)
	}

	s.logger.Info("Host groups created", zap.Strings("groupids", ids))
	return map[string]any{"groupids": ids}, nil
}

// HostGroupUpdate переименовывает группы
func (s *Service) HostGroupUpdate(items []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		obj := item.(map[string]any)
		id := str(obj, "groupid")
		g, ok := s.groups[id]
		if !ok {
			return nil, appError(msgNoPermissions)
		}
		name, rename := obj["name"].(string)
		if !rename || name == g.Name {
			continue
		}
		if g.Internal == 1 {
			return nil, appError("Cannot update name of internal host group %q.", g.Name)
		}
		if other, exists := s.groupByName(name); exists && other.GroupID != id {
			return nil, appError("Host group %q already exists.", name)
		}
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		obj := item.(map[string]any)
		id := str(obj, "groupid")
		g := s.groups[id]
		if name, ok := obj["name"].(string); ok {
			g.Name = name
		}
		s.groups[id] = g
		ids = append(ids, id)
	}
	return map[string]any{"groupids": ids}, nil
}

// HostGroupDelete удаляет группы
func (s *Service) HostGroupDelete(ids []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, raw := range ids {
		id := raw.(string)
		g, ok := s.groups[id]
		if !ok {
			return nil, appError(msgNoPermissions)
		}
		if g.Internal == 1 {
			return nil, appError("Host group %q is internal and cannot be deleted.", g.Name)
		}
		for _, m := range s.maintenances {
			if len(m.HostIDs) == 0 && len(m.GroupIDs) == 1 && m.GroupIDs[0] == id {
				return nil, appError("Cannot delete host group %q because maintenance %q must contain at least one host or host group.", g.Name, m.Name)
			}
		}
	}

	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := raw.(string)
		delete(s.groups, id)
		out = append(out, id)
	}
	return map[string]any{"groupids": out}, nil
}

func (s *Service) groupByName(name string) (zabbix.HostGroup, bool) {
	for _, g := range s.groups {
		if g.Name == name {
			return g, true
		}
	}
	return zabbix.HostGroup{}, false
}

// DRuleCreate создает правила обнаружения
func (s *Service) DRuleCreate(items []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules := make([]zabbix.DRule, 0, len(items))
	for _, item := range items {
		obj := item.(map[string]any)
		r := zabbix.DRule{
			Name:        str(obj, "name"),
			ProxyHostID: str(obj, "proxy_hostid"),
			IPRange:     str(obj, "iprange"),
			Delay:       num(obj, "delay"),
			Status:      num(obj, "status"),
		}
		for _, d := range s.drules {
			if d.Name == r.Name {
				return nil, appError("Discovery rule %q already exists.", r.Name)
			}
		}
		for _, raw := range obj["dchecks"].([]any) {
			dc := raw.(map[string]any)
			check := zabbix.DCheck{Type: num(dc, "type"), Ports: str(dc, "ports"), Key: str(dc, "key_")}
			if !validate.PortList(check.Ports) {
				return nil, appError("Incorrect port range.")
			}
			r.DChecks = append(r.DChecks, check)
		}
		rules = append(rules, r)
	}

	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		r.DRuleID = s.nextID()
		s.drules[r.DRuleID] = r
		ids = append(ids, r.DRuleID)
	}
	return map[string]any{"druleids": ids}, nil
}

// MaintenanceCreate создает периоды обслуживания
func (s *Service) MaintenanceCreate(items []any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]zabbix.Maintenance, 0, len(items))
	for _, item := range items {
		obj := item.(map[string]any)
		m := zabbix.Maintenance{
			Name:            str(obj, "name"),
			MaintenanceType: num(obj, "maintenance_type"),
			Description:     str(obj, "description"),
			ActiveSince:     num(obj, "active_since"),
			ActiveTill:      num(obj, "active_till"),
			GroupIDs:        strs(obj, "groupids"),
			HostIDs:         strs(obj, "hostids"),
		}

		for _, existing := range s.maintenances {
			if existing.Name == m.Name {
				return nil, appError("Maintenance %q already exists.", m.Name)
			}
		}
		if m.ActiveTill <= m.ActiveSince {
			return nil, appError("Maintenance \"active_since\" must be less than \"active_till\".")
		}
		if len(m.GroupIDs) == 0 && len(m.HostIDs) == 0 {
			return nil, appError("At least one host group or host must be selected.")
		}
		for _, id := range m.GroupIDs {
			if _, ok := s.groups[id]; !ok {
				return nil, appError(msgNoPermissions)
			}
		}
		if len(m.HostIDs) > 0 {
			return nil, appError(msgNoPermissions)
		}

		periods, _ := obj["timeperiods"].([]any)
		for _, raw := range periods {
			tp := raw.(map[string]any)
			m.TimePeriods = append(m.TimePeriods, zabbix.TimePeriod{
				TimePeriodType: num(tp, "timeperiod_type"),
				Period:         num(tp, "period"),
				StartDate:      num(tp, "start_date"),
				StartTime:      num(tp, "start_time"),
				Every:          num(tp, "every"),
			})
		}
		list = append(list, m)
	}

	ids := make([]string, 0, len(list))
	for _, m := range list {
		m.MaintenanceID = s.nextID()
		s.maintenances[m.MaintenanceID] = m
		ids = append(ids, m.MaintenanceID)
	}
	return map[string]any{"maintenanceids": ids}, nil
}

func str(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func num(obj map[string]any, key string) int {
	n, _ := obj[key].(int)
	return n
}

func strs(obj map[string]any, key string) []string {
	list, _ := obj[key].([]any)
	out := make([]string, 0, len(list))
	for _, x := range list {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(list []any, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
