package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/Daytona2026/Warmano-webseite/internal/api/odoo"
	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
)

// FakeCall records one execute_kw call received by FakeOdoo.
type FakeCall struct {
	Model  string
	Method string
	Args   xmlrpc.Value
	Kwargs xmlrpc.Value
}

type fakeModel struct {
	nextID  int64
	order   []int64
	records map[int64]map[string]xmlrpc.Value
}

// FakeOdoo is an in-memory stand-in for the Odoo object API. It implements
// the Execute method used by the domain operations and can also serve the
// XML-RPC endpoints over HTTP for client tests.
//
// Domains support the '=', '!=', 'like', 'ilike' and 'in' operators, and a
// single level of dotted field access through relations declared with
// Relate.
type FakeOdoo struct {
	Database string
	Username string
	APIKey   string
	UID      int64

	mu          sync.Mutex
	models      map[string]*fakeModel
	relations   map[string]string
	failures    map[string]string
	onCreate    map[string]func(id int64, vals xmlrpc.Value)
	calls       []FakeCall
	rejectNext  int
	authCount   int
	nextIDStart int64
}

// NewFakeOdoo returns an empty fake with default credentials.
func NewFakeOdoo() *FakeOdoo {
	return &FakeOdoo{
		Database:    "warmano-test",
		Username:    "api@warmano.test",
		APIKey:      "test-key",
		UID:         2,
		models:      map[string]*fakeModel{},
		relations:   map[string]string{},
		failures:    map[string]string{},
		onCreate:    map[string]func(int64, xmlrpc.Value){},
		nextIDStart: 1,
	}
}

// Credentials returns credentials accepted by Handler for baseURL.
func (f *FakeOdoo) Credentials(baseURL string) odoo.Credentials {
	return odoo.Credentials{
		BaseURL:  baseURL,
		Database: f.Database,
		Username: f.Username,
		APIKey:   f.APIKey,
	}
}

func (f *FakeOdoo) model(name string) *fakeModel {
	m, ok := f.models[name]
	if !ok {
		m = &fakeModel{nextID: f.nextIDStart, records: map[int64]map[string]xmlrpc.Value{}}
		f.models[name] = m
	}
	return m
}

// Seed inserts a record and returns its id.
func (f *FakeOdoo) Seed(model string, vals map[string]any) int64 {
	v, err := xmlrpc.FromGo(vals)
	if err != nil {
		panic(fmt.Sprintf("testutil: seed %s: %v", model, err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(model, v)
}

func (f *FakeOdoo) insert(model string, vals xmlrpc.Value) int64 {
	m := f.model(model)
	id := m.nextID
	m.nextID++
	rec := make(map[string]xmlrpc.Value, vals.Len()+1)
	for k, v := range vals.Members() {
		rec[k] = v
	}
	rec["id"] = xmlrpc.Int(id)
	m.records[id] = rec
	m.order = append(m.order, id)
	return id
}

// Update merges vals into an existing record. It is a no-op for unknown ids.
func (f *FakeOdoo) Update(model string, id int64, vals map[string]any) {
	v, err := xmlrpc.FromGo(vals)
	if err != nil {
		panic(fmt.Sprintf("testutil: update %s: %v", model, err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.model(model).records[id]
	if !ok {
		return
	}
	for k, mv := range v.Members() {
		rec[k] = mv
	}
}

// Relate declares that model.field points at records of target, enabling
// domains such as [["stage_id.is_won", "=", true]].
func (f *FakeOdoo) Relate(model, field, target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relations[model+"."+field] = target
}

// Fail makes every call of model.method return a fault with message.
func (f *FakeOdoo) Fail(model, method, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[model+"."+method] = message
}

// OnCreate registers a hook run after a record of model is created.
func (f *FakeOdoo) OnCreate(model string, fn func(id int64, vals xmlrpc.Value)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCreate[model] = fn
}

// RejectSessions makes the next n execute_kw requests served over HTTP fail
// with an AccessDenied fault.
func (f *FakeOdoo) RejectSessions(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectNext = n
}

// AuthCount returns how many authenticate calls were served over HTTP.
func (f *FakeOdoo) AuthCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCount
}

// Record returns a copy of a stored record.
func (f *FakeOdoo) Record(model string, id int64) (map[string]xmlrpc.Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.model(model).records[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]xmlrpc.Value, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, true
}

// Count returns the number of records of model.
func (f *FakeOdoo) Count(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.model(model).records)
}

// Calls returns the execute_kw calls received so far.
func (f *FakeOdoo) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// CallCount counts calls of model.method.
func (f *FakeOdoo) CallCount(model, method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Model == model && c.Method == method {
			n++
		}
	}
	return n
}

// Execute implements the executor used by the domain operations. Faults are
// returned wrapped the same way the real client wraps them.
func (f *FakeOdoo) Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (xmlrpc.Value, error) {
	if err := ctx.Err(); err != nil {
		return xmlrpc.Value{}, &odoo.RemoteError{Model: model, Method: method, Err: &odoo.TransportError{Endpoint: "/xmlrpc/2/object", Err: err}}
	}
	argv, err := xmlrpc.FromGo(args)
	if err != nil {
		return xmlrpc.Value{}, &odoo.RemoteError{Model: model, Method: method, Err: err}
	}
	kw, err := xmlrpc.FromGo(kwargs)
	if err != nil {
		return xmlrpc.Value{}, &odoo.RemoteError{Model: model, Method: method, Err: err}
	}
	result, fault := f.dispatch(model, method, argv, kw)
	if fault != nil {
		return xmlrpc.Value{}, &odoo.RemoteError{Model: model, Method: method, Err: &odoo.RemoteFault{Fault: fault}}
	}
	return result, nil
}

// Handler serves /xmlrpc/2/common and /xmlrpc/2/object.
func (f *FakeOdoo) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		method, params, err := xmlrpc.DecodeCall(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var (
			result xmlrpc.Value
			fault  *xmlrpc.Fault
		)
		switch r.URL.Path {
		case "/xmlrpc/2/common":
			result, fault = f.serveCommon(method, params)
		case "/xmlrpc/2/object":
			result, fault = f.serveObject(method, params)
		default:
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/xml")
		if fault != nil {
			_, _ = w.Write(xmlrpc.EncodeFault(fault))
			return
		}
		_, _ = w.Write(xmlrpc.EncodeResponse(result))
	})
}

func (f *FakeOdoo) serveCommon(method string, params []xmlrpc.Value) (xmlrpc.Value, *xmlrpc.Fault) {
	switch method {
	case "version":
		return xmlrpc.Struct(map[string]xmlrpc.Value{
			"server_version":   xmlrpc.Text("17.0"),
			"protocol_version": xmlrpc.Int(1),
		}), nil
	case "authenticate":
		f.mu.Lock()
		f.authCount++
		f.mu.Unlock()
		if len(params) < 3 {
			return xmlrpc.Value{}, &xmlrpc.Fault{Code: 1, Message: "authenticate expects 4 params"}
		}
		db, _ := params[0].Text()
		user, _ := params[1].Text()
		key, _ := params[2].Text()
		if db != f.Database || user != f.Username || key != f.APIKey {
			return xmlrpc.Bool(false), nil
		}
		return xmlrpc.Int(f.UID), nil
	default:
		return xmlrpc.Value{}, &xmlrpc.Fault{Code: 1, Message: "unknown method " + method}
	}
}

func (f *FakeOdoo) serveObject(method string, params []xmlrpc.Value) (xmlrpc.Value, *xmlrpc.Fault) {
	if method != "execute_kw" {
		return xmlrpc.Value{}, &xmlrpc.Fault{Code: 1, Message: "unknown method " + method}
	}
	if len(params) < 6 {
		return xmlrpc.Value{}, &xmlrpc.Fault{Code: 1, Message: "execute_kw expects at least 6 params"}
	}

	f.mu.Lock()
	reject := f.rejectNext > 0
	if reject {
		f.rejectNext--
	}
	f.mu.Unlock()
	if reject {
		return xmlrpc.Value{}, &xmlrpc.Fault{Code: 3, Message: "odoo.exceptions.AccessDenied: Access Denied"}
	}

	uid, _ := params[1].Int()
	key, _ := params[2].Text()
	if uid != f.UID || key != f.APIKey {
		return xmlrpc.Value{}, &xmlrpc.Fault{Code: 3, Message: "odoo.exceptions.AccessDenied: Access Denied"}
	}
	model, _ := params[3].Text()
	name, _ := params[4].Text()
	kwargs := xmlrpc.Struct(nil)
	if len(params) > 6 {
		kwargs = params[6]
	}
	return f.dispatch(model, name, params[5], kwargs)
}

func (f *FakeOdoo) dispatch(model, method string, args, kwargs xmlrpc.Value) (xmlrpc.Value, *xmlrpc.Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, FakeCall{Model: model, Method: method, Args: args, Kwargs: kwargs})
	if msg, ok := f.failures[model+"."+method]; ok {
		return xmlrpc.Value{}, &xmlrpc.Fault{Code: 2, Message: msg}
	}

	argv := args.List()
	arg := func(i int) xmlrpc.Value {
		if i < len(argv) {
			return argv[i]
		}
		return xmlrpc.Nil()
	}

	switch method {
	case "search":
		ids := f.search(model, arg(0), kwargs)
		out := make([]xmlrpc.Value, len(ids))
		for i, id := range ids {
			out[i] = xmlrpc.Int(id)
		}
		return xmlrpc.List(out...), nil
	case "search_count":
		return xmlrpc.Int(int64(len(f.search(model, arg(0), xmlrpc.Struct(nil))))), nil
	case "search_read":
		fields := kwargs.Member("fields")
		if fields.IsNil() {
			fields = arg(1)
		}
		return f.read(model, f.search(model, arg(0), kwargs), fields), nil
	case "read":
		fields := kwargs.Member("fields")
		if fields.IsNil() {
			fields = arg(1)
		}
		return f.read(model, arg(0).IntList(), fields), nil
	case "create":
		vals := arg(0)
		if vals.Kind() != xmlrpc.KindStruct {
			return xmlrpc.Value{}, &xmlrpc.Fault{Code: 1, Message: "create expects a values dict"}
		}
		id := f.insert(model, vals)
		if hook := f.onCreate[model]; hook != nil {
			// Hooks may seed related records, so they run without the lock.
			f.mu.Unlock()
			hook(id, vals)
			f.mu.Lock()
		}
		return xmlrpc.Int(id), nil
	case "write":
		m := f.model(model)
		for _, id := range arg(0).IntList() {
			rec, ok := m.records[id]
			if !ok {
				return xmlrpc.Value{}, &xmlrpc.Fault{Code: 2, Message: fmt.Sprintf("Record does not exist or has been deleted. (Record: %s(%d,))", model, id)}
			}
			for k, v := range arg(1).Members() {
				rec[k] = v
			}
		}
		return xmlrpc.Bool(true), nil
	case "fields_get":
		return f.fieldsGet(model), nil
	case "action_reset_password", "action_sent":
		return xmlrpc.Bool(true), nil
	default:
		return xmlrpc.Value{}, &xmlrpc.Fault{Code: 1, Message: fmt.Sprintf("The method '%s.%s' does not exist", model, method)}
	}
}

func (f *FakeOdoo) search(model string, domain, kwargs xmlrpc.Value) []int64 {
	m := f.model(model)
	var ids []int64
	for _, id := range m.order {
		if f.matches(model, m.records[id], domain) {
			ids = append(ids, id)
		}
	}
	if limit, ok := kwargs.Member("limit").Int(); ok && limit > 0 && int(limit) < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func (f *FakeOdoo) matches(model string, rec map[string]xmlrpc.Value, domain xmlrpc.Value) bool {
	for _, cond := range domain.List() {
		parts := cond.List()
		if len(parts) != 3 {
			continue
		}
		field, _ := parts[0].Text()
		op, _ := parts[1].Text()
		if !compare(f.fieldValue(model, rec, field), op, parts[2]) {
			return false
		}
	}
	return true
}

func (f *FakeOdoo) fieldValue(model string, rec map[string]xmlrpc.Value, field string) xmlrpc.Value {
	head, rest, dotted := strings.Cut(field, ".")
	if !dotted {
		return rec[field]
	}
	target, ok := f.relations[model+"."+head]
	if !ok {
		return xmlrpc.Nil()
	}
	id, _, ok := rec[head].ManyToOne()
	if !ok {
		return xmlrpc.Nil()
	}
	related, ok := f.model(target).records[id]
	if !ok {
		return xmlrpc.Nil()
	}
	return related[rest]
}

func compare(have xmlrpc.Value, op string, want xmlrpc.Value) bool {
	switch op {
	case "=":
		return equalField(have, want)
	case "!=":
		return !equalField(have, want)
	case "like", "ilike":
		h, ok1 := have.Text()
		w, ok2 := want.Text()
		if !ok1 || !ok2 {
			return false
		}
		if op == "ilike" {
			h, w = strings.ToLower(h), strings.ToLower(w)
		}
		return strings.Contains(h, w)
	case "in":
		for _, item := range want.List() {
			if equalField(have, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func equalField(have, want xmlrpc.Value) bool {
	if have.IsNil() {
		b, ok := want.Bool()
		return ok && !b
	}
	if have.Kind() == xmlrpc.KindList && want.Kind() == xmlrpc.KindInt {
		id, _, ok := have.ManyToOne()
		w, _ := want.Int()
		return ok && id == w
	}
	return have.Equal(want)
}

func (f *FakeOdoo) read(model string, ids []int64, fields xmlrpc.Value) xmlrpc.Value {
	m := f.model(model)
	var names []string
	for _, v := range fields.List() {
		if s, ok := v.Text(); ok {
			names = append(names, s)
		}
	}

	out := make([]xmlrpc.Value, 0, len(ids))
	for _, id := range ids {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		row := map[string]xmlrpc.Value{"id": xmlrpc.Int(id)}
		if len(names) == 0 {
			for k, v := range rec {
				row[k] = v
			}
		}
		for _, name := range names {
			v, ok := rec[name]
			if !ok || v.IsNil() {
				v = xmlrpc.Bool(false)
			}
			row[name] = v
		}
		out = append(out, xmlrpc.Struct(row))
	}
	return xmlrpc.List(out...)
}

func (f *FakeOdoo) fieldsGet(model string) xmlrpc.Value {
	m := f.model(model)
	types := map[string]string{}
	for _, id := range m.order {
		for k, v := range m.records[id] {
			if _, seen := types[k]; seen {
				continue
			}
			switch v.Kind() {
			case xmlrpc.KindInt:
				types[k] = "integer"
			case xmlrpc.KindDouble:
				types[k] = "float"
			case xmlrpc.KindBool:
				types[k] = "boolean"
			case xmlrpc.KindList:
				types[k] = "many2one"
			default:
				types[k] = "char"
			}
		}
	}
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	members := make(map[string]xmlrpc.Value, len(keys))
	for _, k := range keys {
		members[k] = xmlrpc.Struct(map[string]xmlrpc.Value{
			"string": xmlrpc.Text(k),
			"type":   xmlrpc.Text(types[k]),
		})
	}
	return xmlrpc.Struct(members)
}
