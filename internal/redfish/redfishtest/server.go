// Package redfishtest provides an in-memory Redfish service for tests.
//
// Documents are stored by path. GET returns them, PATCH deep-merges the
// request body, POST to a collection creates a member, POST to an Actions
// target is recorded and applied, DELETE removes the document together with
// its collection link.
package redfishtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Call is one recorded request.
type Call struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// ActionFunc overrides the built-in handling of an action. The returned
// value is encoded as the JSON response body when non-nil.
type ActionFunc func(s *Server, target string, body []byte) (int, any)

// UploadFunc is called for raw POST bodies sent to a non-collection resource.
type UploadFunc func(s *Server, path string, body []byte)

// Collection describes how members posted to a collection are built.
type Collection struct {
	// Type is the @odata.type given to members that do not carry one.
	Type string
	// IDField names the body field used as member id. Members get a
	// sequential number when it is empty or absent.
	IDField string
	// Defaults are merged under the posted body.
	Defaults map[string]any
	// Hide lists fields stored as null, such as passwords.
	Hide []string
}

// Fixture is the initial content of a Server.
type Fixture struct {
	Docs        map[string]any
	Collections map[string]Collection
}

// Server is an in-memory Redfish service backed by httptest.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	docs        map[string][]byte
	collections map[string]Collection
	calls       []Call
	actions     map[string]ActionFunc
	failures    map[string]int
	onUpload    UploadFunc
	username    string
	password    string
	tokens      map[string]bool
	nextID      int
}

// NewServer starts a server seeded with fixture and closes it when t ends.
func NewServer(t testing.TB, fixture Fixture) *Server {
	t.Helper()
	s := &Server{
		docs:        map[string][]byte{},
		collections: map[string]Collection{},
		actions:     map[string]ActionFunc{},
		failures:    map[string]int{},
		tokens:      map[string]bool{},
	}
	for p, doc := range fixture.Docs {
		s.Put(p, doc)
	}
	for p, c := range fixture.Collections {
		s.collections[clean(p)] = c
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.authenticate)
	r.Use(s.inject)
	r.Get("/*", s.handleGet)
	r.Patch("/*", s.handlePatch)
	r.Post("/*", s.handlePost)
	r.Delete("/*", s.handleDelete)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Hostname returns the scheme and host of the server, suitable for a client config.
func (s *Server) Hostname() string {
	u, _ := url.Parse(s.URL)
	return u.Scheme + "://" + u.Hostname()
}

func (s *Server) Port() int {
	u, _ := url.Parse(s.URL)
	port, _ := strconv.Atoi(u.Port())
	return port
}

// RequireAuth makes the server reject requests without the given basic
// credentials or a token issued by the session collection.
func (s *Server) RequireAuth(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

// Put stores doc at path, replacing any existing document.
func (s *Server) Put(path string, doc any) {
	raw, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("redfishtest: encoding %s: %v", path, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[clean(path)] = raw
}

// Set updates one field of the document at path. Keys are literal.
func (s *Server) Set(path string, value any, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[clean(path)]
	if !ok {
		panic("redfishtest: no document at " + path)
	}
	updated, err := sjson.SetBytes(doc, escape(keys...), value)
	if err != nil {
		panic(fmt.Sprintf("redfishtest: setting %v on %s: %v", keys, path, err))
	}
	s.docs[clean(path)] = updated
}

// Get returns the field of the stored document at path, or the whole
// document when no keys are given.
func (s *Server) Get(path string, keys ...string) gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[clean(path)]
	if len(keys) == 0 {
		return gjson.ParseBytes(doc)
	}
	return gjson.GetBytes(doc, escape(keys...))
}

// Has reports whether a document is stored at path.
func (s *Server) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[clean(path)]
	return ok
}

// AddMember stores doc under its @odata.id and links it from collection.
func (s *Server) AddMember(collection string, doc map[string]any) {
	id, _ := doc["@odata.id"].(string)
	s.Put(id, doc)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link(clean(collection), id)
}

// HandleAction overrides the handling of the named action, e.g. "Manager.Reset".
func (s *Server) HandleAction(name string, fn ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[name] = fn
}

// OnUpload registers fn for raw uploads.
func (s *Server) OnUpload(fn UploadFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpload = fn
}

// Fail makes every subsequent method request on path answer with status.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+clean(path)] = status
}

// Calls returns the recorded requests with the given method, or all of
// them when method is empty.
func (s *Server) Calls(method string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of recorded requests with the given method.
func (s *Server) Count(method string) int {
	return len(s.Calls(method))
}

// Mutations counts PATCH, POST and DELETE requests.
func (s *Server) Mutations() int {
	return s.Count(http.MethodPatch) + s.Count(http.MethodPost) + s.Count(http.MethodDelete)
}

// ResetCalls forgets recorded requests.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: body, Header: r.Header.Clone()})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		username, password := s.username, s.password
		tokenOK := s.tokens[r.Header.Get("X-Auth-Token")]
		s.mu.Unlock()

		if username == "" || tokenOK || isLogin(r) {
			next.ServeHTTP(w, r)
			return
		}
		if u, p, ok := r.BasicAuth(); ok && u == username && p == password {
			next.ServeHTTP(w, r)
			return
		}
		writeError(w, http.StatusUnauthorized, "Base.1.8.NoValidSession", "authentication required")
	})
}

func isLogin(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasSuffix(clean(r.URL.Path), "/SessionService/Sessions")
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+clean(r.URL.Path)]
		s.mu.Unlock()
		if ok {
			writeError(w, status, "Base.1.8.InternalError", "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc, ok := s.docs[clean(r.URL.Path)]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Base.1.8.ResourceMissingAtURI", r.URL.Path+" not found")
		return
	}
	writeRaw(w, http.StatusOK, doc)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	p := clean(r.URL.Path)
	body, _ := io.ReadAll(r.Body)
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		writeError(w, http.StatusBadRequest, "Base.1.8.MalformedJSON", "body is not a JSON object")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[p]
	if !ok {
		writeError(w, http.StatusNotFound, "Base.1.8.ResourceMissingAtURI", p+" not found")
		return
	}
	merged, err := merge(doc, nil, gjson.ParseBytes(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Base.1.8.PropertyValueFormatError", err.Error())
		return
	}
	s.docs[p] = merged
	w.WriteHeader(http.StatusNoContent)
}

// merge applies patch onto doc recursively; objects merge, everything else replaces.
func merge(doc []byte, prefix []string, patch gjson.Result) ([]byte, error) {
	var err error
	patch.ForEach(func(k, v gjson.Result) bool {
		keys := append(slices.Clone(prefix), k.String())
		existing := gjson.GetBytes(doc, escape(keys...))
		if v.IsObject() && existing.IsObject() {
			doc, err = merge(doc, keys, v)
		} else {
			doc, err = sjson.SetRawBytes(doc, escape(keys...), []byte(v.Raw))
		}
		return err == nil
	})
	return doc, err
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	p := clean(r.URL.Path)
	body, _ := io.ReadAll(r.Body)

	if i := strings.Index(p, "/Actions/"); i >= 0 {
		s.runAction(w, p[:i], p[i+len("/Actions/"):], body)
		return
	}

	s.mu.Lock()
	doc, ok := s.docs[p]
	s.mu.Unlock()
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Base.1.8.ResourceMissingAtURI", p+" not found")
	case gjson.GetBytes(doc, "Members").IsArray():
		s.createMember(w, p, body, isLogin(r))
	default:
		s.mu.Lock()
		fn := s.onUpload
		s.mu.Unlock()
		if fn != nil {
			fn(s, p, body)
		}
		writeJSON(w, http.StatusAccepted, map[string]any{})
	}
}

func (s *Server) createMember(w http.ResponseWriter, collection string, body []byte, login bool) {
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		writeError(w, http.StatusBadRequest, "Base.1.8.MalformedJSON", "body is not a JSON object")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if login && s.username != "" {
		if gjson.GetBytes(body, "UserName").String() != s.username || gjson.GetBytes(body, "Password").String() != s.password {
			writeError(w, http.StatusUnauthorized, "Base.1.8.NoValidSession", "invalid credentials")
			return
		}
	}

	coll := s.collections[collection]
	doc := []byte("{}")
	for k, v := range coll.Defaults {
		doc, _ = sjson.SetBytes(doc, escape(k), v)
	}
	doc, err := merge(doc, nil, gjson.ParseBytes(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Base.1.8.PropertyValueFormatError", err.Error())
		return
	}

	id := ""
	if coll.IDField != "" {
		id = gjson.GetBytes(body, escape(coll.IDField)).String()
	}
	if id == "" {
		s.nextID++
		id = strconv.Itoa(s.nextID)
	}
	memberPath := collection + "/" + id
	if _, exists := s.docs[memberPath]; exists {
		writeError(w, http.StatusConflict, "Base.1.8.ResourceAlreadyExists", memberPath+" already exists")
		return
	}

	doc, _ = sjson.SetBytes(doc, escape("@odata.id"), memberPath)
	doc, _ = sjson.SetBytes(doc, "Id", id)
	if !gjson.GetBytes(doc, escape("@odata.type")).Exists() && coll.Type != "" {
		doc, _ = sjson.SetBytes(doc, escape("@odata.type"), coll.Type)
	}
	for _, field := range coll.Hide {
		if gjson.GetBytes(doc, escape(field)).Exists() {
			doc, _ = sjson.SetRawBytes(doc, escape(field), []byte("null"))
		}
	}
	s.docs[memberPath] = doc
	s.link(collection, memberPath)

	if login {
		token := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("token-%d", s.nextID)))
		s.tokens[token] = true
		w.Header().Set("X-Auth-Token", token)
	}
	w.Header().Set("Location", memberPath)
	writeRaw(w, http.StatusCreated, doc)
}

// link appends member to the Members of collection. Callers hold mu.
func (s *Server) link(collection, member string) {
	doc, ok := s.docs[collection]
	if !ok {
		return
	}
	doc, _ = sjson.SetBytes(doc, "Members.-1", map[string]string{"@odata.id": member})
	doc, _ = sjson.SetBytes(doc, escape("Members@odata.count"), len(gjson.GetBytes(doc, "Members").Array()))
	s.docs[collection] = doc
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	p := clean(r.URL.Path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[p]; !ok {
		writeError(w, http.StatusNotFound, "Base.1.8.ResourceMissingAtURI", p+" not found")
		return
	}
	delete(s.docs, p)

	parent := p[:strings.LastIndex(p, "/")]
	if doc, ok := s.docs[parent]; ok {
		for i, m := range gjson.GetBytes(doc, "Members").Array() {
			if m.Get(escape("@odata.id")).String() == p {
				doc, _ = sjson.DeleteBytes(doc, "Members."+strconv.Itoa(i))
				doc, _ = sjson.SetBytes(doc, escape("Members@odata.count"), len(gjson.GetBytes(doc, "Members").Array()))
				s.docs[parent] = doc
				break
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runAction(w http.ResponseWriter, target, name string, body []byte) {
	s.mu.Lock()
	fn, custom := s.actions[name]
	_, exists := s.docs[target]
	s.mu.Unlock()

	if custom {
		status, resp := fn(s, target, body)
		if resp == nil {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, resp)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "Base.1.8.ResourceMissingAtURI", target+" not found")
		return
	}

	switch name {
	case "ComputerSystem.Reset":
		state := "On"
		switch gjson.GetBytes(body, "ResetType").String() {
		case "GracefulShutdown", "ForceOff":
			state = "Off"
		}
		s.Set(target, state, "PowerState")
	case "VirtualMedia.InsertMedia":
		s.Set(target, gjson.GetBytes(body, "Image").String(), "Image")
		s.Set(target, true, "Inserted")
		s.Set(target, gjson.GetBytes(body, "WriteProtected").Bool(), "WriteProtected")
	case "VirtualMedia.EjectMedia":
		s.Set(target, "", "Image")
		s.Set(target, false, "Inserted")
	case "CertificateService.ReplaceCertificate":
		cert := gjson.GetBytes(body, escape("CertificateUri", "@odata.id")).String()
		if !s.Has(cert) {
			writeError(w, http.StatusNotFound, "Base.1.8.ResourceMissingAtURI", cert+" not found")
			return
		}
		s.Set(cert, gjson.GetBytes(body, "CertificateString").String(), "CertificateString")
	case "CertificateService.GenerateCSR":
		writeJSON(w, http.StatusOK, map[string]any{
			"CSRString": "-----BEGIN CERTIFICATE REQUEST-----\nMIIB\n-----END CERTIFICATE REQUEST-----\n",
			"CertificateCollection": map[string]any{
				"@odata.id": gjson.GetBytes(body, escape("CertificateCollection", "@odata.id")).String(),
			},
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, _ := json.Marshal(v)
	writeRaw(w, status, body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func clean(p string) string {
	if p != "/" {
		p = strings.TrimRight(p, "/")
	}
	return p
}

var escaper = strings.NewReplacer(
	`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`, `|`, `\|`, `#`, `\#`, `@`, `\@`, `:`, `\:`,
)

func escape(keys ...string) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = escaper.Replace(k)
	}
	return strings.Join(out, ".")
}
