// Package fakebackend is an in-memory stand-in for the admin REST backend.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/bizadmin/apiclient"
)

type failure struct {
	status  int
	message string
	left    int
}

// FakeBackend serves /api/v1 from maps. The zero value is not usable; call New.
type FakeBackend struct {
	lock        sync.RWMutex
	collections map[string][]map[string]any
	failures    map[string]*failure
	hits        map[string]int

	verify         func(token string) error
	requireAuth    bool
	registerStatus int
	registered     []apiclient.RegisterRequest
	googleTokens   []string

	// Gate, when set, holds every list request until it receives or is closed.
	Gate chan struct{}

	Now func() time.Time
}

var _ http.Handler = (*FakeBackend)(nil)

func New() *FakeBackend {
	return &FakeBackend{
		collections: make(map[string][]map[string]any),
		failures:    make(map[string]*failure),
		hits:        make(map[string]int),
		verify:      func(token string) error { return nil },
		Now:         time.Now,
	}
}

// Seed appends records to resource, assigning ids to those without one.
func (fb *FakeBackend) Seed(resource string, records ...map[string]any) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	for _, r := range records {
		fb.collections[resource] = append(fb.collections[resource], fb.stamp(r, true))
	}
}

// Records returns a copy of the stored records of resource.
func (fb *FakeBackend) Records(resource string) []map[string]any {
	fb.lock.RLock()
	defer fb.lock.RUnlock()
	out := make([]map[string]any, 0, len(fb.collections[resource]))
	for _, r := range fb.collections[resource] {
		out = append(out, clone(r))
	}
	return out
}

// SetVerify replaces the bearer token check used by /auth/verify, /auth/google and, when
// RequireAuth is on, every resource call.
func (fb *FakeBackend) SetVerify(verify func(token string) error) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.verify = verify
}

// RequireAuth makes resource calls answer 401 unless the bearer token passes the verify check.
func (fb *FakeBackend) RequireAuth(on bool) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.requireAuth = on
}

// SetRegisterStatus makes /auth/register fail with status; 0 restores success.
func (fb *FakeBackend) SetRegisterStatus(status int) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.registerStatus = status
}

// Registrations lists the accepted /auth/register bodies.
func (fb *FakeBackend) Registrations() []apiclient.RegisterRequest {
	fb.lock.RLock()
	defer fb.lock.RUnlock()
	return append([]apiclient.RegisterRequest(nil), fb.registered...)
}

// GoogleTokens lists the id tokens accepted by /auth/google.
func (fb *FakeBackend) GoogleTokens() []string {
	fb.lock.RLock()
	defer fb.lock.RUnlock()
	return append([]string(nil), fb.googleTokens...)
}

func (fb *FakeBackend) check(token string) error {
	fb.lock.RLock()
	verify := fb.verify
	fb.lock.RUnlock()
	return verify(token)
}

// FailNext makes the next n requests to resource answer status with message.
func (fb *FakeBackend) FailNext(resource string, status int, message string, n int) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	fb.failures[resource] = &failure{status: status, message: message, left: n}
}

// Hits counts requests by "METHOD /path" (path without the /api/v1 prefix).
func (fb *FakeBackend) Hits(key string) int {
	fb.lock.RLock()
	defer fb.lock.RUnlock()
	return fb.hits[key]
}

func (fb *FakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, apiclient.APIPrefix)
	if path == r.URL.Path {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "route not found"})
		return
	}

	fb.lock.Lock()
	fb.hits[r.Method+" "+path]++
	fb.lock.Unlock()

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if segments[0] == "auth" {
		fb.serveAuth(w, r, strings.Join(segments[1:], "/"))
		return
	}

	fb.lock.RLock()
	requireAuth := fb.requireAuth
	fb.lock.RUnlock()
	if requireAuth {
		if err := fb.check(bearer(r)); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
			return
		}
	}
	if f := fb.takeFailure(segments[0]); f != nil {
		writeJSON(w, f.status, map[string]any{"success": false, "message": f.message})
		return
	}

	resource := segments[0]
	switch {
	case len(segments) == 1 && r.Method == http.MethodGet:
		fb.list(w, r, resource)
	case len(segments) == 1 && r.Method == http.MethodPost:
		fb.create(w, r, resource)
	case len(segments) == 2 && r.Method == http.MethodGet:
		fb.get(w, resource, segments[1])
	case len(segments) == 2 && r.Method == http.MethodPut:
		fb.update(w, r, resource, segments[1])
	case len(segments) == 2 && r.Method == http.MethodDelete:
		fb.delete(w, resource, segments[1])
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"success": false, "message": "method not allowed"})
	}
}

func (fb *FakeBackend) serveAuth(w http.ResponseWriter, r *http.Request, action string) {
	switch action {
	case "verify":
		token := bearer(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "No token provided"})
			return
		}
		if err := fb.check(token); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token verified"})
	case "register":
		var req apiclient.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
			return
		}
		fb.lock.Lock()
		status := fb.registerStatus
		if status == 0 {
			fb.registered = append(fb.registered, req)
		}
		fb.lock.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]any{"success": false, "message": "registration failed"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{"email": req.Email}})
	case "google":
		var req struct {
			IDToken string `json:"idToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if err := fb.check(req.IDToken); req.IDToken == "" || err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid id token"})
			return
		}
		fb.lock.Lock()
		fb.googleTokens = append(fb.googleTokens, req.IDToken)
		fb.lock.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "route not found"})
	}
}

func (fb *FakeBackend) list(w http.ResponseWriter, r *http.Request, resource string) {
	if fb.Gate != nil {
		select {
		case <-fb.Gate:
		case <-r.Context().Done():
			return
		}
	}
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 10)

	fb.lock.RLock()
	matched := make([]map[string]any, 0)
	for _, rec := range fb.collections[resource] {
		if matches(rec, q.Get("search"), q.Get("categoryId"), q.Get("tags"), q.Get("subscriptionStatus")) {
			matched = append(matched, clone(rec))
		}
	}
	fb.lock.RUnlock()

	total := len(matched)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	pages := int(math.Ceil(float64(total) / float64(limit)))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    matched[start:end],
		"pagination": apiclient.Pagination{
			CurrentPage:  page,
			TotalPages:   pages,
			TotalItems:   total,
			HasMore:      page < pages,
			ItemsPerPage: limit,
		},
	})
}

func (fb *FakeBackend) get(w http.ResponseWriter, resource, id string) {
	fb.lock.RLock()
	defer fb.lock.RUnlock()
	if i := fb.indexOf(resource, id); i >= 0 {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": fb.collections[resource][i]})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": notFound(resource)})
}

func (fb *FakeBackend) create(w http.ResponseWriter, r *http.Request, resource string) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
		return
	}
	delete(rec, "id")
	fb.lock.Lock()
	rec = fb.stamp(rec, true)
	fb.collections[resource] = append(fb.collections[resource], rec)
	fb.lock.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": rec})
}

func (fb *FakeBackend) update(w http.ResponseWriter, r *http.Request, resource, id string) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
		return
	}
	fb.lock.Lock()
	defer fb.lock.Unlock()
	i := fb.indexOf(resource, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": notFound(resource)})
		return
	}
	rec := fb.collections[resource][i]
	for k, v := range patch {
		if k == "id" || k == "createdAt" {
			continue
		}
		rec[k] = v
	}
	rec = fb.stamp(rec, false)
	fb.collections[resource][i] = rec
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": rec})
}

func (fb *FakeBackend) delete(w http.ResponseWriter, resource, id string) {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	i := fb.indexOf(resource, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": notFound(resource)})
		return
	}
	items := fb.collections[resource]
	fb.collections[resource] = append(items[:i:i], items[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "deleted"})
}

func (fb *FakeBackend) takeFailure(resource string) *failure {
	fb.lock.Lock()
	defer fb.lock.Unlock()
	f, ok := fb.failures[resource]
	if !ok || f.left <= 0 {
		return nil
	}
	f.left--
	return f
}

func (fb *FakeBackend) indexOf(resource, id string) int {
	for i, rec := range fb.collections[resource] {
		if rec["id"] == id {
			return i
		}
	}
	return -1
}

func (fb *FakeBackend) stamp(rec map[string]any, created bool) map[string]any {
	rec = clone(rec)
	now := fb.Now().UTC().Format(time.RFC3339)
	if id, _ := rec["id"].(string); id == "" {
		rec["id"] = uuid.New().String()
	}
	if _, ok := rec["createdAt"]; created && !ok {
		rec["createdAt"] = now
	}
	rec["updatedAt"] = now
	return rec
}

func matches(rec map[string]any, search, categoryID, tags, subscription string) bool {
	if search != "" {
		text := strings.ToLower(fmt.Sprint(rec["name"], " ", rec["title"], " ", rec["description"]))
		if !strings.Contains(text, strings.ToLower(search)) {
			return false
		}
	}
	if subscription != "" && rec["subscriptionStatus"] != subscription {
		return false
	}
	if categoryID != "" && !containsRef(rec["categories"], categoryID) && !containsRef(rec["category"], categoryID) {
		return false
	}
	if tags != "" {
		found := false
		for _, tag := range strings.Split(tags, ",") {
			if containsRef(rec["tags"], tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// containsRef reports whether v (a ref object or a list of them) references id.
func containsRef(v any, id string) bool {
	switch ref := v.(type) {
	case map[string]any:
		return ref["id"] == id
	case []any:
		for _, item := range ref {
			if containsRef(item, id) {
				return true
			}
		}
	}
	return false
}

func notFound(resource string) string {
	switch resource {
	case "businesses":
		return "Business not found"
	case "events":
		return "Event not found"
	}
	return "Not found"
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// clone round-trips through JSON so slices and nested maps are not shared.
func clone(rec map[string]any) map[string]any {
	data, _ := json.Marshal(rec)
	out := make(map[string]any)
	_ = json.Unmarshal(data, &out)
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
