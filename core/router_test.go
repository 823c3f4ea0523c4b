package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// fakeTaskRepo is an in-memory TaskRepository for router tests.
type fakeTaskRepo struct {
	tasks  map[int64]*Task
	nextID int64
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[int64]*Task{}}
}

func (r *fakeTaskRepo) List(_ context.Context, page, perPage int) ([]Task, int, error) {
	items := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		items = append(items, *t)
	}
	return items, len(items), nil
}

func (r *fakeTaskRepo) Get(_ context.Context, id int64) (*Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, t Task) (*Task, error) {
	r.nextID++
	t.ID = r.nextID
	t.CreatedDate = time.Now()
	if t.Comments == nil {
		t.Comments = []string{}
	}
	r.tasks[t.ID] = &t
	return &t, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, id int64, t Task) (*Task, error) {
	old, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	t.ID = id
	t.CreatedDate = old.CreatedDate
	t.Comments = old.Comments
	r.tasks[id] = &t
	return &t, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) AddComment(_ context.Context, id int64, comment string) error {
	t, ok := r.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	t.Comments = append(t.Comments, comment)
	return nil
}

func newTestRouter(t *testing.T, repo *fakeUserRepo) (*gin.Engine, *TokenCodec) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	codec := newTestCodec(t, "test-secret", time.Hour)
	svc := NewRepositoryAuthService(repo, codec, 4)
	cfg := Config{}
	router := NewRouter(cfg, DefaultAccessPolicy(), codec, svc, repo, newFakeTaskRepo(), nil)
	return router, codec
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginEndpointUnknownUser(t *testing.T) {
	router, _ := newTestRouter(t, newFakeUserRepo())

	w := postJSON(router, "/api/auth/login", `{"email":"a@b.com","password":"pw1"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Message != "Invalid credentials" {
		t.Fatalf("message = %q, want \"Invalid credentials\"", body.Message)
	}
}

func TestLoginEndpointWrongPasswordSameResponse(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(t, "Alice", "a@b.com", "right", string(RoleUser))
	router, _ := newTestRouter(t, repo)

	unknown := postJSON(router, "/api/auth/login", `{"email":"nobody@b.com","password":"pw"}`)
	wrong := postJSON(router, "/api/auth/login", `{"email":"a@b.com","password":"wrong"}`)

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Fatalf("failure bodies differ: %s vs %s", unknown.Body.String(), wrong.Body.String())
	}
}

func TestLoginEndpointSuccess(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(t, "Alice", "a@b.com", "pw1", string(RoleUser))
	router, codec := newTestRouter(t, repo)

	w := postJSON(router, "/api/auth/login", `{"email":"a@b.com","password":"pw1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body struct {
		Token       string `json:"token"`
		Role        string `json:"role"`
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Role != string(RoleUser) {
		t.Fatalf("role = %q", body.Role)
	}
	claims, err := codec.Parse(body.Token)
	if err != nil {
		t.Fatalf("returned token does not parse: %v", err)
	}
	if claims.Subject != "a@b.com" {
		t.Fatalf("token subject = %q", claims.Subject)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newFakeUserRepo()
	router, _ := newTestRouter(t, repo)

	w := postJSON(router, "/api/auth/register", `{"name":"Bob","email":"bob@b.com","password":"pw1","confirm_password":"pw1"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}

	if w := postJSON(router, "/api/auth/register", `{"name":"Bob","email":"bob@b.com","password":"pw1","confirm_password":"pw1"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", w.Code)
	}

	if w := postJSON(router, "/api/auth/login", `{"email":"bob@b.com","password":"pw1"}`); w.Code != http.StatusOK {
		t.Fatalf("login after register status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestTaskRoutesRequireToken(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(t, "Alice", "a@b.com", "pw1", string(RoleUser))
	router, codec := newTestRouter(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	token, err := codec.Issue("a@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with token status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestTaskCreateAndFetch(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(t, "Alice", "a@b.com", "pw1", string(RoleUser))
	router, codec := newTestRouter(t, repo)

	token, err := codec.Issue("a@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"Write report","description":"quarterly numbers","status":"pending","priority":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal created task: %v", err)
	}
	if created.ID == 0 || created.Title != "Write report" {
		t.Fatalf("created = %+v", created)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestAdminUserListRoleGate(t *testing.T) {
	repo := newFakeUserRepo()
	repo.add(t, "Alice", "a@b.com", "pw1", string(RoleUser))
	repo.add(t, "Root", "root@b.com", "pw2", string(RoleAdmin))
	router, codec := newTestRouter(t, repo)

	userToken, err := codec.Issue("a@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	adminToken, err := codec.Issue("root@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("user token status = %d, want 403", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("admin token status = %d, body %s", w.Code, w.Body.String())
	}
}
