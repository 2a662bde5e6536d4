package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clearcity/api/internal/auth"
	"github.com/clearcity/api/internal/client"
	"github.com/clearcity/api/internal/config"
	"github.com/clearcity/api/internal/database"
	"github.com/clearcity/api/internal/model"
	"github.com/clearcity/api/internal/repository"
	"github.com/clearcity/api/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 0, 0, 0, 1}

// fakeInference stands in for the hosted detection model.
type fakeInference struct {
	mu   sync.Mutex
	body string
}

func (f *fakeInference) set(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
}

func (f *fakeInference) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(f.body))
}

type testServer struct {
	engine    *gin.Engine
	db        *gorm.DB
	uploads   string
	inference *fakeInference
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		DatabaseURL:    "sqlite://" + filepath.Join(dir, "test.db"),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
		DBLogLevel:     "silent",
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		BcryptCost:     4,
		StorageDriver:  "local",
		UploadDir:      filepath.Join(dir, "uploads"),
		MaxUploadBytes: 1024 * 1024,
		ReportXP:       10,
	}

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	images, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	inference := &fakeInference{body: `{"predictions":[]}`}
	server := httptest.NewServer(inference)
	t.Cleanup(server.Close)

	engine := New(Deps{
		Config:     cfg,
		DB:         db,
		Classifier: client.NewClassifierClient(server.URL, "key", time.Second),
		Images:     images,
	})

	return &testServer{engine: engine, db: db, uploads: cfg.UploadDir, inference: inference}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) submit(t *testing.T, token string, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="dump.png"`)
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("Failed to create part: %v", err)
		}
		part.Write(image)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/reports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Register %s: expected 201, got %d %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Token
}

func (s *testServer) seedAdmin(t *testing.T, email string) string {
	t.Helper()
	hash, _ := auth.NewHasher(4).Hash("admin-pass")
	admin := &model.User{
		Name: "Admin", Email: email, Password: hash,
		Role: model.RoleAdmin, Level: model.AdminLevel, XP: model.AdminXP,
	}
	if err := repository.NewUserRepository(s.db).Create(context.Background(), admin); err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}
	token, _ := auth.NewTokenIssuer("test-secret", time.Hour).Generate(admin)
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ana", "ana@x.ro")

	w := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@x.ro", "password": "other",
	})
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "User already exists" {
		t.Errorf("Duplicate: expected 400 User already exists, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "b@x.ro"})
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "All fields are required" {
		t.Errorf("Missing fields: got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"B","email":"b@x.ro","password":"p","role":"admin"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Unknown field: expected 400, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@x.ro"})
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "Email and password are required" {
		t.Errorf("Login missing: got %d %s", w.Code, w.Body.String())
	}

	wrong := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@x.ro", "password": "nope"})
	unknown := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "zz@x.ro", "password": "nope"})
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for both, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("Expected identical bodies, got %s and %s", wrong.Body.String(), unknown.Body.String())
	}

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@x.ro", "password": "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("Login: expected 200, got %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("Password hash leaked: %s", w.Body.String())
	}

	if w := s.do(t, http.MethodGet, "/api/users/profile", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Profile without token: expected 401, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/users/profile", "bogus", nil); w.Code != http.StatusForbidden {
		t.Errorf("Profile with bad token: expected 403, got %d", w.Code)
	}
}

func TestReportSubmission(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ana", "ana@x.ro")
	location := map[string]string{"latitude": "44.43", "longitude": "26.10", "description": "bottles"}

	w := s.submit(t, token, map[string]string{"description": "no coords"}, nil)
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "Location is required" {
		t.Errorf("Expected 400 Location is required, got %d %s", w.Code, w.Body.String())
	}

	s.inference.set(`{"predictions":[{"class":"plastic","confidence":0.61},{"class":"glass","confidence":0.87}]}`)
	w = s.submit(t, token, location, pngBytes)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Report         model.Report         `json:"report"`
		Classification model.Classification `json:"classification"`
	}
	decode(t, w, &created)
	if created.Report.Type != "glass" || created.Report.Status != model.StatusPending {
		t.Errorf("Unexpected report: %+v", created.Report)
	}
	if !created.Classification.IsWaste || created.Classification.Confidence != 0.87 {
		t.Errorf("Unexpected classification: %+v", created.Classification)
	}
	if created.Report.ImageURL == nil || !strings.HasPrefix(*created.Report.ImageURL, "/uploads/reports/") {
		t.Fatalf("Expected stored image url, got %v", created.Report.ImageURL)
	}

	if img := s.do(t, http.MethodGet, *created.Report.ImageURL, "", nil); img.Code != http.StatusOK {
		t.Errorf("Expected uploaded image to be served, got %d", img.Code)
	}

	s.inference.set(`{"predictions":[{"class":"plastic","confidence":0.2}]}`)
	w = s.submit(t, token, location, pngBytes)
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "Image does not appear to contain waste" {
		t.Fatalf("Expected not-waste rejection, got %d %s", w.Code, w.Body.String())
	}
	var rejected struct {
		Classification model.Classification `json:"classification"`
	}
	decode(t, w, &rejected)
	if rejected.Classification.WasteType != "plastic" {
		t.Errorf("Expected classification payload, got %+v", rejected.Classification)
	}
	files, _ := os.ReadDir(filepath.Join(s.uploads, storage.FolderReports))
	if len(files) != 1 {
		t.Errorf("Expected the rejected image to be removed, found %d files", len(files))
	}

	w = s.submit(t, token, map[string]string{"latitude": "44.4", "longitude": "26.1", "description": "no photo"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201 without image, got %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"classification":null`) || !strings.Contains(w.Body.String(), `"type":"Unclassified"`) {
		t.Errorf("Unexpected body without image: %s", w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/users/profile", token, nil)
	var profile repository.Profile
	decode(t, w, &profile)
	if profile.XP != 20 || profile.TotalReports != 2 || profile.PendingReports != 2 {
		t.Errorf("Unexpected profile: xp=%d total=%d pending=%d", profile.XP, profile.TotalReports, profile.PendingReports)
	}
	if len(profile.Achievements) != 1 {
		t.Errorf("Expected exactly one achievement, got %+v", profile.Achievements)
	}

	w = s.do(t, http.MethodGet, "/api/reports?type=glass", "", nil)
	var listed []model.ReportWithUser
	decode(t, w, &listed)
	if len(listed) != 1 || listed[0].UserName == nil || *listed[0].UserName != "Ana" {
		t.Errorf("Unexpected filtered list: %+v", listed)
	}
}

func TestReportSubmission_RejectsNonImages(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ana", "ana@x.ro")

	w := s.submit(t, token, map[string]string{"latitude": "1", "longitude": "2"}, []byte("just text"))
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "Only image files are allowed!" {
		t.Errorf("Expected image rejection, got %d %s", w.Code, w.Body.String())
	}
}

func TestReportLifecycle(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@x.ro")
	bob := s.register(t, "Bob", "bob@x.ro")
	admin := s.seedAdmin(t, "root@x.ro")

	w := s.submit(t, ana, map[string]string{"latitude": "44.4", "longitude": "26.1"}, nil)
	var created struct {
		Report model.Report `json:"report"`
	}
	decode(t, w, &created)
	path := "/api/reports/" + strconv.FormatInt(created.Report.ID, 10)

	if w := s.do(t, http.MethodGet, "/api/reports/9999", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}

	if w := s.do(t, http.MethodPatch, path, admin, map[string]string{"status": "closed"}); w.Code != http.StatusBadRequest {
		t.Errorf("Invalid status: expected 400, got %d", w.Code)
	}
	w = s.do(t, http.MethodPatch, path, admin, map[string]string{"status": "resolved"})
	if w.Code != http.StatusOK {
		t.Fatalf("Resolve: expected 200, got %d %s", w.Code, w.Body.String())
	}
	var resolved model.Report
	decode(t, w, &resolved)
	if resolved.ResolvedAt == nil || resolved.ResolvedBy == nil {
		t.Errorf("Expected resolution recorded, got %+v", resolved)
	}

	w = s.do(t, http.MethodGet, "/api/admin/stats", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Stats: expected 200, got %d", w.Code)
	}
	var stats map[string]interface{}
	decode(t, w, &stats)
	for _, key := range []string{"totalUsers", "totalReports", "reportsByStatus", "reportsByType", "recentActivity", "avgResolutionTime"} {
		if _, ok := stats[key]; !ok {
			t.Errorf("Stats missing %s: %v", key, stats)
		}
	}
	if stats["totalUsers"].(float64) != 2 {
		t.Errorf("Expected 2 non-admin users, got %v", stats["totalUsers"])
	}

	if w := s.do(t, http.MethodDelete, path, bob, nil); w.Code != http.StatusForbidden {
		t.Errorf("Delete by stranger: expected 403, got %d", w.Code)
	}
	w = s.do(t, http.MethodDelete, path, ana, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Report deleted successfully") {
		t.Errorf("Delete by owner: got %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodDelete, path, admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("Delete twice: expected 404, got %d", w.Code)
	}
}

func TestAdminRoles(t *testing.T) {
	s := newTestServer(t)
	ana := s.register(t, "Ana", "ana@x.ro")
	admin := s.seedAdmin(t, "root@x.ro")

	if w := s.do(t, http.MethodGet, "/api/admin/users", ana, nil); w.Code != http.StatusForbidden {
		t.Errorf("Non-admin: expected 403, got %d", w.Code)
	}

	w := s.do(t, http.MethodPost, "/api/admin/demote/root@x.ro", admin, nil)
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "Cannot demote the last admin" {
		t.Errorf("Last admin: got %d %s", w.Code, w.Body.String())
	}

	if w := s.do(t, http.MethodPost, "/api/admin/promote/ghost@x.ro", admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("Promote unknown: expected 404, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, "/api/admin/promote/ana@x.ro", admin, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"role":"admin"`) {
		t.Fatalf("Promote: got %d %s", w.Code, w.Body.String())
	}

	// the old token now carries admin rights
	if w := s.do(t, http.MethodGet, "/api/admin/admins", ana, nil); w.Code != http.StatusOK {
		t.Errorf("Promoted user: expected 200, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/users/leaderboard", "", nil)
	var board []repository.LeaderboardEntry
	decode(t, w, &board)
	if len(board) != 0 {
		t.Errorf("Expected admins excluded from leaderboard, got %+v", board)
	}

	w = s.do(t, http.MethodPost, "/api/admin/demote/ana@x.ro", admin, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"role":"user"`) {
		t.Errorf("Demote: got %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, "/api/admin/admins", ana, nil); w.Code != http.StatusForbidden {
		t.Errorf("Demoted user: expected 403, got %d", w.Code)
	}
}

func TestProfileUpdate(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ana", "ana@x.ro")

	w := s.do(t, http.MethodPatch, "/api/users/profile", token, map[string]string{})
	if w.Code != http.StatusBadRequest || errorOf(t, w) != "No fields to update" {
		t.Errorf("Empty update: got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPatch, "/api/users/profile", token, map[string]string{"location": "Cluj"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"location":"Cluj"`) {
		t.Errorf("Update: got %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/users/profile/image", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "No image provided" {
		t.Errorf("Missing image: got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("Health: got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("Metrics: got %d", w.Code)
	}
}
