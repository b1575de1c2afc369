package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/peerview/internal/model"
)

var testSigningKey = []byte("test-signing-key")

type fakeAccount struct {
	password string
	user     model.User
}

// fakeBackend は状態を持つテスト用のPeerViewバックエンド。
// トークンはHS256で署名したJWTを発行し、ユーザーの失効を再現できる。
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	accounts  map[string]*fakeAccount // key: email
	revoked   map[string]bool         // key: email
	questions []model.Question        // 新しい順
	blobs     map[string][]byte
	blobTypes map[string]string
	bodies    map[string][]map[string]any // key: route
	hits      map[string]int              // key: route
	nextID    int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		t:         t,
		accounts:  make(map[string]*fakeAccount),
		revoked:   make(map[string]bool),
		blobs:     make(map[string][]byte),
		blobTypes: make(map[string]string),
		bodies:    make(map[string][]map[string]any),
		hits:      make(map[string]int),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/feed", fb.listQuestions("GET /api/feed", false))
		r.Post("/upload", fb.upload)
		r.Post("/questions", fb.createQuestion("POST /api/questions", false))
		r.Get("/questions/{id}", fb.getQuestion("GET /api/questions/{id}", false))
		r.Post("/questions/{id}/answers", fb.addAnswer("POST /api/questions/{id}/answers", false))
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", fb.login)
		r.Post("/auth/register", fb.register)
		r.Get("/users/me", fb.me)
		r.Post("/media/upload-url", fb.uploadURL)
		r.Get("/questions", fb.listQuestions("GET /v1/questions", true))
		r.Post("/questions", fb.createQuestion("POST /v1/questions", true))
		r.Get("/questions/{id}", fb.getQuestion("GET /v1/questions/{id}", true))
		r.Delete("/questions/{id}", fb.deleteQuestion)
		r.Post("/questions/{id}/answers", fb.addAnswer("POST /v1/questions/{id}/answers", true))
		r.Get("/admin/stats", fb.adminStats)
	})
	r.Put("/blob/{name}", fb.putBlob)

	fb.server = httptest.NewServer(r)
	t.Cleanup(fb.server.Close)
	return fb
}

// addAccount はログイン可能なユーザーを登録する。
func (fb *fakeBackend) addAccount(user model.User, password string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	user.IsActive = true
	fb.accounts[user.Email] = &fakeAccount{password: password, user: user}
}

// revoke は以降そのユーザーのトークンを401で拒否する。
func (fb *fakeBackend) revoke(email string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.revoked[email] = true
}

// addQuestion はフィードの先頭に質問を追加する。
func (fb *fakeBackend) addQuestion(q model.Question) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.questions = append([]model.Question{q}, fb.questions...)
}

func (fb *fakeBackend) hitCount(route string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[route]
}

func (fb *fakeBackend) lastBody(route string) map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	bodies := fb.bodies[route]
	if len(bodies) == 0 {
		return nil
	}
	return bodies[len(bodies)-1]
}

func (fb *fakeBackend) question(id string) (model.Question, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, q := range fb.questions {
		if q.ID == id {
			return q, true
		}
	}
	return model.Question{}, false
}

func (fb *fakeBackend) blob(name string) ([]byte, string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.blobs[name], fb.blobTypes[name]
}

// record はリクエストを記録し、JSONボディがあればデコードして返す。
func (fb *fakeBackend) record(route string, r *http.Request) map[string]any {
	var body map[string]any
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.hits[route]++
	fb.bodies[route] = append(fb.bodies[route], body)
	return body
}

func (fb *fakeBackend) issueToken(u model.User) string {
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"role":    string(u.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	}).SignedString(testSigningKey)
	if err != nil {
		fb.t.Fatalf("トークンの署名に失敗しました: %v", err)
	}
	return token
}

// authUser はAuthorizationヘッダーのトークンを検証してユーザーを返す。
func (fb *fakeBackend) authUser(r *http.Request) (model.User, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return model.User{}, false
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return testSigningKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.User{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.User{}, false
	}
	email, _ := claims["email"].(string)

	fb.mu.Lock()
	defer fb.mu.Unlock()
	acct, ok := fb.accounts[email]
	if !ok || fb.revoked[email] {
		return model.User{}, false
	}
	return acct.user, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func str(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

func (fb *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	body := fb.record("POST /v1/auth/login", r)

	fb.mu.Lock()
	acct, ok := fb.accounts[str(body, "email")]
	fb.mu.Unlock()
	if !ok || acct.password != str(body, "password") {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{User: acct.user, Token: fb.issueToken(acct.user)})
}

func (fb *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	body := fb.record("POST /v1/auth/register", r)

	fb.mu.Lock()
	if _, exists := fb.accounts[str(body, "email")]; exists {
		fb.mu.Unlock()
		writeError(w, http.StatusConflict, "User already exists")
		return
	}
	fb.nextID++
	role := model.Role(str(body, "role"))
	if role == "" {
		role = model.RoleStudent
	}
	user := model.User{
		ID:        fmt.Sprintf("u%d", fb.nextID),
		Email:     str(body, "email"),
		FullName:  str(body, "fullName"),
		Role:      role,
		CreatedAt: "2024-05-01T10:00:00",
		IsActive:  true,
	}
	fb.accounts[user.Email] = &fakeAccount{password: str(body, "password"), user: user}
	fb.mu.Unlock()

	writeJSON(w, http.StatusCreated, model.AuthResponse{User: user, Token: fb.issueToken(user)})
}

func (fb *fakeBackend) me(w http.ResponseWriter, r *http.Request) {
	fb.record("GET /v1/users/me", r)
	user, ok := fb.authUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (fb *fakeBackend) listQuestions(route string, v1 bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.record(route, r)
		if _, ok := fb.authUser(r); v1 && !ok {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		fb.mu.Lock()
		questions := slices.Clone(fb.questions)
		fb.mu.Unlock()
		if questions == nil {
			questions = []model.Question{}
		}
		writeJSON(w, http.StatusOK, questions)
	}
}

func (fb *fakeBackend) getQuestion(route string, v1 bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fb.record(route, r)
		if _, ok := fb.authUser(r); v1 && !ok {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		q, ok := fb.question(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "Question not found")
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func (fb *fakeBackend) createQuestion(route string, v1 bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := fb.record(route, r)

		userID := str(body, "userId")
		if v1 {
			user, ok := fb.authUser(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			userID = user.ID
		}
		if userID == "" {
			writeError(w, http.StatusBadRequest, "Missing required fields")
			return
		}

		fb.mu.Lock()
		fb.nextID++
		q := model.Question{
			ID:        fmt.Sprintf("q%d", fb.nextID),
			UserID:    userID,
			Title:     str(body, "title"),
			MediaURL:  str(body, "mediaUrl"),
			MediaType: model.MediaType(str(body, "mediaType")),
			Caption:   str(body, "caption"),
			Timestamp: "2024-05-01T10:00:00",
			Status:    model.QuestionStatusPending,
			Answers:   []model.Answer{},
		}
		fb.questions = append([]model.Question{q}, fb.questions...)
		fb.mu.Unlock()

		writeJSON(w, http.StatusCreated, q)
	}
}

func (fb *fakeBackend) addAnswer(route string, v1 bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := fb.record(route, r)

		userID := str(body, "userId")
		if v1 {
			user, ok := fb.authUser(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			userID = user.ID
		}

		fb.mu.Lock()
		defer fb.mu.Unlock()
		for i := range fb.questions {
			if fb.questions[i].ID != chi.URLParam(r, "id") {
				continue
			}
			fb.nextID++
			ans := model.Answer{
				AnswerID:     fmt.Sprintf("a%d", fb.nextID),
				UserID:       userID,
				TextResponse: str(body, "textResponse"),
				MediaURL:     str(body, "mediaUrl"),
				Timestamp:    "2024-05-01T11:00:00",
			}
			fb.questions[i].Answers = append(fb.questions[i].Answers, ans)
			fb.questions[i].Status = model.QuestionStatusAnswered
			writeJSON(w, http.StatusCreated, ans)
			return
		}
		writeError(w, http.StatusNotFound, "Question not found")
	}
}

func (fb *fakeBackend) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	fb.record("DELETE /v1/questions/{id}", r)
	if _, ok := fb.authUser(r); !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	id := chi.URLParam(r, "id")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for i, q := range fb.questions {
		if q.ID == id {
			fb.questions = slices.Delete(fb.questions, i, i+1)
			writeJSON(w, http.StatusOK, model.DeleteResult{Message: "Question deleted successfully"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Question not found")
}

func (fb *fakeBackend) upload(w http.ResponseWriter, r *http.Request) {
	fb.record("POST /api/upload", r)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	fb.mu.Lock()
	fb.blobs[header.Filename] = data
	fb.blobTypes[header.Filename] = header.Header.Get("Content-Type")
	fb.mu.Unlock()

	writeJSON(w, http.StatusOK, model.UploadResult{URL: "https://cdn.example.com/legacy/" + header.Filename})
}

func (fb *fakeBackend) uploadURL(w http.ResponseWriter, r *http.Request) {
	body := fb.record("POST /v1/media/upload-url", r)
	if _, ok := fb.authUser(r); !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	name := "blob-" + str(body, "fileName")
	writeJSON(w, http.StatusOK, model.UploadTarget{
		UploadURL: fb.server.URL + "/blob/" + name,
		PublicURL: "https://cdn.example.com/media/" + name,
		BlobName:  name,
		ExpiresAt: "2024-05-01T11:00:00",
	})
}

func (fb *fakeBackend) putBlob(w http.ResponseWriter, r *http.Request) {
	fb.record("PUT /blob/{name}", r)
	if r.Header.Get("X-Ms-Blob-Type") != "BlockBlob" {
		writeError(w, http.StatusBadRequest, "missing blob type")
		return
	}
	data, _ := io.ReadAll(r.Body)

	name := chi.URLParam(r, "name")
	fb.mu.Lock()
	fb.blobs[name] = data
	fb.blobTypes[name] = r.Header.Get("Content-Type")
	fb.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

func (fb *fakeBackend) adminStats(w http.ResponseWriter, r *http.Request) {
	fb.record("GET /v1/admin/stats", r)
	user, ok := fb.authUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if user.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "Admin access required")
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	writeJSON(w, http.StatusOK, model.AdminStats{
		TotalUsers:     len(fb.accounts),
		TotalQuestions: len(fb.questions),
		StorageUsage:   "N/A",
		LastUpdated:    "2024-05-01T12:00:00",
	})
}
