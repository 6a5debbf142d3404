package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inksign/inksign/backend/go-services/internal/document"
	"github.com/inksign/inksign/backend/go-services/internal/document/service"
	"github.com/inksign/inksign/backend/go-services/internal/models"
	"github.com/inksign/inksign/backend/go-services/internal/tokens"
	"github.com/inksign/inksign/backend/go-services/internal/users"
	"github.com/inksign/inksign/backend/go-services/pkg/middleware"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const secret = "handler-test-secret-32-bytes-xxxxxxxx"

type env struct {
	g                  *gin.Engine
	alex, blake, casey *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	dir := users.NewService(users.NewMemoryUserRepository(), users.BcryptHasher{Cost: bcrypt.MinCost})
	e := &env{g: gin.New()}
	var err error
	e.alex, err = dir.Register(ctx, "Alex", "alex@acme.com", "password123")
	require.NoError(t, err)
	e.blake, err = dir.Register(ctx, "Blake", "blake@acme.com", "password123")
	require.NoError(t, err)
	e.casey, err = dir.Register(ctx, "Casey", "casey@acme.com", "password123")
	require.NoError(t, err)

	api := e.g.Group("/api", middleware.AuthMiddleware(tokens.NewVerifier(secret)), middleware.PrincipalMiddleware(dir))
	RegisterDocumentRoutes(api, service.NewMemoryService(dir), dir, 1<<20)
	return e
}

func bearer(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := tokens.GenerateAccessToken(secret, u, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (e *env) serve(auth, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	e.g.ServeHTTP(w, req)
	return w
}

func (e *env) do(t *testing.T, u *models.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	auth := ""
	if u != nil {
		auth = bearer(t, u)
	}
	return e.serve(auth, method, path, body)
}

func decodeDoc(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (e *env) create(t *testing.T, from, to *models.User, title string) string {
	t.Helper()
	w := e.do(t, from, http.MethodPost, "/api/documents", `{"title":"`+title+`","recipientId":"`+to.ID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeDoc(t, w)["id"].(string)
}

func TestDocumentHandler_Unauthenticated(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, nil, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentHandler_Lifecycle(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, e.alex, e.blake, "Q3 Contract")

	// detail for both parties, 404 for a third party
	w := e.do(t, e.alex, http.MethodGet, "/api/documents/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeDoc(t, w)
	require.Equal(t, "sender", got["role"])
	doc := got["document"].(map[string]interface{})
	require.Equal(t, "PENDING", doc["status"])
	require.Nil(t, doc["signedAt"])

	w = e.do(t, e.blake, http.MethodGet, "/api/documents/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "recipient", decodeDoc(t, w)["role"])

	w = e.do(t, e.casey, http.MethodGet, "/api/documents/"+id, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotContains(t, w.Body.String(), "Q3 Contract")

	// sender cannot sign, empty signature rejected
	w = e.do(t, e.alex, http.MethodPost, "/api/documents/"+id+"/sign", `{"mode":"type","signature":"Alex"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, e.blake, http.MethodPost, "/api/documents/"+id+"/sign", `{"mode":"type","signature":"  "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "validation", decodeDoc(t, w)["error"])

	w = e.do(t, e.blake, http.MethodPost, "/api/documents/"+id+"/sign", `{"mode":"draw","strokes":12}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	signed := decodeDoc(t, w)
	require.Equal(t, "SIGNED", signed["status"])
	require.NotNil(t, signed["signedAt"])

	w = e.do(t, e.blake, http.MethodPost, "/api/documents/"+id+"/sign", `{"mode":"type","signature":"Blake"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "invalid_state", decodeDoc(t, w)["error"])

	// only the sender completes
	w = e.do(t, e.blake, http.MethodPost, "/api/documents/"+id+"/complete", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, e.alex, http.MethodPost, "/api/documents/"+id+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "COMPLETED", decodeDoc(t, w)["status"])

	w = e.do(t, e.blake, http.MethodPost, "/api/documents/missing/sign", `{"mode":"type","signature":"Blake"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_CreateErrors(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, e.alex, http.MethodPost, "/api/documents", `{"title":"x","recipientEmail":"nobody@acme.com"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "recipient_not_found", decodeDoc(t, w)["error"])

	w = e.do(t, e.alex, http.MethodPost, "/api/documents", `{"title":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, e.alex, http.MethodPost, "/api/documents", `{"recipientEmail":"Blake@Acme.com","fileName":"nda.pdf","fileType":"application/pdf","fileData":"data:application/pdf;base64,AA=="}`)
	require.Equal(t, http.StatusCreated, w.Code)
	d := decodeDoc(t, w)
	require.Equal(t, document.DefaultTitle, d["title"])
	require.Equal(t, e.blake.ID, d["recipientId"])
	require.Equal(t, "nda.pdf", d["fileName"])
}

func TestDocumentHandler_MultipartUpload(t *testing.T) {
	e := newEnv(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Lease"))
	require.NoError(t, mw.WriteField("recipientEmail", "blake@acme.com"))
	part, err := mw.CreateFormFile("file", "lease.pdf")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 300))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, e.alex))
	w := httptest.NewRecorder()
	e.g.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	d := decodeDoc(t, w)
	require.Equal(t, "Lease", d["title"])
	require.Equal(t, "lease.pdf", d["fileName"])
	require.Equal(t, "application/octet-stream", d["fileType"])
	require.Equal(t, service.PlaceholderFileData("lease.pdf", "application/octet-stream", 300), d["fileData"])
}

func TestDocumentHandler_Views(t *testing.T) {
	e := newEnv(t)
	d1 := e.create(t, e.alex, e.blake, "one")
	d2 := e.create(t, e.blake, e.alex, "two")
	e.create(t, e.casey, e.alex, "other")

	ids := func(w *httptest.ResponseRecorder) []string {
		var out struct {
			Documents []document.Document `json:"documents"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		res := []string{}
		for _, d := range out.Documents {
			res = append(res, d.ID)
		}
		return res
	}

	w := e.do(t, e.blake, http.MethodGet, "/api/documents?view=inbox", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{d1}, ids(w))
	w = e.do(t, e.blake, http.MethodGet, "/api/documents?view=sent", "")
	require.Equal(t, []string{d2}, ids(w))
	w = e.do(t, e.blake, http.MethodGet, "/api/documents", "")
	require.Equal(t, []string{d1, d2}, ids(w))
	w = e.do(t, e.blake, http.MethodGet, "/api/documents?view=bogus", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_ConcurrentSign(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, e.alex, e.blake, "race")

	auth := bearer(t, e.blake)
	codes := make([]int, 4)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = e.serve(auth, http.MethodPost, "/api/documents/"+id+"/sign", `{"mode":"type","signature":"Blake"}`).Code
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, c := range codes {
		if c == http.StatusOK {
			ok++
			continue
		}
		require.Equal(t, http.StatusConflict, c)
	}
	require.Equal(t, 1, ok)
}

func TestDocumentHandler_Preview(t *testing.T) {
	e := newEnv(t)
	id := e.create(t, e.alex, e.blake, "Preview me")

	w := e.do(t, e.blake, http.MethodGet, "/api/documents/"+id+"/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = e.do(t, e.casey, http.MethodGet, "/api/documents/"+id+"/preview", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}
