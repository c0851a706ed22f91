package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubAI struct{}

func (stubAI) Classify(context.Context, ai.ClassifyRequest) (ai.Verdict, error) {
	return ai.Verdict{IsEducational: true, Reason: "educational"}, nil
}

func (stubAI) GenerateTags(context.Context, ai.TagRequest) (ai.TagResult, error) {
	return ai.TagResult{Tags: []string{"physics", "science", "intro"}}, nil
}

type testApp struct {
	app      *fiber.App
	store    *store.MemoryStore
	hub      *store.Hub
	pipeline *services.PipelineService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:   testSecret,
		CORSOrigins: "*",
		AdminToken:  "admin-token",
	}
	mem := store.NewMemoryStore()
	live := store.NewLiveStore(mem)
	blobs, err := storage.NewDiskStore(t.TempDir(), "http://localhost")
	require.NoError(t, err)

	pipeline := services.NewPipelineService(live, blobs, stubAI{}, stubAI{}, services.NewHubNotifier(live.Hub()))
	contentService := services.NewContentService(live, blobs)
	userService := services.NewUserService(mem)

	app := fiber.New()
	routes.Setup(app, cfg, userService,
		handlers.NewHealthHandler("memory", nil, live.Hub()),
		handlers.NewContentHandler(pipeline, contentService),
		handlers.NewStreamHandler(live.Hub(), contentService),
		handlers.NewUserHandler(userService),
		handlers.NewAdminHandler(contentService),
	)
	t.Cleanup(func() {
		pipeline.Wait()
		live.Hub().Close()
	})
	return &testApp{app: app, store: mem, hub: live.Hub(), pipeline: pipeline}
}

func token(t *testing.T, uid string) string {
	t.Helper()
	tok, err := middleware.SignToken(testSecret, jwt.MapClaims{
		"sub":   uid,
		"email": uid + "@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return tok
}

func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func jsonRequest(method, path string, body any, bearer string) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func uploadRequest(t *testing.T, bearer, title, description string, tags []string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", title))
	require.NoError(t, w.WriteField("description", description))
	for _, tag := range tags {
		require.NoError(t, w.WriteField("tags", tag))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="notes.pdf"`)
	h.Set("Content-Type", "application/pdf")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 quantum lecture notes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/content", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)
	return req
}

func TestProvisionUser(t *testing.T) {
	a := newTestApp(t)
	tok := token(t, "alice")
	body := dto.ProvisionUserRequest{UID: "alice", Email: "alice@example.com"}

	resp, _ := a.do(t, jsonRequest(http.MethodPost, "/api/user", body, tok))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = a.do(t, jsonRequest(http.MethodPost, "/api/user", body, tok))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.do(t, jsonRequest(http.MethodPost, "/api/user", dto.ProvisionUserRequest{UID: "alice"}, ""))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, jsonRequest(http.MethodPost, "/api/user", body, token(t, "mallory")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestUploadFlow(t *testing.T) {
	a := newTestApp(t)
	tok := token(t, "alice")

	resp, body := a.do(t, uploadRequest(t, tok, "Intro to Quantum Physics", "A short lecture on qubits", []string{"Quantum"}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var rec models.ContentRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, models.StatusPending, rec.Status)
	assert.Empty(t, rec.Tags)

	a.pipeline.Wait()

	resp, body = a.do(t, jsonRequest(http.MethodGet, "/api/me/content", nil, tok))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.ContentListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, models.StatusApproved, list.Data[0].Status)
	assert.ElementsMatch(t, []string{"quantum", "physics", "science", "intro"}, list.Data[0].Tags)

	resp, _ = a.do(t, jsonRequest(http.MethodGet, "/api/content/"+rec.ID, nil, ""))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.do(t, jsonRequest(http.MethodDelete, "/api/me/content/"+rec.ID, nil, token(t, "bob")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = a.do(t, jsonRequest(http.MethodDelete, "/api/me/content/"+rec.ID, nil, tok))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.do(t, jsonRequest(http.MethodGet, "/api/content/"+rec.ID, nil, ""))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadValidationError(t *testing.T) {
	a := newTestApp(t)

	resp, body := a.do(t, uploadRequest(t, token(t, "alice"), "Hi", "short", nil))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var errResp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.True(t, errResp.Error)
	fields := make([]string, len(errResp.Fields))
	for i, f := range errResp.Fields {
		fields[i] = f.Field
	}
	assert.ElementsMatch(t, []string{"title", "description"}, fields)

	records, err := a.store.List(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	a := newTestApp(t)
	resp, _ := a.do(t, jsonRequest(http.MethodGet, "/api/me/content", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, jsonRequest(http.MethodGet, "/api/me/content", nil, "not-a-jwt"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminReview(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.Create(ctx, &models.ContentRecord{
		ID: "stuck", OwnerID: "alice", Status: models.StatusPending, Stage: models.StageTagging,
	}))

	resp, _ := a.do(t, jsonRequest(http.MethodGet, "/api/admin/content?status=pending", nil, token(t, "alice")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := jsonRequest(http.MethodPut, "/api/admin/content/stuck/review",
		dto.ReviewContentRequest{Status: "rejected", Reason: "manual"}, "")
	req.Header.Set("X-Admin-Token", "admin-token")
	resp, body := a.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	got, err := a.store.Get(ctx, "stuck")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, "manual", got.Reason)
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	resp, body := a.do(t, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.DB)
	assert.Equal(t, "memory", health.Store)
}

// events returns the data payloads of the named SSE events in body.
func events(t *testing.T, body []byte, name string) []string {
	t.Helper()
	var out []string
	for _, block := range strings.Split(string(body), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) != 2 || lines[0] != "event: "+name {
			continue
		}
		out = append(out, strings.TrimPrefix(lines[1], "data: "))
	}
	return out
}

func TestProgressStreamEndsOnRecordedFailure(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.Create(ctx, &models.ContentRecord{
		ID: "c1", OwnerID: "alice", Status: models.StatusPending, Stage: models.StageVerifying,
		Failure: models.FailureModeration,
	}))

	resp, _ := a.do(t, jsonRequest(http.MethodGet, "/api/content/c1/progress", nil, ""))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = a.do(t, jsonRequest(http.MethodGet, "/api/content/c1/progress", nil, token(t, "bob")))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/content/c1/progress?access_token="+token(t, "alice"), nil)
	resp, body := a.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	payloads := events(t, body, "progress")
	require.Len(t, payloads, 1)
	var p struct {
		Status string `json:"status"`
		Failed bool   `json:"failed"`
		Done   bool   `json:"done"`
		Notice *struct {
			Kind string `json:"kind"`
		} `json:"notice"`
	}
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &p))
	assert.Equal(t, "pending", p.Status)
	assert.True(t, p.Failed)
	assert.True(t, p.Done)
	require.NotNil(t, p.Notice)
	assert.Equal(t, "moderation_failed", p.Notice.Kind)
}

func TestApprovedStreamSendsSnapshot(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.Create(ctx, &models.ContentRecord{
		ID: "c1", OwnerID: "alice", Status: models.StatusApproved, Stage: models.StageCompleted, Tags: []string{"math"},
	}))

	type result struct {
		resp *http.Response
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := a.app.Test(httptest.NewRequest(http.MethodGet, "/api/content/stream?tag=math", nil), -1)
		if err != nil {
			done <- result{err: err}
			return
		}
		body, err := io.ReadAll(resp.Body)
		done <- result{resp: resp, body: body, err: err}
	}()

	require.Eventually(t, func() bool { return a.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	a.hub.Close()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Equal(t, http.StatusOK, r.resp.StatusCode)
		snaps := events(t, r.body, "snapshot")
		require.NotEmpty(t, snaps)
		var list dto.ContentListResponse
		require.NoError(t, json.Unmarshal([]byte(snaps[0]), &list))
		require.Len(t, list.Data, 1)
		assert.Equal(t, "c1", list.Data[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after the hub closed")
	}
}

func TestWireNamesAreSnakeCase(t *testing.T) {
	a := newTestApp(t)
	tok := token(t, "alice")

	resp, body := a.do(t, jsonRequest(http.MethodPost, "/api/user", map[string]any{
		"uid": "alice", "email": "alice@example.com", "display_name": "Alice",
	}, tok))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var provisioned map[string]any
	require.NoError(t, json.Unmarshal(body, &provisioned))
	user, ok := provisioned["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Alice", user["display_name"])

	require.NoError(t, a.store.Create(context.Background(), &models.ContentRecord{
		ID: "c1", OwnerID: "alice", Title: "Old title", Description: "Old description that is long",
		Status: models.StatusApproved, Stage: models.StageCompleted,
	}))
	resp, body = a.do(t, jsonRequest(http.MethodPut, "/api/me/content/c1", map[string]any{
		"title": "Intro to Quantum Physics", "description": "A short lecture on qubits",
		"tags": []string{"quantum"}, "is_paid": true,
	}, tok))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var edited map[string]any
	require.NoError(t, json.Unmarshal(body, &edited))
	assert.Equal(t, true, edited["is_paid"])
	assert.NotContains(t, edited, "isPaid")
}
