package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/database/repository"
	"github.com/onegreenvn/bizdoc-services-backend/internal/middleware"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/activity"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/admin"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/assembler"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/export"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/preview"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser stands in for the auth middlewares
func asUser(id string, isAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, id)
		c.Set(middleware.ContextIsAdmin, isAdmin)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

type spyAssembler struct {
	format assembler.Format
	calls  int32
	err    error
}

func (a *spyAssembler) Format() assembler.Format { return a.format }
func (a *spyAssembler) ContentType() string      { return "application/test" }
func (a *spyAssembler) Extension() string        { return string(a.format) }

func (a *spyAssembler) Assemble(doc assembler.Document, _ assembler.Theme) ([]byte, error) {
	atomic.AddInt32(&a.calls, 1)
	if a.err != nil {
		return nil, a.err
	}
	return []byte(doc.Content), nil
}

func exportRouter(t *testing.T, asms ...assembler.Assembler) *gin.Engine {
	t.Helper()
	reg := assembler.DefaultRegistry()
	if len(asms) > 0 {
		var err error
		reg, err = assembler.NewRegistry(asms...)
		require.NoError(t, err)
	}
	h := NewExportHandler(export.NewService(reg, assembler.DefaultTheme(), nil), activity.Nop{})
	r := gin.New()
	r.POST("/api/v1/export", asUser("owner", false), h.Export)
	return r
}

func TestExportRejectsMissingFieldsWithoutAssembling(t *testing.T) {
	spy := &spyAssembler{format: assembler.FormatDOCX}
	r := exportRouter(t, spy)

	w := doJSON(r, http.MethodPost, "/api/v1/export", map[string]string{"businessName": "Acme"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "content is required", errorBody(t, w))

	w = doJSON(r, http.MethodPost, "/api/v1/export", map[string]string{"content": "# Hi"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "businessName is required", errorBody(t, w))

	w = doJSON(r, http.MethodPost, "/api/v1/export", map[string]string{"content": "# Hi", "businessName": "Acme", "format": "odt"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, atomic.LoadInt32(&spy.calls))
}

func TestExportStreamsAttachment(t *testing.T) {
	r := exportRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/export", map[string]string{
		"content":      "# Executive Summary\nFresh bread daily\n- Ovens\n- Vans",
		"businessName": "Acme Bakery",
		"documentType": "pitch_deck",
	})
	require.Equal(t, http.StatusOK, w.Code)

	want := "acme_bakery_pitch_deck_" + time.Now().Format("2006-01-02") + ".pptx"
	assert.Equal(t, `attachment; filename="`+want+`"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.presentationml.presentation", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "pptx is a zip package")

	w = doJSON(r, http.MethodPost, "/api/v1/export", map[string]string{
		"content":      "Plain text",
		"businessName": "Tech Ltd",
		"documentType": "business_proposal",
		"format":       "txt",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "tech_ltd_business_proposal_")
	assert.Contains(t, w.Body.String(), "Plain text")
}

func TestExportHidesAssemblyCause(t *testing.T) {
	spy := &spyAssembler{format: assembler.FormatDOCX, err: errors.New("zip writer exploded")}
	r := exportRouter(t, spy)

	w := doJSON(r, http.MethodPost, "/api/v1/export", map[string]string{"content": "x", "businessName": "Acme"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to export document", errorBody(t, w))
	assert.NotContains(t, w.Body.String(), "exploded")
}

type fakeProjects struct {
	generateErr error
	lastFilter  repository.ProjectFilter
}

func (f *fakeProjects) Generate(_ context.Context, userID string, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	p := models.Project{ID: "p1", UserID: userID, Type: req.Type, Content: "# Plan", Status: models.ProjectStatusCompleted, TokensUsed: 42}
	return &models.GenerateResponse{Project: p, TokensUsed: 42}, nil
}

func (f *fakeProjects) Get(userID, id string) (*models.Project, error) {
	if id != "p1" {
		return nil, apperror.NotFound("project not found")
	}
	return &models.Project{ID: id, UserID: userID}, nil
}

func (f *fakeProjects) List(filter repository.ProjectFilter, page, pageSize int) ([]models.ProjectListItem, int64, error) {
	f.lastFilter = filter
	return []models.ProjectListItem{{ID: "p1", UserID: filter.UserID}}, 1, nil
}

func (f *fakeProjects) Update(string, string, *models.UpdateProjectRequest) (*models.Project, error) {
	return nil, apperror.Internal(errors.New("pq: password authentication failed"))
}

func (f *fakeProjects) Delete(string, string) error { return nil }

func (f *fakeProjects) Preview(string, string) (*preview.Preview, error) {
	return &preview.Preview{Layout: "slides"}, nil
}

func (f *fakeProjects) Export(context.Context, string, string, string) (*export.Artifact, error) {
	return &export.Artifact{Data: []byte("hello"), Filename: "acme_pitch_deck.txt", ContentType: "text/plain; charset=utf-8"}, nil
}

func (f *fakeProjects) Archive(context.Context, string, string, string) (*models.ArchiveResponse, error) {
	return nil, apperror.New(apperror.CodeStorage, "document archive is not configured")
}

func projectRouter(f *fakeProjects) *gin.Engine {
	h := NewProjectHandler(f)
	r := gin.New()
	api := r.Group("/api/v1", asUser("owner", false))
	api.GET("/document-types", h.DocumentTypes)
	api.POST("/generate", h.Generate)
	api.GET("/projects", h.List)
	api.GET("/projects/:id", h.Get)
	api.PUT("/projects/:id", h.Update)
	api.GET("/projects/:id/export", h.Export)
	api.POST("/projects/:id/archive", h.Archive)
	return r
}

func TestGenerateHandler(t *testing.T) {
	f := &fakeProjects{}
	r := projectRouter(f)

	w := doJSON(r, http.MethodPost, "/api/v1/generate", map[string]interface{}{
		"type":  "pitch_deck",
		"input": map[string]string{"business_name": "Acme"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "owner", resp.Project.UserID)
	assert.Equal(t, 42, resp.TokensUsed)

	w = doJSON(r, http.MethodPost, "/api/v1/generate", map[string]interface{}{"type": "pitch_deck"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.generateErr = apperror.QuotaExceeded("monthly document limit reached for the Free plan")
	w = doJSON(r, http.MethodPost, "/api/v1/generate", map[string]interface{}{
		"type":  "pitch_deck",
		"input": map[string]string{"business_name": "Acme"},
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	f.generateErr = apperror.Generation(errors.New("openai: 503"))
	w = doJSON(r, http.MethodPost, "/api/v1/generate", map[string]interface{}{
		"type":  "pitch_deck",
		"input": map[string]string{"business_name": "Acme"},
	})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to generate document", errorBody(t, w))
}

func TestProjectRoutes(t *testing.T) {
	f := &fakeProjects{}
	r := projectRouter(f)

	w := doJSON(r, http.MethodGet, "/api/v1/projects?type=pitch-deck&page=2&page_size=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner", f.lastFilter.UserID)
	assert.Equal(t, models.KindPitchDeck, f.lastFilter.Type)
	assert.Contains(t, w.Body.String(), `"total_pages":1`)

	w = doJSON(r, http.MethodGet, "/api/v1/projects/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPut, "/api/v1/projects/p1", map[string]string{"title": "x"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorBody(t, w))
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(r, http.MethodGet, "/api/v1/projects/p1/export?format=txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="acme_pitch_deck.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "hello", w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/v1/projects/p1/archive", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "document archive is not configured", errorBody(t, w))
}

func TestDocumentTypes(t *testing.T) {
	r := projectRouter(&fakeProjects{})

	w := doJSON(r, http.MethodGet, "/api/v1/document-types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		DocumentTypes []DocumentType `json:"document_types"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.DocumentTypes, len(models.AllDocumentKinds()))
	for _, dt := range body.DocumentTypes {
		if dt.Type == models.KindPitchDeck {
			assert.Equal(t, "pptx", dt.DefaultFormat)
		}
		if dt.Type == models.KindLoanApplication {
			assert.Equal(t, "docx", dt.DefaultFormat)
		}
	}
}

type fakePayments struct {
	confirmed []string
}

func (f *fakePayments) Initiate(_ context.Context, userID, plan string) (*models.InitiatePaymentResponse, error) {
	if plan != models.PlanStarter {
		return nil, apperror.Validation("unknown plan")
	}
	return &models.InitiatePaymentResponse{PaymentID: "pay-1", TxRef: "bizdoc-1", CheckoutURL: "https://checkout.test/pay/1", Amount: 5000, Currency: "NGN"}, nil
}

func (f *fakePayments) Confirm(_ context.Context, txRef string) (*models.Payment, error) {
	if txRef == "" {
		return nil, apperror.Validation("tx_ref is required")
	}
	f.confirmed = append(f.confirmed, txRef)
	return &models.Payment{TxRef: txRef, Status: models.PaymentCompleted}, nil
}

func (f *fakePayments) HandleWebhook(ctx context.Context, signature string, event *models.PaymentWebhookEvent) (*models.Payment, error) {
	if signature != "s3cret" {
		return nil, apperror.Unauthorized("invalid webhook signature")
	}
	return f.Confirm(ctx, event.Data.TxRef)
}

func (f *fakePayments) GetForUser(context.Context, string, string) (*models.Payment, error) {
	return nil, apperror.NotFound("payment not found")
}

type fakeSubscriptions struct{}

func (fakeSubscriptions) Status(context.Context, string) (*models.SubscriptionStatusResponse, error) {
	return &models.SubscriptionStatusResponse{Status: models.SubscriptionActive, Remaining: 2}, nil
}

func billingRouter(f *fakePayments, redirect string) *gin.Engine {
	h := NewBillingHandler(f, fakeSubscriptions{}, redirect)
	r := gin.New()
	r.GET("/plans", h.Plans)
	r.GET("/payments/callback", h.Callback)
	r.POST("/payments/webhook", h.Webhook)
	auth := r.Group("", asUser("owner", false))
	auth.POST("/payments/initiate", h.Initiate)
	auth.GET("/payments/:tx_ref", h.GetPayment)
	auth.GET("/subscription", h.Subscription)
	return r
}

func TestBillingHandler(t *testing.T) {
	f := &fakePayments{}
	r := billingRouter(f, "")

	w := doJSON(r, http.MethodGet, "/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"starter"`)

	w = doJSON(r, http.MethodPost, "/payments/initiate", map[string]string{"plan": "starter"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "https://checkout.test/pay/1")

	w = doJSON(r, http.MethodPost, "/payments/initiate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/payments/bizdoc-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/subscription", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhookRequiresSignature(t *testing.T) {
	f := &fakePayments{}
	r := billingRouter(f, "")
	event := map[string]interface{}{"event": "charge.completed", "data": map[string]interface{}{"tx_ref": "bizdoc-1", "status": "successful"}}

	w := doJSON(r, http.MethodPost, "/payments/webhook", event, WebhookSignatureHeader, "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, f.confirmed)

	w = doJSON(r, http.MethodPost, "/payments/webhook", event, WebhookSignatureHeader, "s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"bizdoc-1"}, f.confirmed)
}

func TestCallbackVerifiesAndRedirects(t *testing.T) {
	f := &fakePayments{}

	w := doJSON(billingRouter(f, ""), http.MethodGet, "/payments/callback?tx_ref=bizdoc-9&status=cancelled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.PaymentCompleted)

	w = doJSON(billingRouter(f, "https://app.bizdoc.test/billing?tab=plans"), http.MethodGet, "/payments/callback?tx_ref=bizdoc-9", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc := w.Header().Get("Location")
	assert.True(t, strings.HasPrefix(loc, "https://app.bizdoc.test/billing?"))
	assert.Contains(t, loc, "status=completed")
	assert.Contains(t, loc, "tx_ref=bizdoc-9")
	assert.Contains(t, loc, "tab=plans")

	w = doJSON(billingRouter(f, ""), http.MethodGet, "/payments/callback", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeAdmin struct {
	lastFilter repository.PaymentFilter
}

func (f *fakeAdmin) Dashboard(context.Context) (*admin.Dashboard, error) {
	return &admin.Dashboard{TotalUsers: 3}, nil
}

func (f *fakeAdmin) ListPayments(_ context.Context, filter repository.PaymentFilter, _, _ int) ([]models.Payment, int64, error) {
	f.lastFilter = filter
	return nil, 0, nil
}

func (f *fakeAdmin) PaymentReport(_ context.Context, filter repository.PaymentFilter) ([]byte, string, error) {
	f.lastFilter = filter
	return []byte("xlsx"), "payments_report_2025-06-30.xlsx", nil
}

type fakeDirectory struct{ deleted []string }

func (f *fakeDirectory) GetAllUsers(int, int, string) ([]models.User, int64, error) {
	return []models.User{{ID: "u1"}}, 1, nil
}

func (f *fakeDirectory) Delete(id string) (bool, error) {
	if id == "ghost" {
		return false, nil
	}
	f.deleted = append(f.deleted, id)
	return true, nil
}

type fakeAuth struct {
	AuthService
	active map[string]bool
}

func (f *fakeAuth) SetUserActive(id string, active bool) error {
	f.active[id] = active
	return nil
}

type fakeFeed struct{}

func (fakeFeed) List(models.ActivityFilter, int, int) ([]models.ActivityLog, int64, error) {
	return []models.ActivityLog{{Action: models.ActionSignup}}, 1, nil
}

func adminRouter(a *fakeAdmin, d *fakeDirectory, auth *fakeAuth) *gin.Engine {
	h := NewAdminHandler(a, auth, d, &fakeProjects{}, fakeFeed{}, activity.NewSSEHub(), activity.Nop{})
	r := gin.New()
	g := r.Group("/admin", asUser("admin-1", true), middleware.RequireAdmin())
	g.GET("/dashboard", h.Dashboard)
	g.GET("/users", h.ListUsers)
	g.PUT("/users/:id/status", h.SetUserStatus)
	g.DELETE("/users/:id", h.DeleteUser)
	g.GET("/payments", h.ListPayments)
	g.GET("/reports/payments", h.PaymentReport)
	g.GET("/activity", h.ListActivity)
	return r
}

func TestAdminUserManagement(t *testing.T) {
	d := &fakeDirectory{}
	auth := &fakeAuth{active: map[string]bool{}}
	r := adminRouter(&fakeAdmin{}, d, auth)

	w := doJSON(r, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"u1"`)

	w = doJSON(r, http.MethodDelete, "/admin/users/admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, http.MethodDelete, "/admin/users/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(r, http.MethodDelete, "/admin/users/u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"u1"}, d.deleted)

	w = doJSON(r, http.MethodPut, "/admin/users/admin-1/status", map[string]bool{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, http.MethodPut, "/admin/users/u1/status", map[string]bool{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, auth.active["u1"])
}

func TestAdminPaymentFilters(t *testing.T) {
	a := &fakeAdmin{}
	r := adminRouter(a, &fakeDirectory{}, &fakeAuth{active: map[string]bool{}})

	w := doJSON(r, http.MethodGet, "/admin/payments?status=completed&from=2025-06-01&to=2025-06-30", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentCompleted, a.lastFilter.Status)
	require.NotNil(t, a.lastFilter.From)
	require.NotNil(t, a.lastFilter.To)
	assert.Equal(t, 30, a.lastFilter.To.Day())
	assert.Equal(t, 23, a.lastFilter.To.Hour())

	w = doJSON(r, http.MethodGet, "/admin/payments?from=June", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, http.MethodGet, "/admin/payments?status=refunded", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/admin/reports/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="payments_report_2025-06-30.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", w.Body.String())
}

func TestAdminDashboardAndActivity(t *testing.T) {
	r := adminRouter(&fakeAdmin{}, &fakeDirectory{}, &fakeAuth{active: map[string]bool{}})

	w := doJSON(r, http.MethodGet, "/admin/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_users":3`)

	w = doJSON(r, http.MethodGet, "/admin/activity?action=signup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"signup"`)
}
