package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/event-rsvp-ledger/internal/allocator"
	"github.com/iliyamo/event-rsvp-ledger/internal/ledger"
	"github.com/iliyamo/event-rsvp-ledger/internal/model"
)

type fakeService struct {
	got      []model.Submission
	deadline time.Time
	res      model.Result
	err      error
	slots    []allocator.PageSummary
	rows     map[ledger.PageIndex][]ledger.Row
}

func (f *fakeService) Submit(ctx context.Context, sub model.Submission) (model.Result, error) {
	f.got = append(f.got, sub)
	f.deadline, _ = ctx.Deadline()
	return f.res, f.err
}

func (f *fakeService) Slots(context.Context) ([]allocator.PageSummary, error) {
	return f.slots, f.err
}

func (f *fakeService) PageRows(_ context.Context, page ledger.PageIndex) ([]ledger.Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	rows, ok := f.rows[page]
	if !ok {
		return nil, ledger.ErrPageNotFound
	}
	return rows, nil
}

func serve(e *echo.Echo, method, path, body string, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestRSVPHandler_Submit(t *testing.T) {
	const body = `{"wardName":"Sita","wardClass":"B","numberOfParticipants":"2","email":"s@example.com",
		"phone":"98","participants":[{"name":"Ram","relationToStudent":"Father"}],"timestamp":"2025-08-15T08:45:00Z"}`

	t.Run("success reports the allocation", func(t *testing.T) {
		svc := &fakeService{res: model.Result{Sheet: 2, CurrentSlot: false}}
		e := echo.New()
		e.POST("/api/submit-rsvp", NewRSVPHandler(svc, 0, zerolog.Nop()).Submit)

		rec, out := serve(e, http.MethodPost, "/api/submit-rsvp", body, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "RSVP submitted successfully", out["message"])
		assert.Equal(t, 2.0, out["sheet"])
		assert.Equal(t, false, out["currentSlot"])

		require.Len(t, svc.got, 1)
		assert.Equal(t, model.NewCount(2), svc.got[0].NumberOfParticipants)
		assert.Equal(t, "Father", svc.got[0].Participants[0].RelationToStudent)
	})

	t.Run("malformed bodies are client errors", func(t *testing.T) {
		for name, b := range map[string]string{
			"empty":      "",
			"whitespace": "  \n",
			"not json":   "wardName=Sita",
			"bad count":  `{"numberOfParticipants":"two"}`,
		} {
			t.Run(name, func(t *testing.T) {
				svc := &fakeService{}
				e := echo.New()
				e.POST("/api/submit-rsvp", NewRSVPHandler(svc, 0, zerolog.Nop()).Submit)

				rec, out := serve(e, http.MethodPost, "/api/submit-rsvp", b, nil)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, out, "message")
				assert.Contains(t, out, "error")
				assert.Empty(t, svc.got)
			})
		}
	})

	t.Run("odd counts are carried through as sent", func(t *testing.T) {
		for body, want := range map[string]string{
			`{"wardName":"Sita","numberOfParticipants":"two"}`: "two",
			`{"wardName":"Sita","numberOfParticipants":1.5}`:   "1.5",
			`{"wardName":"Sita","numberOfParticipants":true}`:  "true",
			`{"wardName":"Sita"}`:                              "",
		} {
			svc := &fakeService{res: model.Result{Sheet: 1, CurrentSlot: true}}
			e := echo.New()
			e.POST("/api/submit-rsvp", NewRSVPHandler(svc, 0, zerolog.Nop()).Submit)

			rec, _ := serve(e, http.MethodPost, "/api/submit-rsvp", body, nil)
			require.Equal(t, http.StatusOK, rec.Code, body)
			require.Len(t, svc.got, 1)
			assert.Equal(t, want, svc.got[0].NumberOfParticipants.String(), body)
			assert.False(t, svc.got[0].NumberOfParticipants.Valid(), body)
			assert.Equal(t, 0, svc.got[0].NumberOfParticipants.Int(), body)
		}
	})

	t.Run("oversized body is rejected by the body limit", func(t *testing.T) {
		svc := &fakeService{}
		e := echo.New()
		e.POST("/api/submit-rsvp", NewRSVPHandler(svc, 0, zerolog.Nop()).Submit, echomw.BodyLimit("1K"))

		big := `{"wardName":"` + strings.Repeat("x", 2048) + `"}`
		rec, _ := serve(e, http.MethodPost, "/api/submit-rsvp", big, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, svc.got)
	})

	t.Run("store failure is a generic server error", func(t *testing.T) {
		svc := &fakeService{err: errors.New("sheets: quota exceeded for project 1234")}
		e := echo.New()
		e.POST("/api/submit-rsvp", NewRSVPHandler(svc, 0, zerolog.Nop()).Submit)

		rec, out := serve(e, http.MethodPost, "/api/submit-rsvp", body, nil)
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to submit RSVP", out["message"])
		assert.NotContains(t, out["error"], "quota")
		assert.NotContains(t, out, "sheet")
	})
}

func TestRSVPHandler_Timeout(t *testing.T) {
	for name, tc := range map[string]struct {
		configured, want time.Duration
	}{
		"configured": {configured: 2 * time.Second, want: 2 * time.Second},
		"default":    {configured: 0, want: DefaultSubmitTimeout},
	} {
		t.Run(name, func(t *testing.T) {
			svc := &fakeService{}
			e := echo.New()
			e.POST("/api/submit-rsvp", NewRSVPHandler(svc, tc.configured, zerolog.Nop()).Submit)

			start := time.Now()
			rec, _ := serve(e, http.MethodPost, "/api/submit-rsvp", `{"wardName":"Sita"}`, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.False(t, svc.deadline.IsZero())
			assert.WithinDuration(t, start.Add(tc.want), svc.deadline, time.Second)
		})
	}
}

func TestSlotsHandler_List(t *testing.T) {
	svc := &fakeService{slots: []allocator.PageSummary{
		{Sheet: 1, Name: "Sheet1", CapacityUsed: 250, Threshold: 250, CurrentSlot: true},
		{Sheet: 2, Name: "Sheet2", CapacityUsed: 4, Threshold: 250, Remaining: 246, Active: true},
	}}
	e := echo.New()
	e.GET("/api/slots", NewSlotsHandler(svc, 250).List)

	rec, out := serve(e, http.MethodGet, "/api/slots", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 250.0, out["threshold"])
	assert.Equal(t, false, out["currentSlot"])
	assert.Len(t, out["pages"], 2)
}

func TestAdminHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := AdminConfig{PasswordHash: string(hash), JWTSecret: "s3cret", AccessTTLMin: 5}
	svc := &fakeService{rows: map[ledger.PageIndex][]ledger.Row{
		1: {{"ts", "Sita", "B", "2"}},
		2: nil,
	}}
	h := NewAdminHandler(cfg, svc, zerolog.Nop())

	e := echo.New()
	e.POST("/api/admin/login", h.Login)
	e.GET("/api/admin/pages/:n/rows", h.PageRows)

	t.Run("login", func(t *testing.T) {
		rec, out := serve(e, http.MethodPost, "/api/admin/login", `{"password":"letmein"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, out["access_token"])

		rec, _ = serve(e, http.MethodPost, "/api/admin/login", `{"password":"nope"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec, _ = serve(e, http.MethodPost, "/api/admin/login", `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("page rows", func(t *testing.T) {
		rec, out := serve(e, http.MethodGet, "/api/admin/pages/1/rows", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Sheet1", out["name"])
		assert.Len(t, out["header"], ledger.NumColumns)
		assert.Len(t, out["rows"], 1)

		rec, out = serve(e, http.MethodGet, "/api/admin/pages/2/rows", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{}, out["rows"])

		for path, code := range map[string]int{
			"/api/admin/pages/0/rows":   http.StatusBadRequest,
			"/api/admin/pages/abc/rows": http.StatusBadRequest,
			"/api/admin/pages/7/rows":   http.StatusNotFound,
		} {
			rec, _ := serve(e, http.MethodGet, path, "", nil)
			assert.Equal(t, code, rec.Code, path)
		}
	})
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	rec, out := serve(e, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}
