package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lookupdesk/logger"
	"lookupdesk/models"
)

func TestMain(m *testing.M) {
	logger.Discard()
	goleak.VerifyTestMain(m)
}

// fakeServer answers like the lookup API and counts requests.
type fakeServer struct {
	*httptest.Server
	hits      atomic.Int32
	lastAuth  atomic.Value
	lastQuery atomic.Value
}

func newFakeServer(t *testing.T, handler http.HandlerFunc) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		fs.lastAuth.Store(r.Header.Get("Authorization"))
		fs.lastQuery.Store(r.URL.RawQuery)
		handler(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func reply(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func loggedIn(role string) *Session {
	s := NewSession()
	s.Login("admin", "tok", role)
	return s
}

func TestAuthenticateAdmin(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "pw" {
			reply(w, http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`)
			return
		}
		role := "ADMIN"
		if r.PostForm.Get("username") == "bob" {
			role = "USER"
		}
		reply(w, http.StatusOK, `{"access_token":"tok-`+r.PostForm.Get("username")+`","token_type":"bearer","role":"`+role+`"}`)
	})
	session := NewSession()
	c := NewClient(srv.URL, session)
	ctx := context.Background()

	_, err := c.Authenticate(ctx, "ana", "bad")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.False(t, session.Authenticated())

	_, err = c.Authenticate(ctx, "bob", "pw")
	require.ErrorIs(t, err, ErrForbidden)
	require.False(t, session.Authenticated(), "non-admin login must not populate the session")

	login, err := c.Authenticate(ctx, "ana", "pw")
	require.NoError(t, err)
	require.Equal(t, "tok-ana", login.Token)
	require.Equal(t, "tok-ana", session.Token())
	require.Equal(t, models.RoleAdmin, session.Role())
	require.Equal(t, "ana", session.Username())
}

func TestRegisterConflict(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), `"ana"`) {
			reply(w, http.StatusConflict, `{"detail":"Username already registered."}`)
			return
		}
		if strings.Contains(string(body), `""`) {
			reply(w, http.StatusBadRequest, `{"detail":"Username and password are required."}`)
			return
		}
		reply(w, http.StatusCreated, `{"message":"ok"}`)
	})
	c := NewClient(srv.URL, nil)

	require.NoError(t, c.Register(context.Background(), "new", "pw"))
	err := c.Register(context.Background(), "ana", "pw")
	require.ErrorIs(t, err, ErrConflict)
	require.Equal(t, "Username already registered.", UserMessage(err))
	require.ErrorIs(t, c.Register(context.Background(), "", "pw"), ErrConflict)
}

func TestAdminCallsNeedSession(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `{}`)
	})
	c := NewClient(srv.URL, nil)
	ctx := context.Background()

	_, err := c.GetConfig(ctx)
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.UploadDataset(ctx, "a.xlsx", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.GetUserDetail(ctx, "1")
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.SuggestIdentifiers(ctx, "1234")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, srv.hits.Load())
}

func TestGetConfig(t *testing.T) {
	body := `{}`
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, body)
	})
	c := NewClient(srv.URL, loggedIn(models.RoleAdmin))

	cfg, err := c.GetConfig(context.Background())
	require.NoError(t, err)
	require.Nil(t, cfg, "empty object means not configured yet")
	require.Equal(t, "Bearer tok", srv.lastAuth.Load())

	body = `{"dni_column":"DNI","date_column":"FECHA","visible_columns":["NOMBRE","FECHA"]}`
	cfg, err = c.GetConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, &models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA", VisibleColumns: []string{"NOMBRE", "FECHA"}}, cfg)
}

func TestSaveConfigValidatesLocally(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"selected_columns":["NOMBRE"]`) {
			reply(w, http.StatusBadRequest, `{"detail":"bad"}`)
			return
		}
		if strings.Contains(string(body), `"dni_column":"GONE"`) {
			reply(w, http.StatusUnprocessableEntity, `{"detail":"dni_column: column \"GONE\" does not exist"}`)
			return
		}
		reply(w, http.StatusOK, `{"message":"Configuration saved"}`)
	})
	c := NewClient(srv.URL, loggedIn(models.RoleAdmin))
	ctx := context.Background()

	err := c.SaveConfig(ctx, models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA"})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, models.ErrInvalidConfig)
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	require.Equal(t, "visible_columns", ve.Field)
	require.Zero(t, srv.hits.Load(), "local validation must not reach the network")

	require.NoError(t, c.SaveConfig(ctx, models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA", VisibleColumns: []string{"NOMBRE"}}))

	err = c.SaveConfig(ctx, models.Configuration{DNIColumn: "GONE", DateColumn: "FECHA", VisibleColumns: []string{"NOMBRE"}})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, UserMessage(err), "GONE")
}

func TestUploadDataset(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		if !strings.HasSuffix(header.Filename, ".xlsx") {
			reply(w, http.StatusBadRequest, `{"detail":"Invalid file format."}`)
			return
		}
		reply(w, http.StatusOK, `{"message":"File uploaded","columns":["DNI","FECHA"],"current_config":{"dni_column":"DNI","date_column":"FECHA","visible_columns":[]}}`)
	})
	c := NewClient(srv.URL, loggedIn(models.RoleAdmin))

	res, err := c.UploadDataset(context.Background(), "/tmp/people.xlsx", strings.NewReader("zip"))
	require.NoError(t, err)
	require.Equal(t, []string{"DNI", "FECHA"}, res.Columns)
	require.Equal(t, "DNI", res.CurrentConfig.DNIColumn)

	_, err = c.UploadDataset(context.Background(), "people.csv", strings.NewReader("a,b"))
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestSearchUserErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusServiceUnavailable, `{"detail":"The system is under maintenance (database not loaded)."}`, ErrNotConfigured},
		{http.StatusInternalServerError, `{"detail":"Configuration error: key columns are not configured."}`, ErrNotConfigured},
		{http.StatusNotFound, `{"detail":"No records found."}`, ErrNotFound},
		{http.StatusTooManyRequests, `{"detail":"slow down"}`, ErrRateLimited},
		{http.StatusBadRequest, `{"detail":"Both dni and fecha_ingreso are required."}`, ErrRequest},
		{http.StatusInternalServerError, `{"detail":"Failed to run the query"}`, ErrServer},
		{http.StatusBadGateway, `oops`, ErrServer},
	}
	for _, tc := range cases {
		srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
			reply(w, tc.status, tc.body)
		})
		_, err := NewClient(srv.URL, nil).SearchUser(context.Background(), "1", "2024-01-01")
		require.ErrorIs(t, err, tc.want, tc.body)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, tc.status, apiErr.Status)
		require.NotErrorIs(t, err, ErrConnection, "the server answered")
	}

	_, err := NewClient("http://127.0.0.1:1", nil).SearchUser(context.Background(), "1", "2024-01-01")
	require.ErrorIs(t, err, ErrConnection)
}

func TestSearchUserKeepsColumnOrder(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"dni":"00123","fecha_ingreso":"2024-03-15"}`, string(body))
		reply(w, http.StatusOK, `[{"ZETA":"z","ALFA":"0012","FECHA":"15/03/2024"},{"ZETA":"y","ALFA":"-","FECHA":"15/03/2024"}]`)
	})
	rs, err := NewClient(srv.URL, nil).SearchUser(context.Background(), "00123", "2024-03-15")
	require.NoError(t, err)
	require.Equal(t, []string{"ZETA", "ALFA", "FECHA"}, rs.Columns)
	require.Equal(t, 2, rs.Len())
	require.Equal(t, "0012", rs.Rows[0].Get("ALFA").String(), "leading zeros survive")
	require.Equal(t, models.KindDate, rs.Rows[0].Get("FECHA").Kind)
}

func TestSuggestIdentifiers(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, `["12345","91234"]`)
	})
	c := NewClient(srv.URL, loggedIn(models.RoleAdmin))
	ctx := context.Background()

	got, err := c.SuggestIdentifiers(ctx, "12")
	require.NoError(t, err)
	require.Empty(t, got)
	got, err = c.SuggestIdentifiers(ctx, "ñá")
	require.NoError(t, err)
	require.Empty(t, got)
	require.Zero(t, srv.hits.Load())

	got, err = c.SuggestIdentifiers(ctx, "123")
	require.NoError(t, err)
	require.Equal(t, []string{"12345", "91234"}, got)
	require.Equal(t, "dni_fragment=123", srv.lastQuery.Load())

	c = NewClient(srv.URL, loggedIn(models.RoleAdmin), WithMinSuggestionLength(1))
	_, err = c.SuggestIdentifiers(ctx, "1")
	require.NoError(t, err)
	require.EqualValues(t, 2, srv.hits.Load())
}

func TestGetUserDetail(t *testing.T) {
	srv := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("dni") {
		case "1":
			reply(w, http.StatusOK, `{"DNI":"1","FECHA":"2024-03-15","NOMBRE":"Ana"}`)
		case "empty":
			reply(w, http.StatusOK, `{}`)
		default:
			reply(w, http.StatusNotFound, `{"detail":"User not found."}`)
		}
	})
	c := NewClient(srv.URL, loggedIn(models.RoleAdmin))
	ctx := context.Background()

	rec, err := c.GetUserDetail(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, []string{"DNI", "FECHA", "NOMBRE"}, rec.Keys())

	rec, err = c.GetUserDetail(ctx, "empty")
	require.NoError(t, err)
	require.Zero(t, rec.Len())

	_, err = c.GetUserDetail(ctx, "2")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "User not found.", UserMessage(err))
}

func TestUserMessage(t *testing.T) {
	require.Empty(t, UserMessage(nil))
	require.Equal(t, MaintenanceMessage, UserMessage(classify(endpointSearch, 503, "db")))
	require.Contains(t, UserMessage(classify(endpointSearch, 429, "")), "wait")
	require.Contains(t, UserMessage(connectionError(errors.New("refused"))), "reach the server")
	require.Equal(t, "Both dni and fecha_ingreso are required.",
		UserMessage(classify(endpointSearch, 400, "Both dni and fecha_ingreso are required.")))
	require.Equal(t, "Server error: Failed to run the query", UserMessage(classify(endpointSearch, 500, "Failed to run the query")))
	require.NotContains(t, UserMessage(classify(endpointSearch, 502, "")), "reach the server")
	require.Equal(t, "plain", UserMessage(errors.New("plain")))
}

func TestSequencer(t *testing.T) {
	var seq Sequencer
	first := seq.Next()
	second := seq.Next()
	require.False(t, seq.Current(first), "older response is stale")
	require.True(t, seq.Current(second))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq.Next()
		}()
	}
	wg.Wait()
	require.True(t, seq.Current(52))
}

func TestSessionSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := LoadSession(path)
	require.NoError(t, err)
	require.False(t, s.Authenticated())

	s.Login("ana", "tok", models.RoleAdmin)
	require.NoError(t, s.Save(path))

	loaded, err := LoadSession(path)
	require.NoError(t, err)
	require.Equal(t, "tok", loaded.Token())
	require.Equal(t, "ana", loaded.Username())
	require.Equal(t, models.RoleAdmin, loaded.Role())

	loaded.Logout()
	require.NoError(t, loaded.Save(path))
	again, err := LoadSession(path)
	require.NoError(t, err)
	require.False(t, again.Authenticated())
}

func TestConfigDraft(t *testing.T) {
	cols := []string{"DNI", "FECHA INGRESO", "Nombre", "Fecha Cese"}
	d := NewConfigDraft(cols, &models.Configuration{DNIColumn: "DNI", DateColumn: "FECHA INGRESO", VisibleColumns: []string{"Nombre", "OLD"}})
	require.Equal(t, []string{"Nombre"}, d.Configuration().VisibleColumns)

	d.ToggleAll(true, "fecha")
	require.Equal(t, []string{"FECHA INGRESO", "Nombre", "Fecha Cese"}, d.Configuration().VisibleColumns)

	d.ToggleColumn("Nombre")
	d.ToggleColumn("missing")
	require.Equal(t, []string{"FECHA INGRESO", "Fecha Cese"}, d.Configuration().VisibleColumns)

	d.ToggleAll(false, "")
	require.Empty(t, d.Configuration().VisibleColumns)
	d.ToggleAll(true, "")
	require.Len(t, d.Configuration().VisibleColumns, 4)
	require.True(t, d.IsVisible("DNI"))

	empty := NewConfigDraft(cols, nil)
	require.Error(t, empty.Configuration().Validate())
}
