package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/Proton-105/course-intake-bot/internal/catalog"
	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/lead"
)

const testSpreadsheetID = "sheet-123"

type fakeSheetsAPI struct {
	mu           sync.Mutex
	metaCalls    int
	valuesRange  string
	appendRange  string
	appendQuery  map[string]string
	appendValues [][]interface{}
	failStatus   int
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failStatus)
		_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"backend error"}}`, f.failStatus)
		return
	}

	prefix := "/v4/spreadsheets/" + testSpreadsheetID
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.appendRange = strings.TrimSuffix(strings.TrimPrefix(path, prefix+"/values/"), ":append")
		f.appendQuery = map[string]string{
			"valueInputOption": r.URL.Query().Get("valueInputOption"),
			"insertDataOption": r.URL.Query().Get("insertDataOption"),
		}
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.appendValues = body.Values
		_, _ = io.WriteString(w, `{"spreadsheetId":"`+testSpreadsheetID+`","updates":{"updatedRows":1}}`)
	case r.Method == http.MethodGet && strings.HasPrefix(path, prefix+"/values/"):
		f.valuesRange = strings.TrimPrefix(path, prefix+"/values/")
		_, _ = io.WriteString(w, `{"range":"Courses!A1:D4","majorDimension":"ROWS","values":[
			["Направление","Тип курса","Название курса","Ссылка на курс"],
			[" Data ","Бесплатные","Intro","http://a"],
			["Data","Платные","ML",  "http://ml"],
			[]
		]}`)
	case r.Method == http.MethodGet && path == prefix:
		f.metaCalls++
		_, _ = io.WriteString(w, `{"spreadsheetId":"`+testSpreadsheetID+`","sheets":[
			{"properties":{"sheetId":0,"title":"Courses","index":0}},
			{"properties":{"sheetId":7,"title":"Leads","index":1}}
		]}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	if cfg.URL == "" {
		cfg.URL = "https://docs.google.com/spreadsheets/d/" + testSpreadsheetID + "/edit#gid=0"
	}
	if cfg.LeadsSheetIndex == 0 && cfg.LeadsSheet == "" {
		cfg.LeadsSheetIndex = 1
	}

	client, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return client
}

func TestSpreadsheetID(t *testing.T) {
	testCases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0", want: "1AbC-d_9"},
		{input: "  1AbC-d_9 ", want: "1AbC-d_9"},
		{input: "https://example.com/other/path", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := SpreadsheetID(tc.input)
		if tc.wantErr {
			assert.Error(t, err, tc.input)
			continue
		}
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.want, got)
	}
}

func TestClient_RowsBuildsCatalog(t *testing.T) {
	api := &fakeSheetsAPI{}
	client := newTestClient(t, api, Config{})

	cat, err := catalog.Load(context.Background(), client, catalog.DefaultLabels(), nil)
	require.NoError(t, err)

	assert.Equal(t, "'Courses'", api.valuesRange)
	assert.Equal(t, []string{"Data"}, cat.Directions())
	assert.Equal(t, []catalog.Course{{Name: "Intro", Link: "http://a"}}, cat.Courses("Data", catalog.CourseTypeFree))
	assert.Equal(t, []catalog.Course{{Name: "ML", Link: "http://ml"}}, cat.Courses("Data", catalog.CourseTypePaid))
}

func TestClient_AppendUsesSecondWorksheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	client := newTestClient(t, api, Config{})

	err := client.Append(context.Background(), lead.Lead{FIO: "Jane Doe", Phone: "555-0100", Direction: "Data"})
	require.NoError(t, err)
	require.NoError(t, client.Append(context.Background(), lead.Lead{FIO: "John", Phone: "1", Direction: "Data"}))

	assert.Equal(t, "'Leads'", api.appendRange)
	assert.Equal(t, "RAW", api.appendQuery["valueInputOption"])
	assert.Equal(t, "INSERT_ROWS", api.appendQuery["insertDataOption"])
	assert.Equal(t, [][]interface{}{{"John", "1", "Data"}}, api.appendValues)
	assert.Equal(t, 1, api.metaCalls, "worksheet titles are cached")
}

func TestClient_ConfiguredTitleSkipsLookup(t *testing.T) {
	api := &fakeSheetsAPI{}
	client := newTestClient(t, api, Config{LeadsSheet: "Заявки"})

	require.NoError(t, client.Append(context.Background(), lead.Lead{FIO: "Jane", Phone: "1", Direction: "Data"}))

	assert.Equal(t, "'Заявки'", api.appendRange)
	assert.Zero(t, api.metaCalls)
}

func TestClient_WorksheetIndexOutOfRange(t *testing.T) {
	api := &fakeSheetsAPI{}
	client := newTestClient(t, api, Config{LeadsSheetIndex: 5})

	err := client.Append(context.Background(), lead.Lead{FIO: "Jane", Phone: "1", Direction: "Data"})
	require.Error(t, err)
	assert.False(t, apperrors.IsRetryable(err))
}

func TestClient_ServerErrorIsRetryable(t *testing.T) {
	api := &fakeSheetsAPI{failStatus: http.StatusServiceUnavailable}
	client := newTestClient(t, api, Config{LeadsSheet: "Leads"})

	err := client.Append(context.Background(), lead.Lead{FIO: "Jane", Phone: "1", Direction: "Data"})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))

	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestClient_HealthCheck(t *testing.T) {
	client := newTestClient(t, &fakeSheetsAPI{}, Config{})
	assert.NoError(t, client.HealthCheck(context.Background()))
	assert.Equal(t, "sheets", client.Name())
}
