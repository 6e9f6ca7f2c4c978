package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikem1017/macallan-rf-perf-tool/analysis"
	"github.com/mikem1017/macallan-rf-perf-tool/engine"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/logging"
	"github.com/mikem1017/macallan-rf-perf-tool/model"
	"github.com/mikem1017/macallan-rf-perf-tool/store"
)

const sparamFixture = `# GHZ S MA R 50
2.0  0.20 -170  10.0 45  0.010 20  0.20 -10
2.1  0.21 -160  10.2 40  0.012 25  0.21 -20
2.2  0.19 -150   9.9 35  0.011 30  0.19 -30
`

func apiDut() *model.DutConfig {
	return &model.DutConfig{
		Name:         "lna-4g",
		PartNumber:   "LNA-0042",
		Operational:  model.FrequencyRange{MinGHz: 2.0, MaxGHz: 2.2},
		Wideband:     model.FrequencyRange{MinGHz: 0.5, MaxGHz: 6.0},
		NumPorts:     2,
		InputPorts:   []int{1},
		OutputPorts:  []int{2},
		EnabledTests: []model.TestKind{model.TestSParameters},
		Requirements: map[model.TestStage]model.RequirementSet{
			model.StageBoardBringup: {
				SParams: &model.SParamRequirements{GainMinDB: 15, GainMaxDB: 25, FlatnessMaxDB: 3, VSWRMax: 2},
			},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	runner := engine.NewRunner(analysis.New(analysis.DefaultConfig()), logging.Noop(), nil)
	srv := New(Config{Addr: ":0"}, st, runner, nil, logging.Noop())
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echoContentType, echoJSONMime)
	}
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	return rec
}

const (
	echoContentType = "Content-Type"
	echoJSONMime    = "application/json"
)

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestDutCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPut, "/api/v1/duts", apiDut())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/duts/lna-4g", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.DutConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "lna-4g", got.Name)
	assert.Equal(t, 2, got.NumPorts)
	require.Contains(t, got.Requirements, model.StageBoardBringup)
	assert.Equal(t, 15.0, got.Requirements[model.StageBoardBringup].SParams.GainMinDB)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/duts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.DutConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/duts/lna-4g", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/duts/lna-4g", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveDutRejectsInvalid(t *testing.T) {
	srv, _ := newTestServer(t)
	bad := apiDut()
	bad.NumPorts = 9
	rec := doJSON(t, srv, http.MethodPut, "/api/v1/duts", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestDeleteMissingDut(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodDelete, "/api/v1/duts/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type evaluateFile struct {
	Name    string `json:"Name"`
	Kind    string `json:"Kind"`
	Content []byte `json:"Content"`
}

type evaluateBody struct {
	DUT   string         `json:"DUT"`
	Stage string         `json:"Stage"`
	Files []evaluateFile `json:"Files"`
}

func TestEvaluateEndpoint(t *testing.T) {
	srv, st := newTestServer(t)
	require.NoError(t, st.Save(context.Background(), apiDut()))

	body := evaluateBody{
		DUT:   "lna-4g",
		Stage: "board_bringup",
		Files: []evaluateFile{{
			Name:    "20240105_L001234_PRI_SN0042.s2p",
			Kind:    "s_parameters",
			Content: []byte(sparamFixture),
		}},
	}
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result engine.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.StatusPass, result.Overall)
	assert.Equal(t, "lna-4g", result.DUT)
	assert.NotEmpty(t, result.ID)
	require.Len(t, result.Kinds, 1)
	assert.Equal(t, model.TestSParameters, result.Kinds[0].Kind)
	assert.NotEmpty(t, result.Kinds[0].Verdicts)
}

func TestEvaluateUnknownDut(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/evaluate", evaluateBody{
		DUT: "ghost", Stage: "sit",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateBadStage(t *testing.T) {
	srv, st := newTestServer(t)
	require.NoError(t, st.Save(context.Background(), apiDut()))
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/evaluate", evaluateBody{
		DUT: "lna-4g", Stage: "flight",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateBadFileKind(t *testing.T) {
	srv, st := newTestServer(t)
	require.NoError(t, st.Save(context.Background(), apiDut()))
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/evaluate", evaluateBody{
		DUT: "lna-4g", Stage: "board_bringup",
		Files: []evaluateFile{{Name: "x.bin", Kind: "telemetry", Content: []byte("x")}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
