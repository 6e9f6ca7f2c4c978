package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mikem1017/macallan-rf-perf-tool/engine"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/logging"
	"github.com/mikem1017/macallan-rf-perf-tool/model"
	"github.com/mikem1017/macallan-rf-perf-tool/store"
)

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listDuts(c echo.Context) error {
	configs, err := s.store.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	return c.JSON(http.StatusOK, configs)
}

func (s *Server) getDut(c echo.Context) error {
	cfg, err := s.store.Get(c.Request().Context(), c.Param("name"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody(err))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	return c.JSON(http.StatusOK, cfg)
}

func (s *Server) saveDut(c echo.Context) error {
	var cfg model.DutConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	if err := s.store.Save(c.Request().Context(), &cfg); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	s.refreshConfigGauge(c)
	return c.JSON(http.StatusOK, map[string]string{"name": cfg.Name})
}

func (s *Server) deleteDut(c echo.Context) error {
	err := s.store.Delete(c.Request().Context(), c.Param("name"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody(err))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}
	s.refreshConfigGauge(c)
	return c.NoContent(http.StatusNoContent)
}

// evaluateRequest is the POST /api/v1/evaluate payload. File content is
// base64 in JSON per Go's []byte encoding.
type evaluateRequest struct {
	DUT   string `json:"DUT"`
	Stage string `json:"Stage"`
	Files []struct {
		Name    string `json:"Name"`
		Kind    string `json:"Kind"`
		Content []byte `json:"Content"`
	} `json:"Files"`
}

func (s *Server) evaluate(c echo.Context) error {
	var req evaluateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	stage, err := model.ParseStage(req.Stage)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}

	dut, err := s.store.Get(c.Request().Context(), req.DUT)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorBody(err))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err))
	}

	runReq := engine.RunRequest{DUT: dut, Stage: stage}
	for _, f := range req.Files {
		kind, err := model.ParseTestKind(f.Kind)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody(err))
		}
		in := engine.FileInput{Name: f.Name, Content: f.Content}
		switch kind {
		case model.TestSParameters:
			runReq.SParamFiles = append(runReq.SParamFiles, in)
		case model.TestPowerLinearity:
			runReq.PowerFiles = append(runReq.PowerFiles, in)
		case model.TestNoiseFigure:
			runReq.NoiseFiles = append(runReq.NoiseFiles, in)
		}
	}

	result, err := s.runner.Run(c.Request().Context(), runReq)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err))
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) refreshConfigGauge(c echo.Context) {
	if s.collector == nil {
		return
	}
	n, err := s.store.Count(c.Request().Context())
	if err != nil {
		s.log.Warn(c.Request().Context(), "count dut configs failed",
			logging.String("error", err.Error()))
		return
	}
	s.collector.SetDutConfigCount(n)
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}
