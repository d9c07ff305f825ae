package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// activeChart returns the view of the chart last opened, if any.
func (s *Server) activeChart() (*ChartView, bool) {
	cv, ok := s.ctrl.ActiveChart().(*ChartView)
	return cv, ok && cv != nil
}

// handleShowChart opens the chart preview of a table.
func (s *Server) handleShowChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.ShowChart(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	cv, ok := s.activeChart()
	if !ok {
		writeJSON(w, http.StatusOK, ChartState{TableID: id, Shown: true})
		return
	}
	writeJSON(w, http.StatusOK, cv.State())
}

// handleCloseChart hides the visible chart preview.
func (s *Server) handleCloseChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctrl.CloseChart()
	w.WriteHeader(http.StatusNoContent)
}

// handleActiveChart returns the chart preview last opened.
func (s *Server) handleActiveChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cv, ok := s.activeChart()
	if !ok {
		writeError(w, http.StatusNotFound, "no chart open")
		return
	}
	writeJSON(w, http.StatusOK, cv.State())
}

// handleChartPause presses the pause button of the open chart.
func (s *Server) handleChartPause(w http.ResponseWriter, r *http.Request) {
	s.chartButton(w, (*ChartView).TogglePause)
}

// handleChartStop presses the stop button of the open chart.
func (s *Server) handleChartStop(w http.ResponseWriter, r *http.Request) {
	s.chartButton(w, (*ChartView).Stop)
}

func (s *Server) chartButton(w http.ResponseWriter, press func(*ChartView)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cv, ok := s.activeChart()
	if !ok || !cv.IsShown() {
		writeError(w, http.StatusConflict, "no chart shown")
		return
	}
	press(cv)
	writeJSON(w, http.StatusOK, s.host.State())
}
