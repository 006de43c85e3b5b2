package api

import (
	"net/http"
)

// envResponse is the body of a valid GET /api/env.
type envResponse struct {
	Success bool    `json:"success"`
	Temp    float64 `json:"temp"`
	Humid   float64 `json:"humid"`
}

// handleGetEnv samples the temperature/humidity sensor. A sensor that does
// not answer is reported as 200 {"success":false}.
func (s *Server) handleGetEnv(w http.ResponseWriter, r *http.Request) {
	sample, err := s.sw.GetEnv(r.Context())
	if err != nil {
		s.logger.Error("reading environment failed", "error", err, "request_id", requestID(r.Context()))
		writeInternalError(w)
		return
	}

	if !sample.Valid {
		writeFailure(w, http.StatusOK)
		return
	}

	s.recordEnv(sample.TemperatureC, sample.HumidityPercent)

	writeJSON(w, http.StatusOK, envResponse{
		Success: true,
		Temp:    sample.TemperatureC,
		Humid:   sample.HumidityPercent,
	})
}
