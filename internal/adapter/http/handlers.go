package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/cultivation"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type cropSummary struct {
	Crop     string   `json:"crop"`
	Seasons  []string `json:"seasons"`
	Diseases []string `json:"diseases"`
}

type startRequest struct {
	CropName  string `json:"crop_name"`
	StartDate string `json:"start_date,omitempty"`
}

type updateRequest struct {
	Action json.RawMessage `json:"action"`
}

type updateResponse struct {
	State        cultivation.State     `json:"state"`
	CurrentPhase domain.LifecyclePhase `json:"current_phase"`
}

type detectRequest struct {
	DiseaseName string  `json:"disease_name"`
	Confidence  float64 `json:"confidence"`
	ImageRef    string  `json:"image_ref,omitempty"`
}

func (s *Server) handleCrops(w http.ResponseWriter, _ *http.Request) {
	names := s.deps.Calendar.Crops()
	out := make([]cropSummary, 0, len(names))
	for _, name := range names {
		cc, _ := s.deps.Calendar.Lookup(name)
		seasons := make([]string, 0, len(cc.Seasons))
		for _, season := range cc.Seasons {
			seasons = append(seasons, season.Name)
		}
		diseases, err := s.deps.Risks.Diseases(name)
		if err != nil {
			diseases = []string{}
		}
		out = append(out, cropSummary{Crop: name, Seasons: seasons, Diseases: diseases})
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	res, err := s.deps.Calendar.Resolve(r.PathValue("crop"), date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleRisks(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	obs, err := s.currentWeather(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	risk, err := s.deps.Risks.Assess(r.PathValue("crop"), obs, date.Month())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, risk)
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	obs, err := s.currentWeather(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bundle, err := s.deps.Advisor.ComposeAt(r.PathValue("crop"), obs, date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	obs, err := s.currentWeather(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, obs)
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Alerts == nil {
		sharedobs.WriteJSON(w, http.StatusNotFound, errorResponse{Error: "alert sweep is not configured"})
		return
	}
	sum, ok := s.deps.Alerts.Latest()
	if !ok {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no risk sweep has completed yet"})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, sum)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Cultivation.State(r.Context(), sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if req.CropName == "" {
		s.badRequest(w, errors.New("crop_name is required"))
		return
	}
	var start time.Time
	if req.StartDate != "" {
		d, err := time.Parse(time.DateOnly, req.StartDate)
		if err != nil {
			s.badRequest(w, fmt.Errorf("invalid start_date %q: want YYYY-MM-DD", req.StartDate))
			return
		}
		start = d
	}

	st, err := s.deps.Cultivation.Start(r.Context(), sessionID(r), req.CropName, start)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	action, err := parseAction(req.Action)
	if err != nil {
		s.badRequest(w, err)
		return
	}

	st, phase, err := s.deps.Cultivation.Advance(r.Context(), sessionID(r), action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, updateResponse{State: st, CurrentPhase: phase})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Cultivation.Dashboard(r.Context(), sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, d)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.badRequest(w, err)
		return
	}
	if req.DiseaseName == "" {
		s.badRequest(w, errors.New("disease_name is required"))
		return
	}

	res, err := s.deps.Cultivation.Detect(r.Context(), sessionID(r), req.DiseaseName, req.Confidence, req.ImageRef)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	cc, ok := s.deps.Calendar.Lookup(r.PathValue("crop"))
	if !ok {
		s.writeError(w, r, &domain.UnknownCropError{Crop: r.PathValue("crop")})
		return
	}
	k, err := s.deps.Knowledge.Get(r.Context(), cc.Crop)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, k)
}

func (s *Server) currentWeather(r *http.Request) (domain.WeatherObservation, error) {
	region := r.URL.Query().Get("region")
	if region == "" {
		region = s.deps.Region
	}
	obs, err := s.deps.Weather.Current(r.Context(), region)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("fetch weather: %w", err)
	}
	return obs, nil
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// writeError maps domain failures to HTTP statuses. Unexpected errors are
// logged and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		sharedobs.WriteJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var transition *domain.InvalidPhaseTransitionError
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrKnowledgeMissing):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyAtFinalPhase),
		errors.Is(err, domain.ErrNoActiveCultivation),
		errors.Is(err, domain.ErrStaleState):
		return http.StatusConflict
	case errors.As(err, &transition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sessionID(r *http.Request) string {
	return r.Header.Get(SessionHeader)
}

// dateParam reads ?date=YYYY-MM-DD, defaulting to today.
func dateParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return domain.Now(), nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return d, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseAction accepts "next", "prev" or a phase index given as a JSON number
// or numeric string.
func parseAction(raw json.RawMessage) (cultivation.Action, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return cultivation.Action{}, errors.New("action is required")
	}
	var idx int
	if err := json.Unmarshal(raw, &idx); err == nil {
		return cultivation.JumpTo(idx), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return cultivation.Action{}, errors.New(`action must be "next", "prev" or a phase index`)
	}
	return cultivation.ParseAction(s)
}
