package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/timeutil"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type clientRequest struct {
	ID       string `json:"id" validate:"omitempty,uuid"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"max=32"`
	Address  string `json:"address" validate:"max=500"`
}

func (h *Handlers) CreateClient(w http.ResponseWriter, r *http.Request) {
	var body clientRequest
	if !h.decode(w, r, &body) {
		return
	}
	c, err := h.Service.CreateClient(r.Context(), token(r), models.Client{
		ID:       body.ID,
		FullName: body.FullName,
		Phone:    body.Phone,
		Address:  body.Address,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, c)
}

type debtRequest struct {
	ClientID         string          `json:"client_id" validate:"required"`
	Number           string          `json:"number" validate:"required,max=64"`
	Principal        decimal.Decimal `json:"principal"`
	Surcharge        decimal.Decimal `json:"surcharge"`
	Cadence          string          `json:"cadence" validate:"required,oneof=daily weekly biweekly monthly"`
	Every            int             `json:"every" validate:"gte=0,lte=366"`
	InstallmentCount int             `json:"installment_count" validate:"required,gte=1,lte=1000"`
	StartOn          string          `json:"start_on" validate:"required"`
}

func (h *Handlers) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var body debtRequest
	if !h.decode(w, r, &body) {
		return
	}
	start, err := timeutil.ParseDate(body.StartOn)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: start_on: %v", ports.ErrInvalidDate, err))
		return
	}
	cadence, err := models.ParseCadence(body.Cadence)
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", ports.ErrInvalidInput, err))
		return
	}
	debt, items, err := h.Service.CreateDebt(r.Context(), token(r), models.Debt{
		ClientID:         body.ClientID,
		Number:           body.Number,
		Principal:        body.Principal,
		Surcharge:        body.Surcharge,
		Cadence:          cadence,
		Every:            body.Every,
		InstallmentCount: body.InstallmentCount,
		StartOn:          start,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, map[string]any{"debt": debt, "installments": items})
}

func (h *Handlers) CloseDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.CloseDebt(r.Context(), token(r), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type routeRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Zone string `json:"zone" validate:"max=255"`
}

func (h *Handlers) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var body routeRequest
	if !h.decode(w, r, &body) {
		return
	}
	route, err := h.Service.CreateRoute(r.Context(), token(r), models.Route{Name: body.Name, Zone: body.Zone})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, route)
}

type stopsRequest struct {
	Stops []struct {
		ClientID string `json:"client_id" validate:"required"`
		Position *int   `json:"position" validate:"omitempty,gte=0"`
	} `json:"stops" validate:"max=1000,dive"`
}

// ReplaceRouteStops serves PUT /admin/routes/{id}/stops. Existing
// assignments keep the stops they were created with.
func (h *Handlers) ReplaceRouteStops(w http.ResponseWriter, r *http.Request) {
	var body stopsRequest
	if !h.decode(w, r, &body) {
		return
	}
	stops := make([]models.RouteStop, len(body.Stops))
	for i, s := range body.Stops {
		stops[i] = models.RouteStop{ClientID: s.ClientID, Position: s.Position}
	}
	if err := h.Service.ReplaceRouteStops(r.Context(), token(r), mux.Vars(r)["id"], stops); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignmentRequest struct {
	RouteID     string `json:"route_id" validate:"required"`
	CollectorID int64  `json:"collector_id" validate:"required,gt=0"`
	Date        string `json:"date" validate:"required_without=Weekdays"`
	Weekdays    []int  `json:"weekdays" validate:"omitempty,max=7,dive,min=0,max=6"`
	ValidFrom   string `json:"valid_from" validate:"required_with=Weekdays"`
	ValidUntil  string `json:"valid_until" validate:"required_with=Weekdays"`
	Seq         int    `json:"seq" validate:"gte=0"`
}

func (b assignmentRequest) toModel() (models.RouteAssignment, error) {
	a := models.RouteAssignment{RouteID: b.RouteID, CollectorID: b.CollectorID, Seq: b.Seq}
	if b.Date != "" {
		d, err := timeutil.ParseDate(b.Date)
		if err != nil {
			return a, fmt.Errorf("%w: date: %v", ports.ErrInvalidDate, err)
		}
		a.Date = &d
		return a, nil
	}
	from, err := timeutil.ParseDate(b.ValidFrom)
	if err != nil {
		return a, fmt.Errorf("%w: valid_from: %v", ports.ErrInvalidDate, err)
	}
	until, err := timeutil.ParseDate(b.ValidUntil)
	if err != nil {
		return a, fmt.Errorf("%w: valid_until: %v", ports.ErrInvalidDate, err)
	}
	days := make([]time.Weekday, len(b.Weekdays))
	for i, wd := range b.Weekdays {
		days[i] = time.Weekday(wd)
	}
	a.Recurrence = &models.Recurrence{Weekdays: days, From: from, Until: until}
	return a, nil
}

func (h *Handlers) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var body assignmentRequest
	if !h.decode(w, r, &body) {
		return
	}
	a, err := body.toModel()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.Service.CreateAssignment(r.Context(), token(r), a)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.JSON(w, http.StatusCreated, created)
}

func (h *Handlers) CancelAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.CancelAssignment(r.Context(), token(r), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Denials serves GET /admin/users/{id}/denials?limit=: the latest gate
// denials recorded for a user.
func (h *Handlers) Denials(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Service.AuthorizeAdmin(r.Context(), token(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	if h.DenialLog == nil {
		h.fail(w, r, fmt.Errorf("%w: denial log not configured", ports.ErrNotFound))
		return
	}
	userID, err := pathInt64(r, "id")
	if err != nil {
		h.JSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "invalid_input"})
		return
	}
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if limit > 500 {
		limit = 500
	}
	list, err := h.DenialLog.Recent(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, r, ports.StoreError("recent denials", err))
		return
	}
	h.JSON(w, http.StatusOK, map[string]any{"items": list, "count": len(list)})
}
