package handlers

import (
	"net/http"

	"github.com/barberbook/platform/services/booking-service/internal/storage"
)

// CatalogHandler serves the public menu: services, addons and barbers, the
// data a booking form needs before any slot search.
type CatalogHandler struct {
	catalog  *storage.CatalogRepository
	schedule *storage.ScheduleRepository
}

func NewCatalogHandler(catalog *storage.CatalogRepository, schedule *storage.ScheduleRepository) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, schedule: schedule}
}

func (h *CatalogHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	services, err := h.catalog.ListServices(r.Context())
	if err != nil {
		http.Error(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(services))
	for _, s := range services {
		items = append(items, map[string]any{
			"service_id":       s.ID,
			"name":             s.Name,
			"duration_minutes": s.DurationMinutes,
			"regular_cents":    s.RegularCents,
			"vip_cents":        s.VIPCents,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) Addons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	addons, err := h.catalog.ListAddons(r.Context())
	if err != nil {
		http.Error(w, "failed to list addons", http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(addons))
	for _, a := range addons {
		items = append(items, map[string]any{
			"addon_id":      a.ID,
			"name":          a.Name,
			"regular_cents": a.RegularCents,
			"vip_cents":     a.VIPCents,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) Barbers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	barbers, err := h.schedule.ListBarbers(r.Context())
	if err != nil {
		http.Error(w, "failed to list barbers", http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(barbers))
	for _, b := range barbers {
		if !b.Active {
			continue
		}
		items = append(items, map[string]any{
			"barber_id": b.ID,
			"name":      b.Name,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
