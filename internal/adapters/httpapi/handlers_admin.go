package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sectorwars/aria-core/internal/application/intelligence/commands"
	"github.com/sectorwars/aria-core/internal/application/mediator"
)

// AdminHandler covers population management and the destructive paths:
// seeding, evolving, forgetting a memory, and the full purge.
type AdminHandler struct {
	m mediator.Mediator
}

func NewAdminHandler(m mediator.Mediator) *AdminHandler {
	return &AdminHandler{m: m}
}

type seedRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

type seedResponse struct {
	Created        bool `json:"created"`
	PopulationSize int  `json:"population_size"`
	Generation     int  `json:"generation"`
}

// SeedPopulation handles POST /v1/players/{id}/dna/seed
func (h *AdminHandler) SeedPopulation(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	var req seedRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	resp, err := h.m.Send(r.Context(), &commands.SeedPopulationCommand{
		PlayerID: playerID,
		Seed:     req.Seed,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result := resp.(*commands.SeedPopulationResponse)
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, seedResponse{
		Created:        result.Created,
		PopulationSize: result.PopulationSize,
		Generation:     result.Generation,
	})
}

type evolveResponse struct {
	Evolved        bool    `json:"evolved"`
	Generation     int     `json:"generation"`
	PopulationSize int     `json:"population_size"`
	Survivors      int     `json:"survivors"`
	BestName       string  `json:"best_name,omitempty"`
	BestFitness    float64 `json:"best_fitness"`
}

// Evolve handles POST /v1/players/{id}/evolve
func (h *AdminHandler) Evolve(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	var req seedRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	resp, err := h.m.Send(r.Context(), &commands.EvolvePatternsCommand{
		PlayerID: playerID,
		Seed:     req.Seed,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result := resp.(*commands.EvolvePatternsResponse)
	writeJSON(w, http.StatusOK, evolveResponse{
		Evolved:        result.Evolved,
		Generation:     result.Generation,
		PopulationSize: result.PopulationSize,
		Survivors:      result.Survivors,
		BestName:       result.BestName,
		BestFitness:    result.BestFitness,
	})
}

type forgetResponse struct {
	Deleted bool `json:"deleted"`
}

// ForgetMemory handles DELETE /v1/players/{id}/memories/{recordID}
func (h *AdminHandler) ForgetMemory(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	recordID := chi.URLParam(r, "recordID")
	if recordID == "" {
		writeError(w, http.StatusBadRequest, "record id is required")
		return
	}

	resp, err := h.m.Send(r.Context(), &commands.ForgetMemoryCommand{
		PlayerID: playerID,
		RecordID: recordID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, forgetResponse{
		Deleted: resp.(*commands.ForgetMemoryResponse).Deleted,
	})
}

type purgeResponse struct {
	Purged bool     `json:"purged"`
	Stores []string `json:"stores"`
}

// PurgePlayer handles DELETE /v1/players/{id}
func (h *AdminHandler) PurgePlayer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := playerFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	resp, err := h.m.Send(r.Context(), &commands.PurgePlayerDataCommand{
		PlayerID: playerID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result := resp.(*commands.PurgePlayerDataResponse)
	writeJSON(w, http.StatusOK, purgeResponse{
		Purged: result.Purged,
		Stores: result.Stores,
	})
}
