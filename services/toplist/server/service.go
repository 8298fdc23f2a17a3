package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ugtop-backend/lib/scrapers/ultimateguitar"
	"ugtop-backend/services/toplist"
	"ugtop-backend/services/toplist/scraper"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/toplist/server")

type Service struct {
	store   toplist.Store
	scraper scraper.Scraper
}

func NewService(store toplist.Store, scr scraper.Scraper) Service {
	return Service{store: store, scraper: scr}
}

func (s Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("/data/top.json", s.handleTopData)
	mux.HandleFunc("/data/artists.json", s.handleArtistData)
	mux.HandleFunc("/scrape", s.handleScrape)
}

type topPayload struct {
	Meta toplist.Meta     `json:"meta"`
	Rows []toplist.TabRow `json:"rows"`
}

type artistsPayload struct {
	Meta    toplist.Meta            `json:"meta"`
	Records []ultimateguitar.Record `json:"records"`
}

type scrapeResponse struct {
	Ok       bool         `json:"ok"`
	Meta     toplist.Meta `json:"meta"`
	RowCount int64        `json:"row_count"`
}

type errorResponse struct {
	Ok      bool   `json:"ok"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func sendJson(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal response body", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	// scrapes mutate the data behind these urls at any time
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write(body)
}

func (s Service) handleTopData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "TopData")
	defer span.End()

	meta, ok, err := s.store.Meta(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read stored meta")
		sendJson(w, http.StatusInternalServerError, errorResponse{Error: "failed to read stored data", Details: err.Error()})
		return
	}
	if !ok {
		sendJson(w, http.StatusNotFound, map[string]string{"error": "no cached data yet"})
		return
	}

	rows, err := s.store.Rows(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read stored rows")
		sendJson(w, http.StatusInternalServerError, errorResponse{Error: "failed to read stored data", Details: err.Error()})
		return
	}
	if rows == nil {
		rows = []toplist.TabRow{}
	}

	span.SetAttributes(attribute.Int("row_count", len(rows)))
	sendJson(w, http.StatusOK, topPayload{Meta: meta, Rows: rows})
}

func (s Service) handleArtistData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ArtistData")
	defer span.End()

	meta, ok, err := s.store.Meta(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read stored meta")
		sendJson(w, http.StatusInternalServerError, errorResponse{Error: "failed to read stored data", Details: err.Error()})
		return
	}
	if !ok {
		sendJson(w, http.StatusNotFound, map[string]string{"error": "no cached data yet"})
		return
	}

	records, err := s.store.Records(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read stored records")
		sendJson(w, http.StatusInternalServerError, errorResponse{Error: "failed to read stored data", Details: err.Error()})
		return
	}
	if records == nil {
		records = []ultimateguitar.Record{}
	}

	span.SetAttributes(attribute.Int("record_count", len(records)))
	sendJson(w, http.StatusOK, artistsPayload{Meta: meta, Records: records})
}

func (s Service) handleScrape(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Scrape")
	defer span.End()

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	force := false
	switch r.URL.Query().Get("force") {
	case "1", "true", "yes", "on":
		force = true
	}
	span.SetAttributes(attribute.Bool("force", force))

	meta, err := s.scraper.Run(ctx, force)
	if err != nil {
		// the previous scrape is still stored, only report the failure
		slog.ErrorContext(ctx, "scrape failed", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		sendJson(w, http.StatusInternalServerError, errorResponse{Error: "scrape failed", Details: err.Error()})
		return
	}

	sendJson(w, http.StatusOK, scrapeResponse{Ok: true, Meta: meta, RowCount: meta.RowCount})
}
