package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/compare"
	"github.com/propscout/propscout/enrichment/view"
	"github.com/propscout/propscout/logger"
)

type searchPage struct {
	Params  api.SearchParams
	Result  *api.SearchResult
	Prev    string
	Next    string
	Sorts   []string
	Compare bool
}

var searchSorts = []string{"newest", "price_asc", "price_desc", "beds", "sqft"}

func searchParams(r *http.Request, pageSize int) api.SearchParams {
	q := r.URL.Query()
	num := func(key string) float64 {
		v, _ := strconv.ParseFloat(q.Get(key), 64)
		return v
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	return api.SearchParams{
		Query:        q.Get("q"),
		City:         q.Get("city"),
		State:        q.Get("state"),
		ZipCode:      q.Get("zip_code"),
		MinPrice:     num("min_price"),
		MaxPrice:     num("max_price"),
		MinBedrooms:  num("min_bedrooms"),
		MinBathrooms: num("min_bathrooms"),
		PropertyType: q.Get("property_type"),
		Sort:         q.Get("sort"),
		Page:         page,
		PageSize:     pageSize,
	}
}

func pageLink(r *http.Request, page int) string {
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	return "/?" + q.Encode()
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := searchParams(r, s.currentPageSize())
	res, err := s.user(r).Search(r.Context(), params)
	if err != nil {
		s.fail(w, r, "Search", err)
		return
	}

	data := searchPage{Params: params, Result: res, Sorts: searchSorts, Compare: len(res.Properties) >= compare.MinProperties}
	if res.Page > 1 {
		data.Prev = pageLink(r, res.Page-1)
	}
	if res.Page < res.Pages() {
		data.Next = pageLink(r, res.Page+1)
	}
	s.render(w, r, http.StatusOK, "search", pageData{Title: "Search", Data: data})
}

type propertyPage struct {
	Property *api.Property
	Report   *view.Report
	// Live is false when the page was rendered by the enrich fallback.
	Live bool
}

func (s *Server) handleProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, "Property", err)
		return
	}
	p, err := s.user(r).Property(r.Context(), id)
	if err != nil {
		s.fail(w, r, "Property", err)
		return
	}
	s.render(w, r, http.StatusOK, "property", pageData{
		Title:  p.FullAddress(),
		Notice: r.URL.Query().Get("notice"),
		Data:   propertyPage{Property: p, Live: true},
	})
}

// handleEnrich is the form fallback for browsers without websockets: it
// enriches synchronously and renders the whole detail page.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, "Enrich", err)
		return
	}
	u := s.user(r)
	p, err := u.Property(r.Context(), id)
	if err != nil {
		s.fail(w, r, "Enrich", err)
		return
	}
	report, err := s.enrich(r.Context(), u, id, r.FormValue("force_refresh") != "")
	if err != nil {
		s.fail(w, r, "Enrich", err)
		return
	}
	s.render(w, r, http.StatusOK, "property", pageData{
		Title: p.FullAddress(),
		Data:  propertyPage{Property: p, Report: report},
	})
}

// enrich calls the backend and runs the result through the registry.
func (s *Server) enrich(ctx context.Context, u *api.UserClient, id int64, force bool) (*view.Report, error) {
	start := time.Now()
	resp, err := u.Enrich(ctx, id, api.EnrichRequest{ForceRefresh: force})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveEnrichment(time.Since(start), nil, err)
		}
		return nil, err
	}

	report := view.NewReport(resp, s.registry)
	if s.metrics != nil {
		s.metrics.ObserveEnrichment(time.Since(start), &report.Selection, nil)
	}
	for _, f := range report.Selection.Failures {
		s.log.Warnw("Enrichment section dropped",
			logger.FieldPropertyID, id,
			logger.FieldSection, f.Descriptor,
			"stage", f.Stage,
			logger.FieldError, f.Err)
	}
	s.log.Debugw("Property enriched",
		logger.FieldPropertyID, id,
		logger.FieldCount, len(report.Views),
		logger.FieldCached, report.Cached,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return report, nil
}

type comparePage struct {
	Table *compare.Table
	Share string
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ids, err := compare.ParseIDs(r.URL.Query()["ids"])
	if err != nil {
		s.fail(w, r, "Compare", err)
		return
	}
	s.renderComparison(w, r, ids)
}

func (s *Server) handleCompareCode(w http.ResponseWriter, r *http.Request) {
	ids, err := compare.Decode(r.PathValue("code"))
	if err != nil {
		s.fail(w, r, "Compare", err)
		return
	}
	s.renderComparison(w, r, ids)
}

func (s *Server) renderComparison(w http.ResponseWriter, r *http.Request, ids []int64) {
	props, err := s.user(r).Properties(r.Context(), ids)
	if err != nil {
		s.fail(w, r, "Compare", err)
		return
	}
	table, err := compare.Build(props)
	if err != nil {
		s.fail(w, r, "Compare", err)
		return
	}
	s.render(w, r, http.StatusOK, "compare", pageData{
		Title: "Compare " + strings.Join(table.Headers, " / "),
		Data:  comparePage{Table: table, Share: "/compare/" + table.Code},
	})
}
