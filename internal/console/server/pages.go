package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/tansive/vaultconsole/internal/common/httpx"
	"github.com/tansive/vaultconsole/internal/console/form"
	"github.com/tansive/vaultconsole/internal/console/pages"
	"github.com/tansive/vaultconsole/internal/console/table"
	"github.com/tansive/vaultconsole/internal/metadata"
)

type pageRsp struct {
	Name        string          `json:"name"`
	Title       string          `json:"title"`
	Forms       []metadata.Kind `json:"forms"`
	Tabs        []metadata.Kind `json:"tabs"`
	Query       bool            `json:"query"`
	Collections []metadata.Kind `json:"collections"`
}

type formLayout struct {
	Kind   string   `json:"kind"`
	Label  string   `json:"label"`
	Fields []string `json:"fields"`
}

type layoutRsp struct {
	pageRsp
	FormLayouts []formLayout `json:"form_layouts"`
	TabTables   []*tableRsp  `json:"tab_tables"`
	Stale       bool         `json:"stale,omitempty"`
}

func (s *ConsoleServer) describePage(p pages.Page) pageRsp {
	return pageRsp{
		Name:        p.Name,
		Title:       p.Title,
		Forms:       p.Forms,
		Tabs:        p.Tabs,
		Query:       p.Query && s.deps.Query != nil,
		Collections: p.Collections(),
	}
}

func (s *ConsoleServer) listPages(r *http.Request) (*httpx.Response, error) {
	all := pages.All()
	out := make([]pageRsp, 0, len(all))
	for _, p := range all {
		out = append(out, s.describePage(p))
	}
	return &httpx.Response{Response: out}, nil
}

// getPage refreshes the page's collections and returns its layout. A failed
// refresh still returns the layout over the held collections, marked stale.
// ?refresh=false skips the refresh.
func (s *ConsoleServer) getPage(r *http.Request) (*httpx.Response, error) {
	p, err := pages.Get(chi.URLParam(r, "page"))
	if err != nil {
		return nil, err
	}
	rsp := &layoutRsp{pageRsp: s.describePage(p)}
	if r.URL.Query().Get("refresh") != "false" {
		if err := s.deps.Store.Refresh(r.Context(), rsp.Collections...); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Str("page", p.Name).Msg("page refresh failed")
			rsp.Stale = true
		}
	}
	for _, k := range p.Forms {
		spec, err := form.SpecFor(k)
		if err != nil {
			return nil, err
		}
		rsp.FormLayouts = append(rsp.FormLayouts, formLayout{Kind: string(k), Label: k.Label(), Fields: spec.Fields()})
	}
	for _, k := range p.Tabs {
		st := table.State{Visible: table.NoColumns(), Page: 1}
		rsp.TabTables = append(rsp.TabTables, s.renderTable(k, st))
	}
	out := &httpx.Response{Response: rsp}
	if rsp.Stale {
		out.Notice = &httpx.Notice{Level: httpx.NoticeError, Message: "some collections could not be refreshed"}
	}
	return out, nil
}
