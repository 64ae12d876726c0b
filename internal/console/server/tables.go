package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/tansive/vaultconsole/internal/common/httpx"
	"github.com/tansive/vaultconsole/internal/console/export"
	"github.com/tansive/vaultconsole/internal/console/table"
	"github.com/tansive/vaultconsole/internal/metadata"
)

var jsonx = jsoniter.ConfigCompatibleWithStandardLibrary

// dateLayout is the layout of the from and to query parameters.
const dateLayout = "2006-01-02"

// reserved query parameters; every other parameter naming a column is a
// categorical filter.
var reserved = map[string]bool{"q": true, "from": true, "to": true, "page": true, "columns": true, "embedded": true}

type columnRsp struct {
	table.Column
	Visible bool `json:"visible"`
}

type tableRsp struct {
	Kind    string      `json:"kind"`
	Label   string      `json:"label"`
	Columns []columnRsp `json:"columns"`
	table.Page[metadata.Record]
}

func kindParam(r *http.Request) (metadata.Kind, error) {
	return metadata.ParseKind(chi.URLParam(r, "kind"))
}

// tableState reads the filter, visibility and page of a table request.
func tableState(r *http.Request, cols []table.Column) (table.State, error) {
	q := r.URL.Query()
	st := table.State{
		Filter: table.Filter{Search: q.Get("q"), Categories: map[string]string{}},
		Page:   1,
	}
	for _, b := range []struct {
		name string
		dst  *time.Time
	}{{"from", &st.Filter.StartDate}, {"to", &st.Filter.EndDate}} {
		if v := q.Get(b.name); v != "" {
			t, err := time.Parse(dateLayout, v)
			if err != nil {
				return st, httpx.ErrInvalidRequest("invalid " + b.name + " date, expected YYYY-MM-DD: " + v)
			}
			*b.dst = t
		}
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return st, httpx.ErrInvalidRequest("invalid page: " + v)
		}
		st.Page = n
	}
	embedded, _ := strconv.ParseBool(q.Get("embedded"))
	if q.Has("columns") {
		var keys []string
		if v := q.Get("columns"); v != "" {
			keys = strings.Split(v, ",")
		}
		st.Visible = table.ColumnsFromKeys(cols, keys)
	} else {
		st.Visible = table.DefaultColumns(cols, embedded)
	}
	known := map[string]bool{}
	for _, c := range cols {
		known[c.Key] = true
	}
	for key, vals := range q {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		if !known[key] {
			return st, httpx.ErrInvalidRequest("unknown filter field: " + key)
		}
		st.Filter.Categories[key] = vals[0]
	}
	return st, nil
}

// records returns k's records, scoped to the user's projects when configured.
func (s *ConsoleServer) records(k metadata.Kind) []metadata.Record {
	if s.opts.UserEmail == "" || !k.IsComponent() {
		return s.deps.Store.Records(k)
	}
	projects := s.deps.Store.AssignedProjects(s.opts.UserEmail)
	if len(projects) == 0 {
		return []metadata.Record{}
	}
	return s.deps.Store.Scoped(k, projects)
}

func (s *ConsoleServer) renderTable(k metadata.Kind, st table.State) *tableRsp {
	view := metadata.View(k)
	rsp := &tableRsp{
		Kind:  string(k),
		Label: k.Label(),
		Page:  view.Render(s.records(k), st),
	}
	for _, c := range view.Columns {
		rsp.Columns = append(rsp.Columns, columnRsp{Column: c, Visible: st.Visible.Visible(c.Key)})
	}
	return rsp
}

func (s *ConsoleServer) getTable(r *http.Request) (*httpx.Response, error) {
	k, err := kindParam(r)
	if err != nil {
		return nil, err
	}
	st, err := tableState(r, metadata.Columns(k))
	if err != nil {
		return nil, err
	}
	return &httpx.Response{Response: s.renderTable(k, st)}, nil
}

// exportTable writes every filtered row, across all pages, as CSV.
func (s *ConsoleServer) exportTable(r *http.Request) (*httpx.Response, error) {
	k, err := kindParam(r)
	if err != nil {
		return nil, err
	}
	st, err := tableState(r, metadata.Columns(k))
	if err != nil {
		return nil, err
	}
	filtered := metadata.View(k).Filter(s.records(k), st.Filter)
	rows := make([]json.RawMessage, 0, len(filtered))
	for _, rec := range filtered {
		raw, err := jsonx.Marshal(rec)
		if err != nil {
			return nil, httpx.ErrApplicationError("unable to encode record")
		}
		rows = append(rows, raw)
	}
	name, data := export.CSV(rows, k.Path(), time.Now())
	log.Ctx(r.Context()).Info().Str("kind", string(k)).Int("rows", len(rows)).Msg("table exported")
	return &httpx.Response{
		ContentType: "text/csv; charset=utf-8",
		Attachment:  name,
		Body:        data,
	}, nil
}

type collectionRsp struct {
	Kind        string    `json:"kind"`
	Revision    uint64    `json:"revision"`
	Count       int       `json:"count"`
	FetchedAt   time.Time `json:"fetched_at"`
	Fingerprint string    `json:"fingerprint"`
	Strategy    string    `json:"merge_strategy"`
}

func (s *ConsoleServer) refreshCollection(r *http.Request) (*httpx.Response, error) {
	k, err := kindParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Store.Refresh(r.Context(), k); err != nil {
		return nil, err
	}
	c, _ := s.deps.Store.Get(k)
	return &httpx.Response{
		Message: k.Label() + " refreshed",
		Response: &collectionRsp{
			Kind:        string(k),
			Revision:    c.Revision,
			Count:       len(c.Records),
			FetchedAt:   c.FetchedAt,
			Fingerprint: c.Fingerprint,
			Strategy:    string(s.deps.Store.Strategy()),
		},
	}, nil
}
