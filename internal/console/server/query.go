package server

import (
	"net/http"

	"github.com/tansive/vaultconsole/internal/common/httpx"
	"github.com/tansive/vaultconsole/internal/console/querypanel"
)

type queryReq struct {
	Query  string `json:"query"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// runQuery runs a read-only statement, or previews schema.table when no
// statement is given.
func (s *ConsoleServer) runQuery(r *http.Request) (*httpx.Response, error) {
	if s.deps.Query == nil {
		return nil, querypanel.ErrDisabled
	}
	var req queryReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	var (
		res *querypanel.Result
		err error
	)
	if req.Query == "" && req.Table != "" {
		schema := req.Schema
		if schema == "" {
			schema = "public"
		}
		res, err = s.deps.Query.Preview(r.Context(), schema, req.Table)
	} else {
		res, err = s.deps.Query.Run(r.Context(), req.Query)
	}
	if err != nil {
		return nil, err
	}
	return &httpx.Response{Response: res}, nil
}
