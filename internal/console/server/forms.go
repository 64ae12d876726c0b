package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tansive/vaultconsole/internal/common/httpx"
	"github.com/tansive/vaultconsole/internal/console/form"
	"github.com/tansive/vaultconsole/internal/metadata"
)

type openFormReq struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id,omitempty"`
}

type setFieldReq struct {
	Value any `json:"value"`
}

type setRowCountReq struct {
	Count int `json:"count"`
}

type setRowReq struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type optionsRsp struct {
	Field   string   `json:"field"`
	Options []string `json:"options"`
}

func (s *ConsoleServer) form(r *http.Request) (*form.Form, error) {
	return s.deps.Forms.Get(chi.URLParam(r, "id"))
}

func (s *ConsoleServer) openForm(r *http.Request) (*httpx.Response, error) {
	var req openFormReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	k, err := metadata.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}
	var f *form.Form
	if req.ID != 0 {
		f, err = s.deps.Forms.OpenExisting(k, req.ID)
	} else {
		f, err = s.deps.Forms.Open(k)
	}
	if err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Message:    k.Label() + " form opened",
		Response:   f.Snapshot(),
	}, nil
}

func (s *ConsoleServer) getForm(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{Response: f.Snapshot()}, nil
}

func (s *ConsoleServer) closeForm(r *http.Request) (*httpx.Response, error) {
	if err := s.deps.Forms.Close(chi.URLParam(r, "id")); err != nil {
		return nil, err
	}
	return &httpx.Response{Message: "form closed"}, nil
}

func (s *ConsoleServer) setField(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	var req setFieldReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	field := chi.URLParam(r, "field")
	if err := f.SetField(field, req.Value); err != nil {
		return nil, err
	}
	return &httpx.Response{Message: metadata.Label(field) + " updated", Response: f.Snapshot()}, nil
}

// getOptions fetches remote options for remote fields and returns the derived
// list for every other field.
func (s *ConsoleServer) getOptions(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	field := chi.URLParam(r, "field")
	opts, err := f.LoadRemoteOptions(r.Context(), field)
	if errors.Is(err, form.ErrNotRemote) {
		opts, err = f.Options(field)
	}
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = []string{}
	}
	return &httpx.Response{
		Message:  strconv.Itoa(len(opts)) + " options loaded",
		Response: &optionsRsp{Field: field, Options: opts},
	}, nil
}

func (s *ConsoleServer) setRowCount(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	var req setRowCountReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if err := f.SetRowCount(req.Count); err != nil {
		return nil, err
	}
	return &httpx.Response{Message: "row count set to " + strconv.Itoa(req.Count), Response: f.Snapshot()}, nil
}

func (s *ConsoleServer) setRow(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid row index: " + chi.URLParam(r, "index"))
	}
	var req setRowReq
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}
	if req.Version == 0 {
		req.Version = 1
	}
	if err := f.SetRow(index, req.Name, req.Version); err != nil {
		return nil, err
	}
	return &httpx.Response{Message: "row " + strconv.Itoa(index) + " updated", Response: f.Snapshot()}, nil
}

func (s *ConsoleServer) validateForm(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	msg, err := f.Validate(r.Context())
	if err != nil {
		return nil, err
	}
	return &httpx.Response{Message: msg, Response: f.Snapshot()}, nil
}

func (s *ConsoleServer) submitForm(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	report, err := f.Submit(r.Context())
	if err != nil {
		return nil, err
	}
	return &httpx.Response{Message: report.Summary(), Response: f.Snapshot()}, nil
}

func (s *ConsoleServer) getChecks(r *http.Request) (*httpx.Response, error) {
	f, err := s.form(r)
	if err != nil {
		return nil, err
	}
	checks := f.CrossCheck()
	if checks == nil {
		checks = []form.Check{}
	}
	return &httpx.Response{Response: checks}, nil
}
