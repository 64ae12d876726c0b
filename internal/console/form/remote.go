package form

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

// LoadRemoteOptions fetches the options of a remote field through column
// discovery. Every call takes a new sequencing token for the field; when a
// newer call was issued, or the field was reset, before this one resolved, the
// result is dropped and ErrStaleOptions returned, so a slow response can never
// overwrite a newer option list. A result that resolves while the form is
// submitting is dropped with ErrBusy.
func (f *Form) LoadRemoteOptions(ctx context.Context, field string) ([]string, error) {
	f.mu.Lock()
	l, _, ok := f.spec.level(field)
	if !ok {
		f.mu.Unlock()
		return nil, ErrUnknownField.Msg("unknown form field: " + field)
	}
	if l.Remote == nil {
		f.mu.Unlock()
		return nil, ErrNotRemote
	}
	if f.state == Submitting {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	sel, ok := f.selector(l.Remote)
	if !ok {
		f.mu.Unlock()
		return nil, ErrAncestorUnset
	}
	f.seq[field]++
	token := f.seq[field]
	f.touch()
	f.mu.Unlock()

	cols, err := f.deps.Backend.Columns(ctx, l.Remote.Kind, sel)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seq[field] != token {
		log.Ctx(ctx).Debug().Str("form", f.id).Str("field", field).Msg("dropping stale option list")
		return nil, ErrStaleOptions
	}
	if err != nil {
		return nil, err
	}
	if f.state == Submitting {
		return nil, ErrBusy
	}
	f.remote[field] = cols
	// selections that are no longer offered are dropped
	if l.Multi {
		kept := []string{}
		for _, v := range asList(f.values[field]) {
			for _, c := range cols {
				if c == v {
					kept = append(kept, v)
					break
				}
			}
		}
		if len(kept) != len(asList(f.values[field])) {
			f.values[field] = kept
			f.edited(field)
		}
	}
	return append([]string{}, cols...), nil
}

// selector builds the column discovery request. The caller holds mu.
func (f *Form) selector(r *Remote) (vaultapi.Selector, bool) {
	sel := vaultapi.Selector{
		Project:  stringOf(f.values["projectshortname"]),
		DP:       stringOf(f.values["dpname"]),
		Dataset:  stringOf(f.values["dsname"]),
		CompType: string(f.spec.Kind),
	}
	if sel.Project == "" || sel.DP == "" || sel.Dataset == "" {
		return sel, false
	}
	if r.NameField != "" {
		sel.CompName = stringOf(f.values[r.NameField])
		if sel.CompName == "" {
			return sel, false
		}
	}
	return sel, true
}
