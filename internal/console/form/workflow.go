package form

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/tansive/vaultconsole/internal/common/apperrors"
	"github.com/tansive/vaultconsole/internal/metadata"
)

// RowResult is one persisted row of a submission.
type RowResult struct {
	Row     int    `json:"row"`
	Message string `json:"message,omitempty"`
}

// RowFailure is the row that stopped a submission.
type RowFailure struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// BatchReport describes an ordered submission. Rows are 1-based. Rows before
// the failed one stay persisted on the backend; rows after it were not sent.
type BatchReport struct {
	Total     int         `json:"total"`
	Succeeded []RowResult `json:"succeeded"`
	Failed    *RowFailure `json:"failed,omitempty"`
	Skipped   []int       `json:"skipped"`
}

// Complete reports whether every row was persisted.
func (b *BatchReport) Complete() bool {
	return b.Failed == nil && len(b.Succeeded) == b.Total
}

// Summary is the notice text for the report.
func (b *BatchReport) Summary() string {
	if b.Complete() {
		if b.Total == 1 {
			if len(b.Succeeded) == 1 && b.Succeeded[0].Message != "" {
				return b.Succeeded[0].Message
			}
			return "record saved"
		}
		return fmt.Sprintf("%d records saved", b.Total)
	}
	if b.Total == 1 || b.Failed == nil {
		if b.Failed != nil {
			return b.Failed.Error
		}
		return "submission incomplete"
	}
	return fmt.Sprintf("row %d failed: %s; %d saved, %d not sent",
		b.Failed.Row, b.Failed.Error, len(b.Succeeded), len(b.Skipped))
}

// records builds the submission: one record, or one per row. The caller holds mu.
func (f *Form) records() ([]metadata.Record, error) {
	if f.spec.Rows == nil {
		rec, err := f.record(nil)
		if err != nil {
			return nil, err
		}
		return []metadata.Record{rec}, nil
	}
	out := make([]metadata.Record, 0, len(f.rows))
	for i := range f.rows {
		rec, err := f.record(&f.rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *Form) record(row *Row) (metadata.Record, error) {
	values := make(map[string]any, len(f.values)+4)
	for k, v := range f.values {
		values[k] = v
	}
	if r := f.spec.Rows; r != nil {
		delete(values, r.CountField)
		values[r.NameField] = row.Name
		values[r.VersionField] = row.Version
		if len(r.Copy) > 0 && row.Name != "" && f.deps.Collections != nil {
			if want, ok := f.ancestors(r.Match); ok {
				want[r.Key] = row.Name
				want["version"] = fmt.Sprint(row.Version)
				if ref, found := findRecord(f.deps.Collections.Records(r.Source), want); found {
					refFields := metadata.Fields(ref)
					for src, dst := range r.Copy {
						values[dst] = refFields[src]
					}
				}
			}
		}
	}
	if f.recordID != 0 {
		values["id"] = f.recordID
	}
	rec, err := metadata.FromValues(f.spec.Kind, values)
	if err != nil {
		return nil, err
	}
	if d, ok := rec.(metadata.Deriver); ok {
		d.Derive()
	}
	return rec, nil
}

// Missing lists the required fields that are still empty, across all rows.
func (f *Form) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missing()
}

func (f *Form) missing() []string {
	recs, err := f.records()
	if err != nil {
		return nil
	}
	var out []string
	for _, rec := range recs {
		for _, field := range metadata.MissingFields(rec) {
			if !slices.Contains(out, field) {
				out = append(out, field)
			}
		}
	}
	return out
}

// localCheck runs the required-field predicate on every record. The caller holds mu.
func (f *Form) localCheck() ([]metadata.Record, error) {
	recs, err := f.records()
	if err != nil {
		return nil, err
	}
	var fields apperrors.ValidationErrors
	for i, rec := range recs {
		err := metadata.Validate(rec)
		if err == nil {
			continue
		}
		var appErr apperrors.Error
		if !errors.As(err, &appErr) {
			return nil, err
		}
		for _, fe := range appErr.Fields() {
			if f.spec.Rows != nil {
				fe.Field = fmt.Sprintf("row %d: %s", i+1, fe.Field)
			}
			fields = append(fields, fe)
		}
	}
	if len(fields) > 0 {
		return nil, metadata.ErrRequiredFieldMissing.Err(fields)
	}
	return recs, nil
}

// Validate checks required fields locally, then sends each payload to the
// backend's test endpoint in order. Success moves the form to Validated. A
// result that arrives after a tracked field was edited is discarded.
func (f *Form) Validate(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.touch()
	if f.state == Validating || f.state == Submitting {
		f.mu.Unlock()
		return "", ErrBusy
	}
	recs, err := f.localCheck()
	if err != nil {
		f.state = Editing
		f.mu.Unlock()
		return "", err
	}
	f.state = Validating
	f.report = nil
	gen := f.gen
	f.mu.Unlock()

	var msg string
	var testErr error
	for i, rec := range recs {
		res, err := f.deps.Backend.Test(ctx, rec)
		if err != nil {
			testErr = err
			if len(recs) > 1 {
				testErr = fmt.Errorf("row %d: %w", i+1, err)
			}
			break
		}
		msg = res.Message
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gen != gen || f.state != Validating {
		if f.state == Validating {
			f.state = Editing
			f.message = ""
		}
		return "", ErrValidationDiscarded
	}
	if testErr != nil {
		f.state = Editing
		f.message = ""
		log.Ctx(ctx).Info().Str("form", f.id).Err(testErr).Msg("validation rejected")
		return "", testErr
	}
	if msg == "" {
		msg = "validation successful"
	}
	f.state = Validated
	f.message = msg
	return msg, nil
}

// Submit sends one create (or update) request per record, in row order, each
// awaited before the next. The first failure stops the batch; rows already
// persisted are not rolled back. A complete submission resets the form.
func (f *Form) Submit(ctx context.Context) (*BatchReport, error) {
	f.mu.Lock()
	f.touch()
	if f.state != Validated {
		f.mu.Unlock()
		if f.state == Validating || f.state == Submitting {
			return nil, ErrBusy
		}
		return nil, ErrNotValidated
	}
	for _, c := range f.crossCheck() {
		if c.Blocking {
			f.mu.Unlock()
			return nil, ErrCrossCheckFailed.Msg(c.Message)
		}
	}
	recs, err := f.records()
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	update := f.recordID != 0
	f.state = Submitting
	f.mu.Unlock()

	report := &BatchReport{Total: len(recs), Succeeded: []RowResult{}, Skipped: []int{}}
	var failure error
	for i, rec := range recs {
		if failure != nil {
			report.Skipped = append(report.Skipped, i+1)
			continue
		}
		if err := ctx.Err(); err != nil {
			failure = err
			report.Failed = &RowFailure{Row: i + 1, Error: err.Error()}
			continue
		}
		var msg string
		if update {
			res, err := f.deps.Backend.UpdateRecord(ctx, rec, nil)
			if err == nil {
				msg = res.Message
			}
			failure = err
		} else {
			res, err := f.deps.Backend.Create(ctx, rec)
			if err == nil {
				msg = res.Message
			}
			failure = err
		}
		if failure != nil {
			report.Failed = &RowFailure{Row: i + 1, Error: failure.Error()}
			log.Ctx(ctx).Error().Str("form", f.id).Int("row", i+1).Err(failure).Msg("submission row failed")
			continue
		}
		report.Succeeded = append(report.Succeeded, RowResult{Row: i + 1, Message: msg})
	}

	f.mu.Lock()
	if report.Complete() {
		f.reset()
		f.recordID = 0
	} else {
		f.state = Editing
		f.message = ""
	}
	f.report = report
	f.mu.Unlock()

	if len(report.Succeeded) > 0 && f.deps.OnSubmitted != nil {
		f.deps.OnSubmitted(ctx, f.spec.Kind)
	}
	if failure != nil {
		return report, ErrSubmitFailed.MsgErr(report.Summary(), failure)
	}
	return report, nil
}
