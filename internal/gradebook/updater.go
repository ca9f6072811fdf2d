package gradebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/sheet"
)

// CycleState is the state of one locate-and-update cycle.
type CycleState string

const (
	StateIdle           CycleState = "idle"
	StateLocated        CycleState = "located"
	StateDiffing        CycleState = "diffing"
	StateWriting        CycleState = "writing"
	StateDone           CycleState = "done"
	StatePartialFailure CycleState = "partial_failure"
	StateNotFound       CycleState = "not_found"
	StateAmbiguous      CycleState = "ambiguous"
	StateRejected       CycleState = "rejected"
	StateStale          CycleState = "stale"
)

// Changes maps an editable field name to a new value, as decoded from JSON.
type Changes map[string]interface{}

// FieldChange is one field whose new value differs from the snapshot.
type FieldChange struct {
	Field model.EditableField `json:"field"`
	Old   string              `json:"old"`
	New   string              `json:"new"`

	value interface{}
}

// UpdateResult describes how far a cycle got.
type UpdateResult struct {
	State    CycleState            `json:"state"`
	Index    int                   `json:"index"`
	SheetRow int                   `json:"sheet_row"`
	Changes  []FieldChange         `json:"changes"`
	Written  []model.EditableField `json:"written"`
	Failed   []model.EditableField `json:"failed"`
	Pending  []model.EditableField `json:"pending"`
	Batched  bool                  `json:"batched"`
}

// UpdaterOptions tune how changes reach the store.
type UpdaterOptions struct {
	// Batch writes every changed cell in one call when the store is a sheet.BatchWriter.
	Batch bool
	// VerifyBeforeWrite re-reads the row (sheet.RowReader) and refuses to write
	// if its identity or editable cells no longer match the snapshot.
	VerifyBeforeWrite bool
}

// Updater applies partial updates to located rows. Only editable fields are
// ever written.
type Updater struct {
	store sheet.Store
	opts  UpdaterOptions
	log   zerolog.Logger
}

// NewUpdater creates an Updater writing to store.
func NewUpdater(store sheet.Store, opts UpdaterOptions, log zerolog.Logger) *Updater {
	return &Updater{
		store: store,
		opts:  opts,
		log:   log.With().Str("component", "row_updater").Logger(),
	}
}

// Apply runs a full cycle: locate the row for key, then Update it.
func (u *Updater) Apply(ctx context.Context, snap *Snapshot, key model.LocateKey, changes Changes) (*UpdateResult, error) {
	index, err := Locate(snap.Records, key)
	if err != nil {
		res := &UpdateResult{State: StateNotFound, Index: -1}
		if errors.Is(err, ErrAmbiguous) {
			res.State = StateAmbiguous
		}
		return res, err
	}
	return u.Update(ctx, snap, index, changes)
}

// Update validates changes, diffs them against the snapshot record at index and
// writes only the fields whose value changed. Validation failures happen before
// any store access. In point mode the first failed write aborts the cycle and the
// result says which fields were written, which failed and which were never tried.
func (u *Updater) Update(ctx context.Context, snap *Snapshot, index int, changes Changes) (*UpdateResult, error) {
	row, err := snap.SheetRow(index)
	if err != nil {
		return &UpdateResult{State: StateNotFound, Index: index}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	res := &UpdateResult{State: StateLocated, Index: index, SheetRow: row}
	log := u.log.With().Str("worksheet", snap.Worksheet).Int("sheet_row", row).Logger()

	values, err := Validate(changes)
	if err != nil {
		res.State = StateRejected
		log.Debug().Err(err).Msg("Change set rejected")
		return res, err
	}

	res.State = StateDiffing
	res.Changes = Diff(snap.Records[index], values)
	if len(res.Changes) == 0 {
		res.State = StateDone
		log.Debug().Msg("No field changed, nothing written")
		return res, nil
	}

	if u.opts.VerifyBeforeWrite {
		if err := u.verify(ctx, snap, index, row); err != nil {
			if errors.Is(err, ErrStaleRow) {
				res.State = StateStale
			} else {
				res.State = StatePartialFailure
				res.Failed = fieldsOf(res.Changes)
			}
			return res, err
		}
	}

	res.State = StateWriting
	if bw, ok := u.store.(sheet.BatchWriter); ok && u.opts.Batch {
		return u.writeBatch(ctx, bw, snap, index, res, log)
	}
	return u.writePoints(ctx, snap, index, res, log)
}

func (u *Updater) writePoints(ctx context.Context, snap *Snapshot, index int, res *UpdateResult, log zerolog.Logger) (*UpdateResult, error) {
	for i, ch := range res.Changes {
		col := snap.ColumnNumber(fieldColumns[ch.Field])
		log.Debug().Str("field", string(ch.Field)).Int("step", i+1).Int("of", len(res.Changes)).Msg("Writing cell")

		if err := u.store.SetCell(ctx, snap.Worksheet, res.SheetRow, col, ch.value); err != nil {
			werr := &WriteError{Field: ch.Field, Row: res.SheetRow, Col: col, Err: err}
			res.State = StatePartialFailure
			res.Failed = []model.EditableField{ch.Field}
			res.Pending = fieldsOf(res.Changes[i+1:])
			log.Warn().Err(err).
				Strs("written", toStrings(res.Written)).
				Str("failed", string(ch.Field)).
				Msg("Point write failed, aborting cycle")
			return res, &PartialFailureError{
				Written: res.Written,
				Failed:  res.Failed,
				Pending: res.Pending,
				Err:     werr,
			}
		}
		snap.apply(index, ch.Field, ch.value)
		res.Written = append(res.Written, ch.Field)
	}

	res.State = StateDone
	log.Info().Strs("written", toStrings(res.Written)).Msg("Grade record updated")
	return res, nil
}

func (u *Updater) writeBatch(ctx context.Context, bw sheet.BatchWriter, snap *Snapshot, index int, res *UpdateResult, log zerolog.Logger) (*UpdateResult, error) {
	res.Batched = true
	cells := make([]sheet.CellWrite, len(res.Changes))
	for i, ch := range res.Changes {
		cells[i] = sheet.CellWrite{Row: res.SheetRow, Col: snap.ColumnNumber(fieldColumns[ch.Field]), Value: ch.value}
	}

	if err := bw.SetCells(ctx, snap.Worksheet, cells); err != nil {
		res.State = StatePartialFailure
		res.Failed = fieldsOf(res.Changes)
		log.Warn().Err(err).Msg("Batch write failed, no field written")
		return res, &PartialFailureError{
			Failed: res.Failed,
			Err:    &WriteError{Row: res.SheetRow, Err: err},
		}
	}

	for _, ch := range res.Changes {
		snap.apply(index, ch.Field, ch.value)
		res.Written = append(res.Written, ch.Field)
	}
	res.State = StateDone
	log.Info().Strs("written", toStrings(res.Written)).Bool("batched", true).Msg("Grade record updated")
	return res, nil
}

// verify compares the live row with the snapshot. Stores that cannot re-read a
// row skip the check.
func (u *Updater) verify(ctx context.Context, snap *Snapshot, index, row int) error {
	rr, ok := u.store.(sheet.RowReader)
	if !ok {
		return nil
	}
	live, err := rr.ReadRow(ctx, snap.Worksheet, row)
	if err != nil {
		return &WriteError{Row: row, Err: fmt.Errorf("re-read row: %w", err)}
	}
	live = pad(live, len(snap.Header))

	cols := append([]Column{}, identityColumns...)
	for _, f := range model.EditableFields {
		cols = append(cols, fieldColumns[f])
	}
	for _, c := range cols {
		idx, ok := snap.columns[c]
		if !ok {
			continue
		}
		if strings.TrimSpace(live[idx]) != strings.TrimSpace(snap.cell(index, c)) {
			u.log.Warn().Int("sheet_row", row).Str("column", string(c)).Msg("Row changed since snapshot")
			return ErrStaleRow
		}
	}
	return nil
}

// Validate checks every entry of changes and converts values to the types
// written to the store: int for Grade, model.ConductCode for ConductCode and
// string for CommentText.
// All rejected entries are returned together in a *ValidationError.
func Validate(changes Changes) (map[model.EditableField]interface{}, error) {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[model.EditableField]interface{}, len(changes))
	var verr ValidationError
	for _, name := range names {
		raw := changes[name]
		field, ok := model.ParseEditableField(name)
		if !ok {
			verr.Fields = append(verr.Fields, &FieldError{Field: name, Value: raw, Err: ErrInvalidField})
			continue
		}
		v, err := convert(field, raw)
		if err != nil {
			verr.Fields = append(verr.Fields, &FieldError{Field: name, Value: raw, Err: err})
			continue
		}
		out[field] = v
	}
	if len(verr.Fields) > 0 {
		return nil, &verr
	}
	return out, nil
}

func convert(field model.EditableField, raw interface{}) (interface{}, error) {
	switch field {
	case model.FieldGrade:
		return gradeValue(raw)
	case model.FieldConductCode:
		s, ok := raw.(string)
		if !ok {
			return nil, ErrInvalidValue
		}
		code, ok := model.ParseConductCode(s)
		if !ok {
			return nil, ErrInvalidValue
		}
		return code, nil
	case model.FieldCommentText:
		s, ok := raw.(string)
		if !ok {
			return nil, ErrInvalidValue
		}
		// Snapshot cells are trimmed on load, so edges never count as a change.
		return strings.TrimSpace(s), nil
	}
	return nil, ErrInvalidField
}

// gradeValue accepts JSON numbers and numeric strings holding an integer in [0,100].
func gradeValue(raw interface{}) (int, error) {
	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, ErrOutOfRange
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, ErrOutOfRange
		}
		f = n
	default:
		return 0, ErrOutOfRange
	}
	if math.IsNaN(f) || f != math.Trunc(f) || f < 0 || f > 100 {
		return 0, ErrOutOfRange
	}
	return int(f), nil
}

// Diff returns the validated values that differ from rec, in write order.
func Diff(rec model.GradeRecord, values map[model.EditableField]interface{}) []FieldChange {
	var out []FieldChange
	for _, field := range model.EditableFields {
		v, ok := values[field]
		if !ok {
			continue
		}
		switch field {
		case model.FieldGrade:
			g := v.(int)
			if rec.Grade != nil && *rec.Grade == float64(g) {
				continue
			}
			out = append(out, FieldChange{Field: field, Old: formatGrade(rec.Grade), New: strconv.Itoa(g), value: g})
		case model.FieldConductCode:
			code := v.(model.ConductCode)
			if rec.ConductCode == code {
				continue
			}
			out = append(out, FieldChange{Field: field, Old: string(rec.ConductCode), New: string(code), value: string(code)})
		case model.FieldCommentText:
			s := strings.TrimSpace(v.(string))
			if rec.CommentText == s {
				continue
			}
			out = append(out, FieldChange{Field: field, Old: rec.CommentText, New: s, value: s})
		}
	}
	return out
}

func fieldsOf(changes []FieldChange) []model.EditableField {
	out := make([]model.EditableField, len(changes))
	for i, ch := range changes {
		out[i] = ch.Field
	}
	return out
}

func toStrings(fields []model.EditableField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
