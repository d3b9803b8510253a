package http

import (
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/input"
	"bilancio/internal/report"
	"bilancio/internal/session"
)

// Amounts are encoded by shopspring/decimal as JSON strings so no precision
// is lost in transit.

type ComponentDTO struct {
	ID       core.ComponentID `json:"id"`
	Name     string           `json:"name"`
	Disabled bool             `json:"disabled"`
}

type GroupDTO struct {
	ID         core.GroupID   `json:"id"`
	Name       string         `json:"name"`
	Disabled   bool           `json:"disabled"`
	Components []ComponentDTO `json:"components"`
}

type SectionDTO struct {
	ID     core.SectionID   `json:"id"`
	Name   string           `json:"name"`
	Kind   core.SectionKind `json:"kind"`
	Groups []GroupDTO       `json:"groups"`
}

func toHierarchyDTO(sections []core.Section) []SectionDTO {
	out := make([]SectionDTO, 0, len(sections))
	for _, s := range sections {
		sd := SectionDTO{ID: s.ID, Name: s.Name, Kind: s.Kind, Groups: make([]GroupDTO, 0, len(s.Groups))}
		for _, g := range s.Groups {
			gd := GroupDTO{ID: g.ID, Name: g.Name, Disabled: g.Disabled, Components: make([]ComponentDTO, 0, len(g.Components))}
			for _, c := range g.Components {
				gd.Components = append(gd.Components, ComponentDTO{ID: c.ID, Name: c.Name, Disabled: c.Disabled})
			}
			sd.Groups = append(sd.Groups, gd)
		}
		out = append(out, sd)
	}
	return out
}

type ValuesDTO struct {
	Year       int                              `json:"year"`
	Kind       core.ValueKind                   `json:"kind"`
	Components map[core.ComponentID]core.Months `json:"components"`
}

type NotesDTO struct {
	Year       int                                  `json:"year"`
	Components map[core.ComponentID]core.MonthNotes `json:"components"`
}

// UpsertValuesRequest carries a sparse month→amount payload; months are
// JSON object keys ("1".."12").
type UpsertValuesRequest struct {
	Values map[int]decimal.Decimal `json:"values"`
}

type UpsertNotesRequest struct {
	Notes map[int]string `json:"notes"`
}

type TotalsDTO struct {
	Monthly core.Months     `json:"monthly"`
	Annual  decimal.Decimal `json:"annual"`
}

func toTotalsDTO(t report.Totals) TotalsDTO {
	return TotalsDTO{Monthly: t.Monthly, Annual: t.Annual}
}

type RollupComponentDTO struct {
	ComponentDTO
	Included bool      `json:"included"`
	Totals   TotalsDTO `json:"totals"`
}

type RollupGroupDTO struct {
	ID         core.GroupID         `json:"id"`
	Name       string               `json:"name"`
	Disabled   bool                 `json:"disabled"`
	Totals     TotalsDTO            `json:"totals"`
	Components []RollupComponentDTO `json:"components"`
}

type RollupSectionDTO struct {
	ID     core.SectionID   `json:"id"`
	Name   string           `json:"name"`
	Kind   core.SectionKind `json:"kind"`
	Totals TotalsDTO        `json:"totals"`
	Groups []RollupGroupDTO `json:"groups"`
}

// RollupDTO nests the signed totals under the hierarchy. Component totals
// are the raw magnitudes.
type RollupDTO struct {
	Year     int                `json:"year"`
	Kind     core.ValueKind     `json:"kind"`
	Sections []RollupSectionDTO `json:"sections"`
	Grand    TotalsDTO          `json:"grand"`
}

func toRollupDTO(hierarchy []core.Section, kind core.ValueKind, r report.Rollup) RollupDTO {
	out := RollupDTO{Year: r.Year, Kind: kind, Grand: toTotalsDTO(r.Grand), Sections: make([]RollupSectionDTO, 0, len(hierarchy))}
	for _, s := range hierarchy {
		sd := RollupSectionDTO{ID: s.ID, Name: s.Name, Kind: s.Kind, Totals: toTotalsDTO(r.Sections[s.ID]), Groups: make([]RollupGroupDTO, 0, len(s.Groups))}
		for _, g := range s.Groups {
			gd := RollupGroupDTO{ID: g.ID, Name: g.Name, Disabled: g.Disabled, Totals: toTotalsDTO(r.Groups[g.ID]), Components: make([]RollupComponentDTO, 0, len(g.Components))}
			for _, c := range g.Components {
				m := r.Components[c.ID]
				gd.Components = append(gd.Components, RollupComponentDTO{
					ComponentDTO: ComponentDTO{ID: c.ID, Name: c.Name, Disabled: c.Disabled},
					Included:     !g.Disabled && !c.Disabled,
					Totals:       TotalsDTO{Monthly: m, Annual: m.Sum()},
				})
			}
			sd.Groups = append(sd.Groups, gd)
		}
		out.Sections = append(out.Sections, sd)
	}
	return out
}

type AnchorDTO struct {
	StartingBalance decimal.Decimal `json:"starting_balance"`
	StartingYear    int             `json:"starting_year"`
	StartingMonth   int             `json:"starting_month"`
}

func toAnchorDTO(a core.CashflowAnchor) AnchorDTO {
	return AnchorDTO{StartingBalance: a.StartingBalance, StartingYear: a.StartingYear, StartingMonth: a.StartingMonth}
}

func (d AnchorDTO) toCore() core.CashflowAnchor {
	return core.CashflowAnchor{StartingBalance: d.StartingBalance, StartingYear: d.StartingYear, StartingMonth: d.StartingMonth}
}

type CutoffDTO struct {
	CutoffYear  int `json:"cutoff_year"`
	CutoffMonth int `json:"cutoff_month"`
}

func toCutoffDTO(c core.ActualsCutoff) CutoffDTO {
	return CutoffDTO{CutoffYear: c.CutoffYear, CutoffMonth: c.CutoffMonth}
}

func (d CutoffDTO) toCore() core.ActualsCutoff {
	return core.ActualsCutoff{CutoffYear: d.CutoffYear, CutoffMonth: d.CutoffMonth}
}

// CashflowDTO lists running balances; months before the anchor are null.
type CashflowDTO struct {
	Year          int                 `json:"year"`
	Anchor        AnchorDTO           `json:"anchor"`
	Budget        report.Cashflow     `json:"budget"`
	Actual        report.Cashflow     `json:"actual"`
	BudgetClosing decimal.NullDecimal `json:"budget_closing"`
	ActualClosing decimal.NullDecimal `json:"actual_closing"`
	Reviewed      [12]bool            `json:"reviewed"`
	Cutoff        CutoffDTO           `json:"cutoff"`
}

func closing(c report.Cashflow) decimal.NullDecimal {
	v, ok := c.Closing()
	return decimal.NullDecimal{Decimal: v, Valid: ok}
}

type LineDTO struct {
	Budget  TotalsDTO               `json:"budget"`
	Actual  TotalsDTO               `json:"actual"`
	Diff    TotalsDTO               `json:"diff"`
	Monthly [12]report.Favorability `json:"monthly"`
	Annual  report.Favorability     `json:"annual"`
}

func toLineDTO(l report.Line) LineDTO {
	return LineDTO{
		Budget:  toTotalsDTO(l.Budget),
		Actual:  toTotalsDTO(l.Actual),
		Diff:    toTotalsDTO(l.Diff),
		Monthly: l.Monthly,
		Annual:  l.Annual,
	}
}

type VarianceComponentDTO struct {
	ComponentDTO
	Line LineDTO `json:"line"`
}

type VarianceGroupDTO struct {
	ID         core.GroupID           `json:"id"`
	Name       string                 `json:"name"`
	Line       LineDTO                `json:"line"`
	Components []VarianceComponentDTO `json:"components"`
}

type VarianceSectionDTO struct {
	ID     core.SectionID     `json:"id"`
	Name   string             `json:"name"`
	Kind   core.SectionKind   `json:"kind"`
	Line   LineDTO            `json:"line"`
	Groups []VarianceGroupDTO `json:"groups"`
}

type VarianceDTO struct {
	Year     int                  `json:"year"`
	Sections []VarianceSectionDTO `json:"sections"`
	Overall  TotalsDTO            `json:"overall"`
	Outcome  report.Favorability  `json:"outcome"`
}

func toVarianceDTO(hierarchy []core.Section, v report.Variance) VarianceDTO {
	out := VarianceDTO{
		Year:     v.Year,
		Overall:  toTotalsDTO(v.Overall),
		Outcome:  report.FavorabilityOf(v.Overall.Annual),
		Sections: make([]VarianceSectionDTO, 0, len(hierarchy)),
	}
	for _, s := range hierarchy {
		sd := VarianceSectionDTO{ID: s.ID, Name: s.Name, Kind: s.Kind, Line: toLineDTO(v.Sections[s.ID]), Groups: []VarianceGroupDTO{}}
		for _, g := range s.Groups {
			line, ok := v.Groups[g.ID]
			if !ok {
				continue
			}
			gd := VarianceGroupDTO{ID: g.ID, Name: g.Name, Line: toLineDTO(line), Components: []VarianceComponentDTO{}}
			for _, c := range g.Components {
				cl, ok := v.Components[c.ID]
				if !ok {
					continue
				}
				gd.Components = append(gd.Components, VarianceComponentDTO{
					ComponentDTO: ComponentDTO{ID: c.ID, Name: c.Name, Disabled: c.Disabled},
					Line:         toLineDTO(cl),
				})
			}
			sd.Groups = append(sd.Groups, gd)
		}
		out.Sections = append(out.Sections, sd)
	}
	return out
}

type BeginRequest struct {
	ComponentID core.ComponentID `json:"component_id"`
	Year        int              `json:"year"`
	Kind        core.ValueKind   `json:"kind"`
}

type KeystrokeRequest struct {
	Month int    `json:"month"`
	Raw   string `json:"raw"`
}

type KeystrokeResponse struct {
	Month   int             `json:"month"`
	Value   decimal.Decimal `json:"value"`
	Session SessionDTO      `json:"session"`
}

type NoteRequest struct {
	Month int    `json:"month"`
	Text  string `json:"text"`
}

type PasteRequest struct {
	Text        string `json:"text"`
	AnchorMonth int    `json:"anchor_month"`
}

type ClipboardDTO struct {
	Values    []decimal.Decimal `json:"values"`
	RawValues []string          `json:"raw_values"`
	Errors    []string          `json:"errors"`
	IsValid   bool              `json:"is_valid"`
}

func toClipboardDTO(res input.ClipboardResult) ClipboardDTO {
	out := ClipboardDTO{Values: res.Values, RawValues: res.RawValues, Errors: res.Errors, IsValid: res.IsValid}
	if out.Values == nil {
		out.Values = []decimal.Decimal{}
	}
	if out.RawValues == nil {
		out.RawValues = []string{}
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	return out
}

type PasteResponse struct {
	Clipboard ClipboardDTO `json:"clipboard"`
	Session   SessionDTO   `json:"session"`
}

type FillRequest struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

type FillResponse struct {
	Applied bool       `json:"applied"`
	Session SessionDTO `json:"session"`
}

// SessionDTO is the buffer of one edit session. The entity fields are zero
// while the session is idle.
type SessionDTO struct {
	ID             string           `json:"id"`
	State          string           `json:"state"`
	ComponentID    core.ComponentID `json:"component_id,omitempty"`
	Year           int              `json:"year,omitempty"`
	Kind           core.ValueKind   `json:"kind,omitempty"`
	Values         core.Months      `json:"values"`
	Notes          core.MonthNotes  `json:"notes"`
	Dirty          bool             `json:"dirty"`
	NotesDirty     bool             `json:"notes_dirty"`
	LastFlushError string           `json:"last_flush_error,omitempty"`
}

func toSessionDTO(id string, snap session.Snapshot, flushErr string) SessionDTO {
	return SessionDTO{
		ID:             id,
		State:          snap.State.String(),
		ComponentID:    snap.Ref.ComponentID,
		Year:           snap.Ref.Year,
		Kind:           snap.Ref.Kind,
		Values:         snap.Values,
		Notes:          snap.Notes,
		Dirty:          snap.Dirty,
		NotesDirty:     snap.NotesDirty,
		LastFlushError: flushErr,
	}
}
