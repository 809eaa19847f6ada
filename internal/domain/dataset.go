package domain

// IdentifierField is the school record field every collection entry must carry.
const IdentifierField = "urn"

// FieldMapping copies one source column into one school field.
// Primary mappings decide whether a school counts as matched by a dataset;
// the rest are supplementary breakdowns.
type FieldMapping struct {
	Column    string `json:"column"`
	Field     string `json:"field"`
	Precision int    `json:"precision"`
	Primary   bool   `json:"primary"`
}

// Dataset describes one performance export: how its rows are filtered and
// joined, and which columns are imported.
type Dataset struct {
	Name             string         `json:"name"`
	Label            string         `json:"label"`
	RecordTypeColumn string         `json:"recordTypeColumn"`
	RecordTypeCode   string         `json:"recordTypeCode"`
	IDColumn         string         `json:"idColumn"`
	Fields           []FieldMapping `json:"fields"`
}

// PrimaryFields returns the destination fields of the primary mappings.
func (d *Dataset) PrimaryFields() []string {
	var out []string
	for _, m := range d.Fields {
		if m.Primary {
			out = append(out, m.Field)
		}
	}
	return out
}

func primary(column, field string, precision int) FieldMapping {
	return FieldMapping{Column: column, Field: field, Precision: precision, Primary: true}
}

func extra(column, field string, precision int) FieldMapping {
	return FieldMapping{Column: column, Field: field, Precision: precision}
}

// KS4 is the secondary-school performance export (England KS4 revised).
func KS4() Dataset {
	return Dataset{
		Name:             "ks4",
		Label:            "KS4",
		RecordTypeColumn: "RECTYPE",
		RecordTypeCode:   "1",
		IDColumn:         "URN",
		Fields: []FieldMapping{
			primary("ATT8SCR", "attainment8", 1),
			primary("P8MEA", "progress8", 2),
			primary("PTL2BASICS_94", "basics_94", 0),
			primary("PTL2BASICS_95", "basics_95", 0),
			primary("PTFSM6CLA1A", "fsm_pct", 1),

			// disadvantaged / non-disadvantaged breakdowns
			extra("ATT8SCR_FSM6CLA1A", "a8_disadv", 1),
			extra("ATT8SCR_NFSM6CLA1A", "a8_nondisadv", 1),
			extra("P8MEA_FSM6CLA1A", "p8_disadv", 2),
			extra("P8MEA_NFSM6CLA1A", "p8_nondisadv", 2),
			extra("PTFSM6CLA1ABASICS_94", "b94_disadv", 0),
			extra("PTFSM6CLA1ABASICS_95", "b95_disadv", 0),
			extra("PTNOTFSM6CLA1ABASICS_94", "b94_nondisadv", 0),
			extra("PTNOTFSM6CLA1ABASICS_95", "b95_nondisadv", 0),

			// prior year
			extra("ATT8SCR_PREV", "a8_prev", 1),
			extra("P8MEA_PREV", "p8_prev", 2),
			extra("PTL2BASICS_94_PREV", "b94_prev", 0),
			extra("PTL2BASICS_95_PREV", "b95_prev", 0),
		},
	}
}

// KS2 is the primary-school performance export (England KS2 revised).
func KS2() Dataset {
	return Dataset{
		Name:             "ks2",
		Label:            "KS2",
		RecordTypeColumn: "RECTYPE",
		RecordTypeCode:   "1",
		IDColumn:         "URN",
		Fields: []FieldMapping{
			primary("PTRWM_EXP", "ks2_rwm_exp", 0),
			primary("PTRWM_HIGH", "ks2_rwm_high", 0),
			primary("READ_AVERAGE", "ks2_read_avg", 1),
			primary("READPROG", "ks2_read_prog", 2),
			primary("PTREAD_EXP", "ks2_read_exp", 0),
			primary("PTMAT_EXP", "ks2_mat_exp", 0),
			primary("PTWRITTA_EXP", "ks2_writ_exp", 0),
			primary("PTGPS_EXP", "ks2_gps_exp", 0),

			extra("PTRWM_EXP_FSM6CLA1A", "ks2_rwm_disadv", 0),
			extra("PTRWM_EXP_NotFSM6CLA1A", "ks2_rwm_nondisadv", 0),

			extra("PTRWM_EXP_24", "ks2_rwm_prev", 0),
			extra("READ_AVERAGE_24", "ks2_read_avg_prev", 1),
		},
	}
}

// ReportField is a school field whose coverage is shown in the summary.
type ReportField struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// DefaultReportFields lists the coverage lines of the summary, in print order.
func DefaultReportFields() []ReportField {
	return []ReportField{
		{Field: "attainment8", Label: "Attainment 8"},
		{Field: "progress8", Label: "Progress 8"},
		{Field: "basics_94", Label: "Basics 4+"},
		{Field: "fsm_pct", Label: "FSM %"},
		{Field: "ks2_rwm_exp", Label: "KS2 RWM"},
		{Field: "ks2_read_avg", Label: "KS2 Reading"},
	}
}
