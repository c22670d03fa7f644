package core

// Table names in the store.
const (
	TransactionsTable = "Transactions"
	ProjectsTable     = "Projects"
)

// Header row of each table at the current schema version. Columns are only
// ever appended, so positions of existing columns never move.
var (
	TransactionHeader = []string{"date", "type", "category", "amount", "note", "project_name", "created_at", "id"}
	ProjectHeader     = []string{"name", "total_budget", "start_date", "status", "progress", "created_at", "end_date", "id"}
)

// 1-based column positions in the Transactions table.
const (
	TxColDate = iota + 1
	TxColType
	TxColCategory
	TxColAmount
	TxColNote
	TxColProject
	TxColCreatedAt
	TxColID
)

// 1-based column positions in the Projects table.
const (
	ProjColName = iota + 1
	ProjColBudget
	ProjColStart
	ProjColStatus
	ProjColProgress
	ProjColCreatedAt
	ProjColEnd
	ProjColID
)

// Schema versions.
//
//	1: original layout, Projects without end_date
//	2: Projects gained end_date
//	3: both tables gained a surrogate id
const (
	SchemaV1      = 1
	SchemaV2      = 2
	SchemaV3      = 3
	SchemaCurrent = SchemaV3
)

// HeaderFor returns the current header for a table name, or nil.
func HeaderFor(table string) []string {
	switch table {
	case TransactionsTable:
		return TransactionHeader
	case ProjectsTable:
		return ProjectHeader
	}
	return nil
}

// SchemaVersion infers the version of a stored header. It returns 0 when the
// header is not a prefix of the current layout.
func SchemaVersion(table string, header []string) int {
	current := HeaderFor(table)
	if current == nil || len(header) == 0 || len(header) > len(current) {
		return 0
	}
	for i, h := range header {
		if h != current[i] {
			return 0
		}
	}
	switch table {
	case ProjectsTable:
		switch {
		case len(header) >= ProjColID:
			return SchemaV3
		case len(header) >= ProjColEnd:
			return SchemaV2
		case len(header) >= ProjColCreatedAt:
			return SchemaV1
		}
	case TransactionsTable:
		switch {
		case len(header) >= TxColID:
			return SchemaV3
		case len(header) >= TxColCreatedAt:
			return SchemaV2
		}
	}
	return 0
}
