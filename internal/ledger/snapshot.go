package ledger

import "bizledger/internal/core"

// TransactionRecord is a transaction together with where it currently lives.
type TransactionRecord struct {
	Row   int    `json:"row"`
	Label string `json:"label"`
	core.Transaction
}

type ProjectRecord struct {
	Row   int    `json:"row"`
	Label string `json:"label"`
	core.Project
}

// Snapshot is the typed view of one read of both tables. Row numbers are
// valid only until the next write to the same table.
type Snapshot struct {
	Transactions []TransactionRecord
	Projects     []ProjectRecord
	Issues       []core.Issue

	txIndex   map[string]int
	projIndex map[string]int
}

func newSnapshot() *Snapshot {
	return &Snapshot{txIndex: map[string]int{}, projIndex: map[string]int{}}
}

func (s *Snapshot) addTransaction(r TransactionRecord) {
	s.Transactions = append(s.Transactions, r)
	if r.ID != "" {
		s.txIndex[r.ID] = r.Row
	}
}

func (s *Snapshot) addProject(r ProjectRecord) {
	s.Projects = append(s.Projects, r)
	if r.ID != "" {
		s.projIndex[r.ID] = r.Row
	}
}

// TransactionRow returns the physical row holding the transaction id.
func (s *Snapshot) TransactionRow(id string) (int, bool) {
	row, ok := s.txIndex[id]
	return row, ok
}

func (s *Snapshot) ProjectRow(id string) (int, bool) {
	row, ok := s.projIndex[id]
	return row, ok
}

// TransactionList strips row information for aggregation.
func (s *Snapshot) TransactionList() []core.Transaction {
	out := make([]core.Transaction, len(s.Transactions))
	for i, r := range s.Transactions {
		out[i] = r.Transaction
	}
	return out
}

func (s *Snapshot) ProjectList() []core.Project {
	out := make([]core.Project, len(s.Projects))
	for i, r := range s.Projects {
		out[i] = r.Project
	}
	return out
}

// HasProject reports whether a project with exactly this name exists.
func (s *Snapshot) HasProject(name string) bool {
	for _, p := range s.Projects {
		if p.Name == name {
			return true
		}
	}
	return false
}
