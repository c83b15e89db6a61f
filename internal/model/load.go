package model

// LoadKind tags the concrete payload carried by a Load value.
type LoadKind string

const (
	LoadKindPostgres LoadKind = "postgres"
)

// Load is a closed tagged-variant sum type over sink definitions. Concrete
// Load processors receive the full Matrix and push it to a remote sink.
type Load struct {
	Kind     LoadKind
	Postgres *PostgresLoad
}

// ID returns the sink identity used for logging/metrics. Load processors
// match a Load against their filteredType by Kind, not by ID.
func (l Load) ID() string {
	switch l.Kind {
	case LoadKindPostgres:
		return l.Postgres.ID
	default:
		return ""
	}
}

// PostgresLoad pushes the matrix into a Postgres/Timescale-style table.
type PostgresLoad struct {
	ID         string
	EndpointID string
	Table      string
}
