package report

import (
	"github.com/nerrad567/sigpesq-core/internal/funding"
	"github.com/nerrad567/sigpesq-core/internal/project"
)

// Stats are the dashboard headline figures.
type Stats struct {
	ActiveProjects   int     `json:"projetos_ativos"`
	Participants     int     `json:"total_participantes"`
	GrantTotal       float64 `json:"total_financiamentos"`
	Productions      int     `json:"total_producoes"`
	FinishedProjects int     `json:"projetos_concluidos"`
}

// RecentProject is a dashboard project row.
type RecentProject struct {
	Code            string         `json:"codigo"`
	Title           string         `json:"titulo"`
	StartDate       string         `json:"data_inicio"`
	Status          project.Status `json:"situacao"`
	CoordinatorName string         `json:"coordenador_nome"`
}

// RecentProduction is a dashboard production row.
type RecentProduction struct {
	RecordID     string `json:"id_registro"`
	Title        string `json:"titulo"`
	Type         string `json:"tipo"`
	Year         int    `json:"ano_publicacao"`
	ProjectTitle string `json:"projeto_titulo,omitempty"`
}

// AgencyGrants is the grants-by-agency query result.
type AgencyGrants struct {
	AgencyAcronym string          `json:"agencia_sigla"`
	AgencyName    string          `json:"agencia_nome"`
	Grants        []funding.Grant `json:"financiamentos"`
	Total         float64         `json:"total"`
}

// YearProduction is one production in the productions-by-year query.
type YearProduction struct {
	RecordID     string `json:"id_registro"`
	Title        string `json:"titulo"`
	Type         string `json:"tipo"`
	Venue        string `json:"veiculo,omitempty"`
	ProjectTitle string `json:"projeto_titulo,omitempty"`
	Authors      string `json:"autores"`
	DOI          string `json:"doi"`
}

// TypeGroup collects a year's productions of one type.
type TypeGroup struct {
	Type        string           `json:"tipo_producao"`
	Total       int              `json:"total"`
	Productions []YearProduction `json:"producoes"`
}
