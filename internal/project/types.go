package project

import "github.com/nerrad567/sigpesq-core/internal/auth"

// Status is the lifecycle state of a project.
type Status string

// Project statuses.
const (
	StatusInProgress Status = "EM_ANDAMENTO"
	StatusFinished   Status = "CONCLUIDO"
	StatusCancelled  Status = "CANCELADO"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// Project is a research project. Dates are YYYY-MM-DD.
type Project struct {
	Code            string `json:"codigo"`
	Title           string `json:"titulo"`
	Description     string `json:"descricao,omitempty"`
	StartDate       string `json:"data_inicio"`
	EndDate         string `json:"data_termino,omitempty"`
	Status          Status `json:"situacao"`
	CoordinatorCPF  string `json:"coordenador_cpf"`
	CoordinatorName string `json:"coordenador_nome,omitempty"`
}

// Update is a partial project update; nil fields are kept.
type Update struct {
	Title          *string
	Description    *string
	StartDate      *string
	EndDate        *string
	Status         *Status
	CoordinatorCPF *string
}

// Filter narrows List. Search matches title, code or coordinator name.
type Filter struct {
	Search string
	Status Status
}

// Membership links a participant to a project.
type Membership struct {
	ParticipantCPF string `json:"participante_cpf"`
	ProjectCode    string `json:"projeto_codigo"`
	Function       string `json:"funcao"`
	EntryDate      string `json:"data_entrada"`
	ExitDate       string `json:"data_saida,omitempty"`
}

// Member is a project member as shown in project details.
type Member struct {
	CPF       string    `json:"cpf"`
	Name      string    `json:"nome"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"tipo"`
	Function  string    `json:"funcao"`
	EntryDate string    `json:"data_entrada"`
	ExitDate  string    `json:"data_saida,omitempty"`
}

// Allocation assigns part of a grant to a project.
type Allocation struct {
	ProjectCode     string  `json:"projeto_codigo"`
	GrantCode       string  `json:"codigo_processo"`
	AllocatedAmount float64 `json:"valor_alocado"`
}

// AllocatedGrant is a grant as shown in project details.
type AllocatedGrant struct {
	GrantCode       string  `json:"codigo_processo"`
	AgencyAcronym   string  `json:"agencia_sigla"`
	FundingType     string  `json:"tipo_fomento"`
	TotalAmount     float64 `json:"valor_total"`
	AllocatedAmount float64 `json:"valor_alocado"`
}

// Details is a project with its members and allocated grants.
type Details struct {
	Project
	Participants []Member         `json:"participantes"`
	Grants       []AllocatedGrant `json:"financiamentos"`
}
