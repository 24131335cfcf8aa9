package funding

// Agency is a funding body such as CNPq or CAPES.
type Agency struct {
	Acronym string `json:"sigla"`
	Name    string `json:"nome"`
}

// Grant is a funding process awarded by an agency. Dates are YYYY-MM-DD.
type Grant struct {
	ProcessCode   string  `json:"codigo_processo"`
	AgencyAcronym string  `json:"agencia_sigla"`
	AgencyName    string  `json:"agencia_nome,omitempty"`
	FundingType   string  `json:"tipo_fomento"`
	TotalAmount   float64 `json:"valor_total"`
	StartDate     string  `json:"data_inicio"`
	EndDate       string  `json:"data_fim"`
	ProjectCount  int     `json:"num_projetos"`
}

// GrantUpdate is a partial grant update; nil fields are kept.
type GrantUpdate struct {
	AgencyAcronym *string
	FundingType   *string
	TotalAmount   *float64
	StartDate     *string
	EndDate       *string
}

// Filter narrows ListGrants. Search matches agency name or process code.
type Filter struct {
	Search      string
	FundingType string
}
