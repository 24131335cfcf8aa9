package production

// Author is one entry of a production's author list.
type Author struct {
	CPF   string `json:"cpf"`
	Name  string `json:"nome,omitempty"`
	Order int    `json:"ordem"`
}

// Production is a research output.
type Production struct {
	RecordID     string   `json:"id_registro"`
	ProjectCode  string   `json:"projeto_codigo,omitempty"`
	ProjectTitle string   `json:"projeto_titulo,omitempty"`
	Title        string   `json:"titulo"`
	Type         string   `json:"tipo"`
	Year         int      `json:"ano_publicacao"`
	Venue        string   `json:"meio_divulgacao,omitempty"`
	Authors      []Author `json:"autores"`
}

// AuthorCPFs lists the authors' CPFs in order.
func (p *Production) AuthorCPFs() []string {
	cpfs := make([]string, len(p.Authors))
	for i, a := range p.Authors {
		cpfs[i] = a.CPF
	}
	return cpfs
}

// Update is a partial production update; nil fields are kept. A non-nil
// Authors replaces the whole author list, and an empty ProjectCode clears
// the project link.
type Update struct {
	ProjectCode *string
	Title       *string
	Type        *string
	Year        *int
	Venue       *string
	Authors     []string
}

// Filter narrows List. Search matches the title.
type Filter struct {
	Search string
	Type   string
	Year   int
}
