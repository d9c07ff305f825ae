package datatable

// BlockSchema carries the category tags of a block definition.
type BlockSchema struct {
	IsFor    []string `json:"isFor,omitempty"`
	IsNotFor []string `json:"isNotFor,omitempty"`
}

// Block is one block instance of the user's program.
type Block struct {
	Type   string      `json:"type"`
	Schema BlockSchema `json:"schema"`
	Params []any       `json:"params"`
}

// consumesTables reports whether the block is a table block of category.
func (b Block) consumesTables(category string) bool {
	if b.Type == "" {
		return false
	}
	if len(b.Schema.IsFor) == 0 || len(b.Schema.IsNotFor) == 0 {
		return false
	}
	return b.Schema.IsNotFor[0] == category
}

// GetTables returns the tables referenced by the program's table blocks,
// each once, in order of first reference. Only string parameters that equal
// a known table id count.
func (c *Controller) GetTables(blocks []Block) []TableJSON {
	seen := make(map[string]bool)
	var out []TableJSON

	for _, b := range blocks {
		if !b.consumesTables(c.category) {
			continue
		}
		for _, p := range b.Params {
			id, ok := p.(string)
			if !ok || id == "" || seen[id] {
				continue
			}
			i := c.indexOf(id)
			if i < 0 {
				continue
			}
			seen[id] = true
			out = append(out, c.tables[i].ToJSON())
		}
	}

	if out == nil {
		return []TableJSON{}
	}
	return out
}
