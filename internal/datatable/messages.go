package datatable

// Messages holds the user-facing strings of the controller. Localization is
// the host's job; these are English defaults.
type Messages struct {
	DefaultTableName      string
	SaveModifiedTable     string
	FailSaveTable         string
	EmptyTableName        string
	DuplicateTableName    string
	SavedTableTitle       string
	SavedTableContent     string
	MaxRowCountErrorTitle string
}

// DefaultMessages returns the built-in English strings.
func DefaultMessages() Messages {
	return Messages{
		DefaultTableName:      "Data table",
		SaveModifiedTable:     "The table has been modified. Save changes?",
		FailSaveTable:         "Failed to save table",
		EmptyTableName:        "Please enter a table name.",
		DuplicateTableName:    "A table with the same name already exists.",
		SavedTableTitle:       "Saved",
		SavedTableContent:     "The table has been saved.",
		MaxRowCountErrorTitle: "Row limit exceeded",
	}
}

func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.DefaultTableName, d.DefaultTableName)
	fill(&m.SaveModifiedTable, d.SaveModifiedTable)
	fill(&m.FailSaveTable, d.FailSaveTable)
	fill(&m.EmptyTableName, d.EmptyTableName)
	fill(&m.DuplicateTableName, d.DuplicateTableName)
	fill(&m.SavedTableTitle, d.SavedTableTitle)
	fill(&m.SavedTableContent, d.SavedTableContent)
	fill(&m.MaxRowCountErrorTitle, d.MaxRowCountErrorTitle)
	return m
}
