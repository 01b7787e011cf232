package storymap

// StoryVariable is authored game state carried on the document.
// The engine passes variables through unchanged; they are not processed
// beyond persistence.
type StoryVariable struct {
	VariableID        string      `json:"variableId"`
	Name              string      `json:"name"`
	DataType          string      `json:"dataType"`
	InitialValue      interface{} `json:"initialValue,omitempty"`
	IsGlobal          bool        `json:"isGlobal"`
	IsVisibleToPlayer bool        `json:"isVisibleToPlayer"`
}
