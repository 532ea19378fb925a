package model

// Student is one entry of the school directory file. The directory is
// provisioned by the school office; this service never creates or edits
// students.
type Student struct {
	ID    string `json:"id"`    // numeric-looking, but always handled as a string
	Name  string `json:"name"`  // full name as written in the directory
	Group string `json:"group"` // class label, e.g. "5Б"
}
