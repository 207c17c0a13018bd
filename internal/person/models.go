package person

// Field names as they are stored in every backend.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldAge       = "age"
)

// DefaultCollection is the collection persons are stored in unless configured otherwise.
const DefaultCollection = "Persons"

// Person is the only record type of the service. Matching is by value, the
// store assigns the document id.
type Person struct {
	FirstName string `json:"firstName" bson:"firstName" firestore:"firstName"`
	LastName  string `json:"lastName" bson:"lastName" firestore:"lastName"`
	Age       int    `json:"age" bson:"age" firestore:"age"`
}

// Document is a stored Person together with its opaque id.
type Document struct {
	ID     string `json:"id"`
	Person Person `json:"person"`
}

// Patch holds the fields a merge update overwrites. Nil fields are left untouched.
type Patch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Age       *int    `json:"age,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Age == nil
}

// Fields returns the patch as a field name to value mapping, containing only
// the fields that are set.
func (p Patch) Fields() map[string]any {
	out := make(map[string]any, 3)
	if p.FirstName != nil {
		out[FieldFirstName] = *p.FirstName
	}
	if p.LastName != nil {
		out[FieldLastName] = *p.LastName
	}
	if p.Age != nil {
		out[FieldAge] = *p.Age
	}
	return out
}

// Apply merges the patch into p and returns the result.
func (p Patch) Apply(to Person) Person {
	if p.FirstName != nil {
		to.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		to.LastName = *p.LastName
	}
	if p.Age != nil {
		to.Age = *p.Age
	}
	return to
}

// ClearField returns p with the named attribute reset to its zero value.
// Names that are not Person attributes leave p unchanged; ok reports whether
// the name was recognised.
func ClearField(p Person, field string) (out Person, ok bool) {
	switch field {
	case FieldFirstName:
		p.FirstName = ""
	case FieldLastName:
		p.LastName = ""
	case FieldAge:
		p.Age = 0
	default:
		return p, false
	}
	return p, true
}

// Value returns the value of the named attribute.
func (p Person) Value(field string) (any, bool) {
	switch field {
	case FieldFirstName:
		return p.FirstName, true
	case FieldLastName:
		return p.LastName, true
	case FieldAge:
		return p.Age, true
	}
	return nil, false
}
