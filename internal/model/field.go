package model

// EditableField names a grade attribute a teacher may change.
type EditableField string

const (
	FieldGrade       EditableField = "Grade"
	FieldConductCode EditableField = "ConductCode"
	FieldCommentText EditableField = "CommentText"
)

// EditableFields is the fixed allow-list, in write order.
var EditableFields = []EditableField{FieldGrade, FieldConductCode, FieldCommentText}

// ParseEditableField matches a name exactly against the allow-list.
func ParseEditableField(name string) (EditableField, bool) {
	for _, f := range EditableFields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}
