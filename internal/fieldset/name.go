package fieldset

import "strings"

var forbiddenChars = strings.NewReplacer(":", "", `"`, "", "{", "", "}", "")

// FixName makes a field name usable inside template references: surrounding
// whitespace and leading '#', '/', '^' are stripped and ':', '"', '{', '}'
// removed.
func FixName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, "#/^")
	return forbiddenChars.Replace(name)
}

// Sanitize maps field names to the names they get in the target collection:
// each is passed through FixName and case-insensitive duplicates collapse
// onto the first spelling. Names that sanitize to nothing become "Field".
// The returned set holds the target names in order.
func Sanitize(names []string) (*FieldSet, map[string]string) {
	target := New()
	mapping := make(map[string]string, len(names))
	for _, name := range names {
		fixed := FixName(name)
		if fixed == "" {
			fixed = "Field"
		}
		mapping[name] = target.Add(fixed)
	}
	return target, mapping
}
