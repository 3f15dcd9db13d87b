// Package importer turns client spreadsheets into validated rows ready to be
// inserted. It has no storage dependency: callers pass the existing clients
// in for duplicate detection.
package importer

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field is a canonical client column.
type Field string

const (
	FieldFirstName    Field = "firstName"
	FieldLastName     Field = "lastName"
	FieldPhone        Field = "phone"
	FieldEmail        Field = "email"
	FieldCNI          Field = "cni"
	FieldPropertyType Field = "propertyType"
	FieldPropertyName Field = "propertyName"
	FieldStartDate    Field = "startDate"
	FieldMonthlyRent  Field = "monthlyRent"
	FieldDepositTotal Field = "depositTotal"
	FieldDepositPaid  Field = "depositPaid"
	FieldStatus       Field = "status"
)

// Fields lists every canonical field in guessing order.
var Fields = []Field{
	FieldFirstName, FieldLastName, FieldPhone, FieldEmail, FieldCNI,
	FieldPropertyType, FieldPropertyName, FieldStartDate, FieldMonthlyRent,
	FieldDepositTotal, FieldDepositPaid, FieldStatus,
}

var requiredFields = []Field{FieldFirstName, FieldLastName, FieldPhone}

func knownField(f Field) bool { return slices.Contains(Fields, f) }

// Aliases maps a field to the header substrings that identify it.
type Aliases map[Field][]string

// DefaultAliases covers the French and English headers seen in practice.
func DefaultAliases() Aliases {
	return Aliases{
		FieldFirstName:    {"prénom", "prenom", "first name", "firstname"},
		FieldLastName:     {"nom", "last name", "lastname", "surname"},
		FieldPhone:        {"téléphone", "telephone", "tel", "phone", "mobile", "portable"},
		FieldEmail:        {"email", "e-mail", "mail", "courriel"},
		FieldCNI:          {"cni", "cin", "identite", "identité", "id"},
		FieldPropertyType: {"type de bien", "type", "property type"},
		FieldPropertyName: {"bien", "logement", "propriété", "propriete", "property", "adresse"},
		FieldStartDate:    {"date de début", "date de debut", "début", "debut", "entrée", "entree", "start"},
		FieldMonthlyRent:  {"loyer", "rent", "mensualité", "mensualite"},
		FieldDepositTotal: {"caution totale", "caution", "deposit total", "deposit"},
		FieldDepositPaid:  {"caution payée", "caution payee", "caution versée", "deposit paid", "versé", "verse"},
		FieldStatus:       {"statut", "status", "état", "etat"},
	}
}

// LoadAliases reads a YAML document mapping field names to alias lists. Fields
// present in the file replace the default list; the rest keep their defaults.
func LoadAliases(path string) (Aliases, error) {
	aliases := DefaultAliases()
	if path == "" {
		return aliases, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias file: %w", err)
	}
	var parsed map[string][]string
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
	}
	for name, list := range parsed {
		f := Field(name)
		if !knownField(f) {
			return nil, fmt.Errorf("alias file %s: unknown field %q", path, name)
		}
		lowered := make([]string, 0, len(list))
		for _, a := range list {
			if a = strings.ToLower(strings.TrimSpace(a)); a != "" {
				lowered = append(lowered, a)
			}
		}
		aliases[f] = lowered
	}
	return aliases, nil
}

// Mapping assigns a column index to each mapped field.
type Mapping map[Field]int

// Guess maps each field, in canonical order, to the first header containing
// one of its aliases. A column already claimed by an earlier field is skipped,
// so "prénom" is not taken again by the "nom" alias of lastName.
// Aliases of two letters or fewer must match a whole word of the header.
func Guess(headers []string, aliases Aliases) Mapping {
	lowered := make([]string, len(headers))
	for i, h := range headers {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}
	claimed := make(map[int]bool, len(headers))
	m := Mapping{}
	for _, f := range Fields {
		for i, h := range lowered {
			if claimed[i] || h == "" {
				continue
			}
			if matchesAny(h, aliases[f]) {
				m[f] = i
				claimed[i] = true
				break
			}
		}
	}
	return m
}

func matchesAny(header string, aliases []string) bool {
	for _, a := range aliases {
		if len([]rune(a)) <= 2 {
			if slices.Contains(words(header), a) {
				return true
			}
			continue
		}
		if strings.Contains(header, a) {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.' || r == '/' || r == '(' || r == ')' || r == ':'
	})
}

// Override applies an explicit field -> header text mapping on top of m. An
// empty header text unmaps the field.
func (m Mapping) Override(headers []string, explicit map[string]string) error {
	for name, header := range explicit {
		f := Field(name)
		if !knownField(f) {
			return fmt.Errorf("unknown field %q", name)
		}
		if header == "" {
			delete(m, f)
			continue
		}
		i := slices.IndexFunc(headers, func(h string) bool {
			return strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(header))
		})
		if i < 0 {
			return fmt.Errorf("field %q: no column named %q", name, header)
		}
		m[f] = i
	}
	return nil
}

// Named returns the mapping as field -> header text.
func (m Mapping) Named(headers []string) map[string]string {
	out := make(map[string]string, len(m))
	for f, i := range m {
		if i >= 0 && i < len(headers) {
			out[string(f)] = headers[i]
		}
	}
	return out
}
