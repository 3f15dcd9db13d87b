package importer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/rentledger/internal/domain"
)

var validate = validator.New()

// Senegal mobile and fixed-line prefixes.
var phonePrefixes = []string{"70", "75", "76", "77", "78", "33"}

// Record is a parsed row.
type Record struct {
	FirstName    string              `json:"firstName"`
	LastName     string              `json:"lastName"`
	Phone        string              `json:"phone"`
	Email        string              `json:"email,omitempty"`
	CNI          string              `json:"cni,omitempty"`
	PropertyType domain.PropertyType `json:"propertyType,omitempty"`
	PropertyName string              `json:"propertyName,omitempty"`
	StartDate    domain.Timestamp    `json:"startDate"`
	MonthlyRent  decimal.Decimal     `json:"monthlyRent"`
	DepositTotal decimal.Decimal     `json:"depositTotal"`
	DepositPaid  decimal.Decimal     `json:"depositPaid"`
	Status       domain.ClientStatus `json:"status"`
}

// Row is one data row with its spreadsheet row number (header is row 1).
type Row struct {
	Row    int              `json:"row"`
	Values map[Field]string `json:"values"`
	Record Record           `json:"record"`
	Errors []string         `json:"errors,omitempty"`
}

// Result splits rows into those that can be inserted and those that cannot.
type Result struct {
	Mapping map[string]string `json:"mapping"`
	Valid   []Row             `json:"valid"`
	Invalid []Row             `json:"invalid"`
}

// Options tune validation.
type Options struct {
	RequireCNI bool
	// Existing clients are checked for duplicate phones and emails.
	Existing []domain.Client
}

// Validate parses and checks every non-blank row. Problems are collected per
// row; a row is never rejected on its first error.
func Validate(sheet *Sheet, m Mapping, opts Options) *Result {
	res := &Result{Mapping: m.Named(sheet.Headers), Valid: []Row{}, Invalid: []Row{}}

	existingPhones := map[string]bool{}
	existingEmails := map[string]bool{}
	for _, c := range opts.Existing {
		if p, ok := NormalizePhone(c.Phone); ok {
			existingPhones[p] = true
		}
		if e := normalizeEmail(c.Email); e != "" {
			existingEmails[e] = true
		}
	}
	// first row number each key was seen on
	filePhones := map[string]int{}
	fileEmails := map[string]int{}

	for idx, cells := range sheet.Rows {
		if blank(cells) {
			continue
		}
		row := Row{Row: idx + 2, Values: make(map[Field]string, len(m))}
		for f, col := range m {
			if col < len(cells) {
				row.Values[f] = strings.TrimSpace(cells[col])
			}
		}
		row.Record, row.Errors = check(m, row.Values, opts)

		if p, ok := NormalizePhone(row.Record.Phone); ok {
			if existingPhones[p] {
				row.Errors = append(row.Errors, "phone: duplicate of existing client")
			}
			if first, seen := filePhones[p]; seen {
				row.Errors = append(row.Errors, fmt.Sprintf("phone: duplicate within file (row %d)", first))
			} else {
				filePhones[p] = row.Row
			}
		}
		if e := normalizeEmail(row.Record.Email); e != "" {
			if existingEmails[e] {
				row.Errors = append(row.Errors, "email: duplicate of existing client")
			}
			if first, seen := fileEmails[e]; seen {
				row.Errors = append(row.Errors, fmt.Sprintf("email: duplicate within file (row %d)", first))
			} else {
				fileEmails[e] = row.Row
			}
		}

		if len(row.Errors) == 0 {
			res.Valid = append(res.Valid, row)
		} else {
			res.Invalid = append(res.Invalid, row)
		}
	}
	return res
}

func check(m Mapping, v map[Field]string, opts Options) (Record, []string) {
	var problems []string
	for _, f := range requiredFields {
		if _, ok := m[f]; !ok {
			problems = append(problems, fmt.Sprintf("%s: column not mapped", f))
		} else if v[f] == "" {
			problems = append(problems, fmt.Sprintf("%s: required", f))
		}
	}

	rec := Record{
		FirstName:    v[FieldFirstName],
		LastName:     v[FieldLastName],
		Phone:        v[FieldPhone],
		Email:        v[FieldEmail],
		CNI:          v[FieldCNI],
		PropertyType: parsePropertyType(v[FieldPropertyType]),
		PropertyName: v[FieldPropertyName],
		Status:       parseStatus(v[FieldStatus]),
	}
	if t, ok := ParseDate(v[FieldStartDate]); ok {
		rec.StartDate = domain.NewTimestamp(t)
	}
	rec.MonthlyRent, _ = ParseNumber(v[FieldMonthlyRent])
	rec.DepositTotal, _ = ParseNumber(v[FieldDepositTotal])
	rec.DepositPaid, _ = ParseNumber(v[FieldDepositPaid])

	for _, f := range []Field{FieldFirstName, FieldLastName} {
		if v[f] != "" && !ValidName(v[f]) {
			problems = append(problems, fmt.Sprintf("%s: invalid name", f))
		}
	}
	if rec.Phone != "" {
		if _, ok := NormalizePhone(rec.Phone); !ok {
			problems = append(problems, "phone: invalid Senegal phone number")
		}
	}
	if rec.Email != "" && validate.Var(rec.Email, "email") != nil {
		problems = append(problems, "email: invalid address")
	}
	switch {
	case rec.CNI == "" && opts.RequireCNI:
		problems = append(problems, "cni: required")
	case rec.CNI != "" && !ValidCNI(rec.CNI):
		problems = append(problems, "cni: must be 13 alphanumeric characters")
	}
	amounts := []struct {
		field Field
		value decimal.Decimal
	}{
		{FieldMonthlyRent, rec.MonthlyRent},
		{FieldDepositTotal, rec.DepositTotal},
		{FieldDepositPaid, rec.DepositPaid},
	}
	for _, a := range amounts {
		if a.value.IsNegative() {
			problems = append(problems, fmt.Sprintf("%s: must not be negative", a.field))
		}
	}
	if rec.MonthlyRent.IsPositive() && rec.StartDate.IsZero() {
		problems = append(problems, "startDate: required when monthlyRent is set")
	}
	return rec, problems
}

// ValidName wants at least two characters, one of them a letter.
func ValidName(s string) bool {
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 2 {
		return false
	}
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// NormalizePhone returns the 9-digit local number, accepting +221, 00221,
// 221 and 0 prefixes and any spacing or punctuation.
func NormalizePhone(s string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	switch {
	case len(digits) == 14 && strings.HasPrefix(digits, "00221"):
		digits = digits[5:]
	case len(digits) == 12 && strings.HasPrefix(digits, "221"):
		digits = digits[3:]
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	if len(digits) != 9 {
		return "", false
	}
	for _, p := range phonePrefixes {
		if strings.HasPrefix(digits, p) {
			return digits, true
		}
	}
	return "", false
}

// ValidCNI checks for exactly 13 letters or digits once separators are removed.
func ValidCNI(s string) bool {
	n := 0
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			n++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return false
		}
	}
	return n == 13
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func parsePropertyType(s string) domain.PropertyType {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "studio"):
		return domain.PropertyStudio
	case strings.Contains(s, "chambre"), strings.Contains(s, "room"):
		return domain.PropertyRoom
	case strings.Contains(s, "appart"), strings.Contains(s, "apartment"), strings.Contains(s, "flat"):
		return domain.PropertyApartment
	case strings.Contains(s, "villa"), strings.Contains(s, "maison"), strings.Contains(s, "house"):
		return domain.PropertyVilla
	default:
		return domain.PropertyOther
	}
}

// parseStatus defaults to active.
func parseStatus(s string) domain.ClientStatus {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "archiv"):
		return domain.ClientArchived
	case strings.Contains(s, "blacklist"), strings.Contains(s, "liste noire"):
		return domain.ClientBlacklisted
	default:
		return domain.ClientActive
	}
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
